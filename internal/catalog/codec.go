package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Document is the decoded catalog keyed by code.
type Document map[string]Entry

type episodeRecord struct {
	MediaRef         string `json:"media_ref"`
	MediaFingerprint string `json:"media_fingerprint"`
	Title            string `json:"title"`
}

// entryRecord is the on-disk shape of one entry. The legacy fields are only
// ever read; Encode leaves them empty so they are omitted.
type entryRecord struct {
	Type             string                   `json:"type,omitempty"`
	PosterRef        string                   `json:"poster_ref,omitempty"`
	Caption          string                   `json:"caption"`
	MediaRef         string                   `json:"media_ref,omitempty"`
	MediaFingerprint string                   `json:"media_fingerprint,omitempty"`
	AnnouncementRef  int                      `json:"announcement_ref,omitempty"`
	Episodes         map[string]episodeRecord `json:"episodes,omitempty"`

	LegacyPoster       string `json:"post_file_id,omitempty"`
	LegacyCaption      string `json:"post_caption,omitempty"`
	LegacyVideo        string `json:"video_file_id,omitempty"`
	LegacyFingerprint  string `json:"video_unique_id,omitempty"`
	LegacyAnnouncement int    `json:"channel_msg_id,omitempty"`
}

// DecodeIssue describes one entry dropped while decoding.
type DecodeIssue struct {
	Code   string
	Reason string
}

func (i DecodeIssue) String() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Reason)
}

// Decode parses a catalog document. Entries that cannot be interpreted are
// dropped and reported; a document that is not a JSON object is an error.
func Decode(data []byte) (Document, []DecodeIssue, error) {
	doc := make(Document)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return doc, nil, nil
	}

	var records map[string]entryRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, nil, fmt.Errorf("parse catalog document: %w", err)
	}

	var issues []DecodeIssue
	for _, code := range sortedKeys(records) {
		entry, err := records[code].toEntry(code)
		if err != nil {
			issues = append(issues, DecodeIssue{Code: code, Reason: err.Error()})
			continue
		}
		doc[code] = entry
	}
	return doc, issues, nil
}

// Encode renders doc in the current document shape with stable key order.
func Encode(doc Document) ([]byte, error) {
	records := make(map[string]entryRecord, len(doc))
	for code, entry := range doc {
		records[code] = fromEntry(entry)
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode catalog document: %w", err)
	}
	return append(data, '\n'), nil
}

func (r entryRecord) toEntry(code string) (Entry, error) {
	entry := Entry{
		Code:         code,
		Poster:       firstNonEmpty(r.PosterRef, r.LegacyPoster),
		Caption:      firstNonEmpty(r.Caption, r.LegacyCaption),
		Announcement: r.AnnouncementRef,
	}
	if entry.Announcement == 0 {
		entry.Announcement = r.LegacyAnnouncement
	}

	switch Kind(r.Type) {
	case "", KindSingle:
		entry.Kind = KindSingle
		ref := firstNonEmpty(r.MediaRef, r.LegacyVideo)
		fingerprint := firstNonEmpty(r.MediaFingerprint, r.LegacyFingerprint)
		if ref != "" || fingerprint != "" {
			if fingerprint == "" {
				fingerprint = ref
			}
			entry.Video = &Media{Ref: ref, Fingerprint: fingerprint}
		}
	case KindSeries:
		entry.Kind = KindSeries
		entry.Episodes = make(map[int]Episode, len(r.Episodes))
		for key, ep := range r.Episodes {
			n, err := strconv.Atoi(key)
			if err != nil || n < 1 {
				return Entry{}, fmt.Errorf("invalid episode number %q", key)
			}
			entry.Episodes[n] = Episode{
				Media: Media{Ref: ep.MediaRef, Fingerprint: firstNonEmpty(ep.MediaFingerprint, ep.MediaRef)},
				Title: ep.Title,
			}
		}
	default:
		return Entry{}, fmt.Errorf("unknown entry type %q", r.Type)
	}

	if err := entry.Validate(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func fromEntry(e Entry) entryRecord {
	record := entryRecord{
		Type:            string(e.Kind),
		PosterRef:       e.Poster,
		Caption:         e.Caption,
		AnnouncementRef: e.Announcement,
	}
	switch e.Kind {
	case KindSingle:
		if e.Video != nil {
			record.MediaRef = e.Video.Ref
			record.MediaFingerprint = e.Video.Fingerprint
		}
	case KindSeries:
		record.Episodes = make(map[string]episodeRecord, len(e.Episodes))
		for n, ep := range e.Episodes {
			record.Episodes[strconv.Itoa(n)] = episodeRecord{
				MediaRef:         ep.Ref,
				MediaFingerprint: ep.Fingerprint,
				Title:            ep.Title,
			}
		}
	}
	return record
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
