package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"kinobot/internal/services"
)

// ImportReport summarizes an Import call.
type ImportReport struct {
	Added    int
	Replaced int
	Skipped  []DecodeIssue
}

// legacyRecord is one element of the older backup array format:
// [{"code": ..., "title": ..., "file_id": ...}].
type legacyRecord struct {
	Code   json.RawMessage `json:"code"`
	Title  string          `json:"title"`
	FileID string          `json:"file_id"`
}

// Export returns the encoded catalog document.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return Encode(doc)
}

// ParseImport decodes a current or legacy catalog document, or a JSON array
// of {code, title, file_id} records.
func ParseImport(data []byte) (Document, []DecodeIssue, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		doc, issues, err := Decode(trimmed)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrMalformedInput, "catalog", "import", "", err)
		}
		return doc, issues, nil
	}

	var records []legacyRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, nil, services.Wrap(services.ErrMalformedInput, "catalog", "import", "legacy array", err)
	}
	doc := make(Document, len(records))
	var issues []DecodeIssue
	for i, rec := range records {
		raw := string(bytes.Trim(rec.Code, `"`))
		code, ok := NormalizeCode(raw)
		if !ok {
			issues = append(issues, DecodeIssue{Code: raw, Reason: fmt.Sprintf("record %d: invalid code", i)})
			continue
		}
		if rec.FileID == "" {
			issues = append(issues, DecodeIssue{Code: code, Reason: fmt.Sprintf("record %d: missing file_id", i)})
			continue
		}
		if _, dup := doc[code]; dup {
			issues = append(issues, DecodeIssue{Code: code, Reason: fmt.Sprintf("record %d: code repeated", i)})
			continue
		}
		doc[code] = Entry{
			Code:    code,
			Kind:    KindSingle,
			Caption: rec.Title,
			Video:   &Media{Ref: rec.FileID, Fingerprint: rec.FileID},
		}
	}
	return doc, issues, nil
}

// Import merges incoming into the catalog in one write. Entries whose code is
// taken are skipped unless overwrite is set; entries whose media exists under
// another code are always skipped.
func (s *Store) Import(ctx context.Context, incoming Document, overwrite bool) (ImportReport, error) {
	var report ImportReport
	err := s.Mutate(ctx, func(doc Document) error {
		for _, code := range sortedKeys(incoming) {
			entry := incoming[code]
			entry.Code = code
			if err := entry.Validate(); err != nil {
				report.Skipped = append(report.Skipped, DecodeIssue{Code: code, Reason: err.Error()})
				continue
			}
			_, exists := doc[code]
			if exists && !overwrite {
				report.Skipped = append(report.Skipped, DecodeIssue{Code: code, Reason: "code already in catalog"})
				continue
			}
			if err := checkFingerprints(IndexOf(doc), entry, true); err != nil {
				report.Skipped = append(report.Skipped, DecodeIssue{Code: code, Reason: err.Error()})
				continue
			}
			doc[code] = entry.Clone()
			if exists {
				report.Replaced++
			} else {
				report.Added++
			}
		}
		return nil
	})
	if err != nil {
		return ImportReport{}, err
	}
	return report, nil
}
