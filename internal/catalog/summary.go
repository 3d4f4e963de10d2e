package catalog

import "sort"

// Summary is the listing view of an entry. It carries no media references.
type Summary struct {
	Code      string `json:"code"`
	Kind      Kind   `json:"kind"`
	Title     string `json:"title"`
	Episodes  int    `json:"episodes,omitempty"`
	HasPoster bool   `json:"has_poster"`
	Published bool   `json:"published"`
}

// EpisodeSummary lists one episode of a series.
type EpisodeSummary struct {
	Number int    `json:"number"`
	Title  string `json:"title,omitempty"`
}

// Detail is the single-entry view.
type Detail struct {
	Summary
	Caption        string           `json:"caption"`
	AnnouncementID int              `json:"announcement_id,omitempty"`
	EpisodeList    []EpisodeSummary `json:"episode_list,omitempty"`
}

// Summarize builds the listing view of e.
func Summarize(e Entry) Summary {
	return Summary{
		Code:      e.Code,
		Kind:      e.Kind,
		Title:     e.Title(),
		Episodes:  len(e.Episodes),
		HasPoster: e.Poster != "",
		Published: e.Published(),
	}
}

// Describe builds the detail view of e.
func Describe(e Entry) Detail {
	d := Detail{
		Summary:        Summarize(e),
		Caption:        e.Caption,
		AnnouncementID: e.Announcement,
	}
	for _, n := range e.EpisodeNumbers() {
		d.EpisodeList = append(d.EpisodeList, EpisodeSummary{Number: n, Title: e.Episodes[n].Title})
	}
	return d
}

// Summaries lists doc ordered by code.
func Summaries(doc Document) []Summary {
	out := make([]Summary, 0, len(doc))
	for _, e := range doc {
		out = append(out, Summarize(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
