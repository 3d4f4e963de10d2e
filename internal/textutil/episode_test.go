package textutil

import (
	"errors"
	"testing"
)

func TestParseEpisode(t *testing.T) {
	cases := []struct {
		caption string
		number  int
		title   string
	}{
		{"1 Yura davri 3", 1, "Yura davri 3"},
		{"7 | Forsaj: G'azablangan", 7, "Forsaj: G'azablangan"},
		{"Qism 12 - Final", 12, "Qism - Final"},
		{"  03.  Boshlanish", 3, "Boshlanish"},
		{"５ fullwidth", 5, "fullwidth"},
		{"9", 9, ""},
	}
	for _, tc := range cases {
		t.Run(tc.caption, func(t *testing.T) {
			number, title, err := ParseEpisode(tc.caption)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if number != tc.number || title != tc.title {
				t.Fatalf("got (%d, %q) want (%d, %q)", number, title, tc.number, tc.title)
			}
		})
	}
}

func TestParseEpisodeFailures(t *testing.T) {
	if _, _, err := ParseEpisode("Yura davri"); !errors.Is(err, ErrNoEpisodeNumber) {
		t.Fatalf("expected ErrNoEpisodeNumber, got %v", err)
	}
	if _, _, err := ParseEpisode(""); !errors.Is(err, ErrNoEpisodeNumber) {
		t.Fatalf("expected ErrNoEpisodeNumber for empty caption, got %v", err)
	}
	if _, _, err := ParseEpisode("0 pilot"); !errors.Is(err, ErrEpisodeNumberRange) {
		t.Fatalf("expected range error, got %v", err)
	}
	if _, _, err := ParseEpisode("123456 long"); !errors.Is(err, ErrEpisodeNumberRange) {
		t.Fatalf("expected range error, got %v", err)
	}
}
