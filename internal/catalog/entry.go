package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// CodeDigits is the width of catalog codes. Widening the code space only
// requires changing this constant.
const CodeDigits = 4

// Kind discriminates the two entry variants.
type Kind string

const (
	KindSingle Kind = "single"
	KindSeries Kind = "series"
)

// Media references one uploaded video. Ref is the transient delivery handle;
// Fingerprint is the stable content identity used for deduplication.
type Media struct {
	Ref         string
	Fingerprint string
}

// Episode is one numbered video of a series.
type Episode struct {
	Media
	Title string
}

// Entry is one catalog record.
type Entry struct {
	Code    string
	Kind    Kind
	Poster  string
	Caption string
	// Announcement is the channel message id of the published post; zero when unpublished.
	Announcement int
	// Video is set for KindSingle only.
	Video *Media
	// Episodes is set for KindSeries only.
	Episodes map[int]Episode
}

// ValidCode reports whether code has exactly CodeDigits ASCII digits.
func ValidCode(code string) bool {
	if len(code) != CodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// FormatCode zero-pads n to CodeDigits.
func FormatCode(n int) string {
	return fmt.Sprintf("%0*d", CodeDigits, n)
}

// NormalizeCode accepts user input such as " 42 " and returns the padded code.
func NormalizeCode(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" || len(input) > CodeDigits {
		return "", false
	}
	n, err := strconv.Atoi(input)
	if err != nil || n < 0 || strings.ContainsAny(input, "+-") {
		return "", false
	}
	return FormatCode(n), true
}

// Validate checks the entry carries exactly its variant's payload.
func (e Entry) Validate() error {
	if !ValidCode(e.Code) {
		return fmt.Errorf("invalid code %q", e.Code)
	}
	switch e.Kind {
	case KindSingle:
		if e.Episodes != nil {
			return errors.New("single entry must not carry episodes")
		}
		if e.Video != nil && strings.TrimSpace(e.Video.Fingerprint) == "" {
			return errors.New("single entry video has no fingerprint")
		}
	case KindSeries:
		if e.Video != nil {
			return errors.New("series entry must not carry a video")
		}
		for n, ep := range e.Episodes {
			if n < 1 {
				return fmt.Errorf("episode number %d must be positive", n)
			}
			if strings.TrimSpace(ep.Fingerprint) == "" {
				return fmt.Errorf("episode %d has no fingerprint", n)
			}
		}
	default:
		return fmt.Errorf("unknown entry kind %q", e.Kind)
	}
	return nil
}

// Complete reports whether the entry can be delivered and published.
func (e Entry) Complete() bool {
	switch e.Kind {
	case KindSingle:
		return e.Video != nil
	case KindSeries:
		return len(e.Episodes) > 0
	}
	return false
}

// Published reports whether the entry has a live announcement.
func (e Entry) Published() bool {
	return e.Announcement != 0
}

// EpisodeNumbers returns the series episode numbers in ascending order.
func (e Entry) EpisodeNumbers() []int {
	numbers := make([]int, 0, len(e.Episodes))
	for n := range e.Episodes {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// Clone returns a deep copy safe to mutate.
func (e Entry) Clone() Entry {
	out := e
	if e.Video != nil {
		video := *e.Video
		out.Video = &video
	}
	if e.Episodes != nil {
		out.Episodes = make(map[int]Episode, len(e.Episodes))
		for n, ep := range e.Episodes {
			out.Episodes[n] = ep
		}
	}
	return out
}

// Title returns the first line of the caption for listings.
func (e Entry) Title() string {
	line, _, _ := strings.Cut(strings.TrimSpace(e.Caption), "\n")
	return strings.TrimSpace(line)
}
