package textutil

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrNoEpisodeNumber is returned when a caption contains no digits.
var ErrNoEpisodeNumber = errors.New("caption has no episode number")

// ErrEpisodeNumberRange is returned for zero or oversized episode numbers.
var ErrEpisodeNumberRange = errors.New("episode number out of range")

// MaxEpisodeNumber bounds parsed episode numbers.
const MaxEpisodeNumber = 9999

// ParseEpisode reads an episode number and title from a free-text caption.
// The first contiguous run of digits anywhere in the text is the number; the
// rest of the text, with leading separator punctuation trimmed, is the title.
func ParseEpisode(caption string) (int, string, error) {
	text := norm.NFKC.String(caption)
	start := strings.IndexFunc(text, isASCIIDigit)
	if start < 0 {
		return 0, "", ErrNoEpisodeNumber
	}
	end := start
	for end < len(text) && isASCIIDigit(rune(text[end])) {
		end++
	}
	number, err := strconv.Atoi(text[start:end])
	if err != nil || number < 1 || number > MaxEpisodeNumber {
		return 0, "", ErrEpisodeNumberRange
	}

	rest := text[:start] + text[end:]
	title := strings.TrimLeftFunc(rest, isSeparator)
	title = strings.Join(strings.Fields(title), " ")
	return number, title, nil
}

func isASCIIDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	switch r {
	case '|', '-', '–', '—', ':', '.', ',', ';', ')', '/', '#', '_', '•', '·':
		return true
	}
	return false
}
