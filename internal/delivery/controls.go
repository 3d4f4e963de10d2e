package delivery

import (
	"strconv"
	"strings"

	"kinobot/internal/catalog"
)

// Callback data prefixes.
const (
	PrefixWatch   = "w:"
	PrefixEpisode = "e:"
	PrefixCheck   = "chk"
)

// WatchData encodes a single-item redemption control.
func WatchData(code, token string) string {
	return PrefixWatch + code + ":" + token
}

// ParseWatchData decodes WatchData.
func ParseWatchData(data string) (code, token string, ok bool) {
	rest, found := strings.CutPrefix(data, PrefixWatch)
	if !found {
		return "", "", false
	}
	code, token, found = strings.Cut(rest, ":")
	if !found || !catalog.ValidCode(code) || token == "" {
		return "", "", false
	}
	return code, token, true
}

// EpisodeData encodes a series episode control.
func EpisodeData(code string, n int) string {
	return PrefixEpisode + code + ":" + strconv.Itoa(n)
}

// ParseEpisodeData decodes EpisodeData.
func ParseEpisodeData(data string) (code string, n int, ok bool) {
	rest, found := strings.CutPrefix(data, PrefixEpisode)
	if !found {
		return "", 0, false
	}
	code, number, found := strings.Cut(rest, ":")
	if !found || !catalog.ValidCode(code) {
		return "", 0, false
	}
	n, err := strconv.Atoi(number)
	if err != nil || n < 1 {
		return "", 0, false
	}
	return code, n, true
}

// CheckData encodes the "check membership again" control; code may be empty.
func CheckData(code string) string {
	if code == "" {
		return PrefixCheck
	}
	return PrefixCheck + ":" + code
}

// ParseCheckData returns the code the check control resumes, if any.
func ParseCheckData(data string) (code string, ok bool) {
	if data == PrefixCheck {
		return "", true
	}
	rest, found := strings.CutPrefix(data, PrefixCheck+":")
	if !found || !catalog.ValidCode(rest) {
		return "", false
	}
	return rest, true
}
