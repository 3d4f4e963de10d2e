package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// TrailerPrefix starts every canonical caption trailer.
const TrailerPrefix = "Code: "

// trailerPattern matches canonical and legacy trailers anywhere in a caption.
var trailerPattern = regexp.MustCompile(`(?i)(?:🆔\s*)?\b(?:code|kod)\s*:\s*(\d+)`)

// Trailer returns the canonical trailer for code.
func Trailer(code string) string {
	return TrailerPrefix + code
}

// NormalizeCaption trims surrounding whitespace and composes Unicode so
// equivalent captions compare equal.
func NormalizeCaption(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// StripTrailers removes every trailer-looking substring and trims the result.
func StripTrailers(text string) string {
	stripped := trailerPattern.ReplaceAllString(text, "")
	lines := strings.Split(stripped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return collapseBlankLines(NormalizeCaption(strings.Join(lines, "\n")))
}

// Render joins a caption body and the canonical trailer for code.
func Render(body, code string) string {
	body = StripTrailers(body)
	if body == "" {
		return Trailer(code)
	}
	return body + "\n\n" + Trailer(code)
}

func collapseBlankLines(text string) string {
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}
