package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("duplicate media")
	ErrNotEntitled       = errors.New("not entitled")
	ErrStaleControl      = errors.New("stale control")
	ErrMalformedInput    = errors.New("malformed input")
	ErrStorageCorrupt    = errors.New("storage corrupt")
	ErrBestEffort        = errors.New("best-effort failure")
	ErrStorageUnwritable = errors.New("storage unwritable")
	ErrConfiguration     = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for classification at the edge. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrBestEffort
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// UserCorrectable reports whether err should be answered with a re-prompt
// rather than treated as an internal failure.
func UserCorrectable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrNotEntitled),
		errors.Is(err, ErrStaleControl),
		errors.Is(err, ErrMalformedInput):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
