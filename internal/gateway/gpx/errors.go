package gpx

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse is returned when a source is not a usable GPX document.
	ErrParse = errors.New("invalid gpx document")
	// ErrRead is returned when the source cannot be read.
	ErrRead = errors.New("read gpx source")
)

// ParseError carries the location of a malformed GPX document.
type ParseError struct {
	Path   string
	Line   int
	Reason string
	Cause  error
}

func (e *ParseError) Error() string {
	parts := []string{ErrParse.Error()}
	if path := strings.TrimSpace(e.Path); path != "" {
		parts = append(parts, path)
	}
	if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d", e.Line))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}
	return strings.Join(parts, "; ")
}

func (e *ParseError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrParse}
	}
	return []error{ErrParse, e.Cause}
}
