package batch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBatchFailure is returned when at least one file in a batch failed.
var ErrBatchFailure = errors.New("batch failed")

// Error lists the failed jobs of a batch.
type Error struct {
	Total  int
	Failed []Job
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("%s: %d of %d files failed", ErrBatchFailure, len(e.Failed), e.Total)}
	for _, job := range e.Failed {
		parts = append(parts, fmt.Sprintf("%s: %v", job.Source, job.Err))
	}
	return strings.Join(parts, "\n")
}

// Unwrap exposes the sentinel and every per-file cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed)+1)
	errs = append(errs, ErrBatchFailure)
	for _, job := range e.Failed {
		if job.Err != nil {
			errs = append(errs, job.Err)
		}
	}
	return errs
}
