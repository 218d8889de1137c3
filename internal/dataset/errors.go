package dataset

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat indicates a file extension no registered format accepts.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// LoadError reports a source that could not be read or decoded.
type LoadError struct {
	Source Source
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source.Label(), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// NoDataError indicates that no candidate source produced a table.
type NoDataError struct {
	Failures []*LoadError
}

// NoDataPrompt is shown when nothing could be loaded.
const NoDataPrompt = "No data loaded. Put the file next to this app, pass a full path, or upload it."

func (e *NoDataError) Error() string {
	if e == nil || len(e.Failures) == 0 {
		return "no data loaded"
	}
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return "no data loaded (" + strings.Join(parts, "; ") + ")"
}
