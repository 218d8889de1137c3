package analysis

import "fmt"

// MissingColumnError reports a view that cannot be computed because a column
// it needs is absent. Only that view is skipped.
type MissingColumnError struct {
	View   string
	Column string
}

func (e *MissingColumnError) Error() string {
	if e.View == "" {
		return fmt.Sprintf("missing column %q", e.Column)
	}
	return fmt.Sprintf("%s: missing column %q", e.View, e.Column)
}
