package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat indicates no backend recognizes the declared or
// detected type. Recoverable by the caller (skip the file).
var ErrUnsupportedFormat = errors.New("unsupported format")

// Attempt records one extraction backend try. A nil Err with empty Text
// means the backend ran but produced nothing usable.
type Attempt struct {
	Backend string
	Err     error
}

// ExtractionError means a backend recognized the type but failed. All
// attempted backends' errors are carried, never only the last one.
type ExtractionError struct {
	Format   string
	Attempts []Attempt
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != nil {
			parts = append(parts, fmt.Sprintf("%s: %v", a.Backend, a.Err))
		} else {
			parts = append(parts, fmt.Sprintf("%s: empty output", a.Backend))
		}
	}
	return fmt.Sprintf("extract %s: all backends failed: %s", e.Format, strings.Join(parts, "; "))
}
