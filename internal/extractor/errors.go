package extractor

import (
	"errors"
	"fmt"
)

// Extraction failure kinds. Match them with errors.Is.
var (
	ErrSelectorNotFound = errors.New("selector not found")
	ErrPathNotFound     = errors.New("json path not found")
	ErrNotNumeric       = errors.New("value is not numeric")
	ErrInvalidDocument  = errors.New("invalid document")
	ErrInvalidSelector  = errors.New("invalid selector")
)

// ExtractionError reports why a comparable could not be derived from content.
type ExtractionError struct {
	Kind   error
	Detail string
}

func (e *ExtractionError) Error() string {
	if e.Detail == "" {
		return "extraction failed: " + e.Kind.Error()
	}
	return fmt.Sprintf("extraction failed: %s: %s", e.Kind, e.Detail)
}

func (e *ExtractionError) Is(target error) bool {
	return target == e.Kind
}

func newExtractionError(kind error, format string, args ...interface{}) *ExtractionError {
	return &ExtractionError{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}
