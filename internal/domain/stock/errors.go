package stock

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedFormat is wrapped by SourceFormatError when the container type is unknown.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SchemaError reports required columns absent from the source.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("stock data is missing columns: %s", strings.Join(e.Missing, ", "))
}

// SourceFormatError reports a source that could not be read or decoded at all.
type SourceFormatError struct {
	Format string
	Err    error
}

func (e *SourceFormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("failed to load file: %v", e.Err)
	}
	return fmt.Sprintf("failed to load %s file: %v", e.Format, e.Err)
}

func (e *SourceFormatError) Unwrap() error { return e.Err }
