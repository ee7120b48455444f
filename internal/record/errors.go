package record

import "fmt"

// UnbufferedContentError is returned when a file whose content is not
// materialized is handed to the batch model.
type UnbufferedContentError struct {
	Relative string
}

func (e *UnbufferedContentError) Error() string {
	return "batch processing needs buffered files: " + e.Relative
}

// ConversionError reports a field that could not be converted between
// the two file models.
type ConversionError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: invalid %s: %v", e.Path, e.Field, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
