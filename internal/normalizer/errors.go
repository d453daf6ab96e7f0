package normalizer

import (
	"errors"
	"fmt"
)

// Migration errors.
var (
	ErrMalformedDimension = errors.New("malformed dimension")
	ErrMissingBlocksField = errors.New("missing or invalid blocks field")
	ErrMissingStepsField  = errors.New("missing or invalid steps field")
	ErrInvalidDocument    = errors.New("invalid document: expected a JSON object")
	ErrInvalidBlock       = errors.New("invalid block: expected a JSON object")
)

// MalformedDimensionError reports a width or height that is not a base-10 integer.
type MalformedDimensionError struct {
	BlockID string
	Field   string
	Raw     string
}

func (e *MalformedDimensionError) Error() string {
	return fmt.Sprintf("%s: block %q field %q has value %q", ErrMalformedDimension, e.BlockID, e.Field, e.Raw)
}

// Unwrap allows errors.Is(err, ErrMalformedDimension).
func (e *MalformedDimensionError) Unwrap() error {
	return ErrMalformedDimension
}
