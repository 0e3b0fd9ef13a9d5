package core

import (
	"errors"
	"fmt"
)

// DefaultMaxInputSize is the largest document, in bytes, accepted by the
// public parse and transpile entry points.
const DefaultMaxInputSize = 1 << 20

// ErrInputTooLarge is matched (via errors.Is) by every InputTooLargeError.
var ErrInputTooLarge = errors.New("input too large")

// InputTooLargeError reports input rejected by the size guard.
type InputTooLargeError struct {
	Size  int
	Limit int
}

func (e *InputTooLargeError) Error() string {
	return fmt.Sprintf("input too large: %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}

// Is makes errors.Is(err, ErrInputTooLarge) succeed.
func (e *InputTooLargeError) Is(target error) bool {
	return target == ErrInputTooLarge
}

// CheckInputSize returns an *InputTooLargeError when input exceeds
// DefaultMaxInputSize.
func CheckInputSize(input string) error {
	return CheckInputSizeLimit(input, DefaultMaxInputSize)
}

// CheckInputSizeLimit is CheckInputSize with an explicit limit.
// A non-positive limit falls back to DefaultMaxInputSize.
func CheckInputSizeLimit(input string, limit int) error {
	if limit <= 0 {
		limit = DefaultMaxInputSize
	}
	if len(input) > limit {
		return &InputTooLargeError{Size: len(input), Limit: limit}
	}
	return nil
}
