package tokenizer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTable reports malformed or incomplete rank data.
	ErrInvalidTable = errors.New("invalid rank table")
	// ErrInvalidFormat reports input that is not valid UTF-8 text.
	ErrInvalidFormat = errors.New("stream did not contain valid UTF-8")
)

// DisallowedSpecialTokenError is returned when input contains a special token literal
// that the caller did not allow.
type DisallowedSpecialTokenError struct {
	Literal string
}

func (e *DisallowedSpecialTokenError) Error() string {
	return fmt.Sprintf("disallowed special token %s in input", e.Literal)
}
