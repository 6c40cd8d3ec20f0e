package tokbudget

import (
	"github.com/tokbudget/internal/tokenizer"
)

var (
	ErrInvalidTable  = tokenizer.ErrInvalidTable
	ErrInvalidFormat = tokenizer.ErrInvalidFormat
)

// DisallowedSpecialTokenError is returned when input holds a special token literal that was not allowed.
type DisallowedSpecialTokenError = tokenizer.DisallowedSpecialTokenError
