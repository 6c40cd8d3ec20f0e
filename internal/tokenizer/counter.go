package tokenizer

import (
	"math"
	"strings"
	"unicode/utf8"
)

// TokenCounter is the common capability of the counting strategies.
type TokenCounter interface {
	// CountTokens returns the number of tokens in text.
	CountTokens(text string) (int, error)

	// Name returns the strategy name.
	Name() string
}

// TokenEncoder is implemented by counters that can also return the token ids they counted.
type TokenEncoder interface {
	EncodeTokens(text string) ([]int, error)
}

var (
	_ TokenEncoder = (*ExactBpeCounter)(nil)
	_ TokenCounter = (*ExactBpeCounter)(nil)
	_ TokenCounter = (*ApproximateCounter)(nil)
)

// ExactBpeCounter counts by running the full byte-pair encoder.
type ExactBpeCounter struct {
	enc     *Encoder
	allowed SpecialSet
}

func NewExactBpeCounter(enc *Encoder, allowed SpecialSet) *ExactBpeCounter {
	return &ExactBpeCounter{enc: enc, allowed: allowed}
}

func (c *ExactBpeCounter) CountTokens(text string) (int, error) {
	return c.enc.Count(text, c.allowed)
}

func (c *ExactBpeCounter) EncodeTokens(text string) ([]int, error) {
	return c.enc.Encode(text, c.allowed)
}

func (c *ExactBpeCounter) Name() string {
	return "exact"
}

// ApproximateCounter estimates without a vocabulary: one token is roughly 4 characters or 0.75 words
// of English, and the estimate is the mean of the two.
type ApproximateCounter struct{}

func NewApproximateCounter() *ApproximateCounter {
	return &ApproximateCounter{}
}

func (c *ApproximateCounter) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	byChars := float64(utf8.RuneCountInString(text)) / 4.0
	byWords := float64(len(strings.Fields(text))) / 0.75
	estimated := int(math.Round((byChars + byWords) / 2))

	if estimated == 0 {
		estimated = 1
	}
	return estimated, nil
}

func (c *ApproximateCounter) Name() string {
	return "approximate"
}
