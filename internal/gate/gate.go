package gate

import (
	"fmt"
)

// Gate enforces a token budget on computed counts.
type Gate struct {
	Limit int
}

func New(limit int) *Gate {
	return &Gate{Limit: limit}
}

// TokenLimitExceededError reports a count above the budget. It is a policy outcome, not a tokenizer failure.
type TokenLimitExceededError struct {
	Count int
	Limit int
}

func (e *TokenLimitExceededError) Error() string {
	return fmt.Sprintf("token count %d exceeds token limit of %d", e.Count, e.Limit)
}

// Check accepts count when it is within the limit.
func (g *Gate) Check(count int) error {
	if count > g.Limit {
		return &TokenLimitExceededError{Count: count, Limit: g.Limit}
	}
	return nil
}
