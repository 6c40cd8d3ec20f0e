package tokenizer

import (
	"fmt"
)

// Decode a given sequence of tokens to a sequence of bytes
func (t *RankTable) Decode(tokens []int) ([]byte, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	total := 0
	for _, id := range tokens {
		if b, ok := t.decoder[id]; ok {
			total += len(b)
			continue
		}
		lit, ok := t.specialDec[id]
		if !ok {
			return nil, fmt.Errorf("unknown token id %d while decoding", id)
		}
		total += len(lit)
	}

	out := make([]byte, 0, total)
	for _, id := range tokens {
		if b, ok := t.decoder[id]; ok {
			out = append(out, b...)
			continue
		}
		out = append(out, t.specialDec[id]...)
	}

	return out, nil
}
