package tokenizer

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"
)

// Encoder turns text into cl100k-compatible token ids. It holds no mutable state, so one Encoder may serve any
// number of goroutines.
type Encoder struct {
	table *RankTable
	seg   *Segmenter
}

// NewEncoder builds an encoder over table using the given pre-token grammar.
func NewEncoder(table *RankTable, pattern string) (*Encoder, error) {
	seg, err := NewSegmenter(pattern, table)
	if err != nil {
		return nil, err
	}
	return &Encoder{table: table, seg: seg}, nil
}

// NewCL100KEncoder builds an encoder with the cl100k grammar.
func NewCL100KEncoder(table *RankTable) (*Encoder, error) {
	return NewEncoder(table, CL100KPattern)
}

func (e *Encoder) Table() *RankTable {
	return e.table
}

// Encode returns the token ids of text in input order. A special token literal that is not in allowed fails
// the call with *DisallowedSpecialTokenError.
func (e *Encoder) Encode(text string, allowed SpecialSet) ([]int, error) {
	return e.EncodeContext(context.Background(), text, allowed)
}

// EncodeContext is Encode with cancellation checked between pieces.
func (e *Encoder) EncodeContext(ctx context.Context, text string, allowed SpecialSet) ([]int, error) {
	var out []int
	for p := range e.seg.Segment(text) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if p.Special {
			if !allowed.Contains(p.Text) {
				return nil, &DisallowedSpecialTokenError{Literal: p.Text}
			}
			id, _ := e.table.IDOfSpecial(p.Text)
			out = append(out, id)
			continue
		}

		// short circuit if the whole piece is a token
		if id, ok := e.table.ranks[p.Text]; ok {
			out = append(out, id)
			continue
		}
		out = append(out, e.table.merge(p.Text)...)
	}
	return out, nil
}

// Count returns the number of tokens Encode would produce.
func (e *Encoder) Count(text string, allowed SpecialSet) (int, error) {
	ids, err := e.Encode(text, allowed)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ReadText reads r fully and returns its content, failing with ErrInvalidFormat unless it is valid UTF-8.
func ReadText(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidFormat
	}
	return string(data), nil
}

// CountReader reads r to the end and counts its tokens.
func (e *Encoder) CountReader(r io.Reader, allowed SpecialSet) (int, error) {
	text, err := ReadText(r)
	if err != nil {
		return 0, err
	}
	return e.Count(text, allowed)
}
