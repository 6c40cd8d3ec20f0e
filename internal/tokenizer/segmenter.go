package tokenizer

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// Piece is one contiguous substring carved out of the input. Byte-pair merges never cross a piece boundary.
type Piece struct {
	Text    string
	Special bool
}

// Segmenter splits text into pieces: special token literals known to the table come out as single special
// pieces, everything between them is split by the pre-token grammar.
type Segmenter struct {
	re       *regexp2.Regexp
	specials []string
}

// NewSegmenter compiles pattern and takes the special token literals from table.
func NewSegmenter(pattern string, table *RankTable) (*Segmenter, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compile pre-token pattern: %w", err)
	}
	return &Segmenter{
		re:       re,
		specials: table.SpecialLiterals(),
	}, nil
}

// Segment lazily yields the pieces of text in input order. Special pieces are emitted regardless of any
// allow-set; the encoder decides what to do with them.
func (s *Segmenter) Segment(text string) iter.Seq[Piece] {
	return func(yield func(Piece) bool) {
		// next[i] caches where specials[i] next occurs at or after the cursor
		next := make([]int, len(s.specials))
		for i := range next {
			next[i] = unsearched
		}

		pos := 0
		for pos < len(text) {
			start, lit := s.nextSpecial(text, pos, next)
			end := len(text)
			if start >= 0 {
				end = start
			}

			if !s.split(text[pos:end], yield) {
				return
			}
			if start < 0 {
				return
			}
			if !yield(Piece{Text: lit, Special: true}) {
				return
			}
			pos = start + len(lit)
		}
	}
}

const (
	absent     = -1
	unsearched = -2
)

// nextSpecial finds the earliest special literal in text at or after from; the longest literal wins at equal
// offsets. A literal is searched again only once from has passed its cached offset, so each literal scans
// the text once overall.
func (s *Segmenter) nextSpecial(text string, from int, next []int) (int, string) {
	start, found := -1, ""
	for i, lit := range s.specials {
		at := next[i]
		if at == absent {
			continue
		}
		if at < from {
			j := strings.Index(text[from:], lit)
			if j < 0 {
				next[i] = absent
				continue
			}
			at = from + j
			next[i] = at
		}
		// specials are sorted longest first, so strict < keeps the longest on ties
		if start < 0 || at < start {
			start, found = at, lit
		}
	}
	return start, found
}

// split applies the grammar to a span that contains no special literal.
func (s *Segmenter) split(text string, yield func(Piece) bool) bool {
	if text == "" {
		return true
	}

	runes, offsets := decodeRunes(text)
	pos := 0

	m, err := s.re.FindRunesMatch(runes)
	for m != nil && err == nil {
		if m.Index > pos {
			if !yield(Piece{Text: text[offsets[pos]:offsets[m.Index]]}) {
				return false
			}
		}

		end := m.Index + m.Length
		if !yield(Piece{Text: text[offsets[m.Index]:offsets[end]]}) {
			return false
		}
		pos = end

		m, err = s.re.FindNextMatch(m)
	}

	if pos < len(runes) {
		return yield(Piece{Text: text[offsets[pos]:]})
	}
	return true
}

// decodeRunes returns the runes of text and the byte offset of each rune, plus len(text) as a final
// sentinel. Invalid bytes decode to one utf8.RuneError each, so slicing text by offsets stays byte-exact.
func decodeRunes(text string) ([]rune, []int) {
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		runes = append(runes, r)
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))
	return runes, offsets
}
