package tokenizer

import (
	"fmt"
	"sort"
)

// Entry is one line of a rank file: a byte sequence and its merge rank.
type Entry struct {
	Bytes []byte
	Rank  int
}

// RankTable holds immutable vocabulary data derived from a tiktoken-style rank file and is safe for concurrent use
// once Build returns.
// Invariants we maintain:
//   - ranks[string(b)] is the merge rank of byte sequence b, and doubles as its token ID.
//   - For every byte b in [0..255], byteRank[b] gives a valid base token ID.
//   - decoder[id] is the exact byte sequence for ordinary token ID 'id'.
//   - No special token ID is also an ordinary token ID.
type RankTable struct {
	ranks map[string]int
	// seed for single-byte pieces; every possible byte 0..255 must have a mapping
	byteRank [256]int
	// for decoding, key = token id, value is byte sequence
	decoder map[int][]byte

	specials map[string]int
	// specialDec[id] is the literal a shared special id decodes to
	specialDec map[int]string
	// literals sorted longest first so the segmenter prefers the longest match
	specialLiterals []string

	maxRank         int
	maxTokenByteLen int
}

// Build validates raw rank entries and special tokens and returns a read-only table.
// Every failure wraps ErrInvalidTable; a table is never partially usable.
func Build(entries []Entry, specials map[string]int) (*RankTable, error) {
	t := &RankTable{
		ranks:      make(map[string]int, len(entries)),
		decoder:    make(map[int][]byte, len(entries)),
		specials:   make(map[string]int, len(specials)),
		specialDec: make(map[int]string, len(specials)),
		maxRank:    -1,
	}

	for _, e := range entries {
		if len(e.Bytes) == 0 {
			return nil, fmt.Errorf("%w: empty byte sequence for rank %d", ErrInvalidTable, e.Rank)
		}
		if e.Rank < 0 {
			return nil, fmt.Errorf("%w: negative rank %d for %q", ErrInvalidTable, e.Rank, e.Bytes)
		}

		k := string(e.Bytes)
		if prev, exists := t.ranks[k]; exists {
			if prev != e.Rank {
				return nil, fmt.Errorf("%w: byte sequence %q has ranks %d and %d", ErrInvalidTable, e.Bytes, prev, e.Rank)
			}
			continue
		}
		if other, exists := t.decoder[e.Rank]; exists {
			return nil, fmt.Errorf("%w: rank %d shared by %q and %q", ErrInvalidTable, e.Rank, other, e.Bytes)
		}

		t.ranks[k] = e.Rank
		t.decoder[e.Rank] = []byte(k)
		if e.Rank > t.maxRank {
			t.maxRank = e.Rank
		}
		if len(k) > t.maxTokenByteLen {
			t.maxTokenByteLen = len(k)
		}
	}

	// validate all single-byte slots
	for b := 0; b < 256; b++ {
		rank, ok := t.ranks[string([]byte{byte(b)})]
		if !ok {
			return nil, fmt.Errorf("%w: missing base entry for byte 0x%02x", ErrInvalidTable, b)
		}
		t.byteRank[b] = rank
	}

	for lit, id := range specials {
		if lit == "" {
			return nil, fmt.Errorf("%w: empty special token literal", ErrInvalidTable)
		}
		if id < 0 {
			return nil, fmt.Errorf("%w: negative id %d for special token %s", ErrInvalidTable, id, lit)
		}
		if ordinary, exists := t.decoder[id]; exists {
			return nil, fmt.Errorf("%w: special token %s id %d collides with ordinary token %q", ErrInvalidTable, lit, id, ordinary)
		}
		t.specials[lit] = id
		t.specialLiterals = append(t.specialLiterals, lit)
	}

	sort.Slice(t.specialLiterals, func(i, j int) bool {
		a, b := t.specialLiterals[i], t.specialLiterals[j]
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	// several literals may share one id; decode to the lexically smallest
	for lit, id := range t.specials {
		if cur, ok := t.specialDec[id]; !ok || lit < cur {
			t.specialDec[id] = lit
		}
	}

	return t, nil
}

// RankOf returns the merge rank of b.
func (t *RankTable) RankOf(b []byte) (int, bool) {
	rank, ok := t.ranks[string(b)]
	return rank, ok
}

// IDOfSpecial returns the reserved id of a special token literal.
func (t *RankTable) IDOfSpecial(literal string) (int, bool) {
	id, ok := t.specials[literal]
	return id, ok
}

// SpecialLiterals returns the registered special token literals, longest first.
func (t *RankTable) SpecialLiterals() []string {
	return append([]string(nil), t.specialLiterals...)
}

// AllSpecials returns an allow-set naming every registered special token.
func (t *RankTable) AllSpecials() SpecialSet {
	return NewSpecialSet(t.specialLiterals...)
}

// Len is the number of ordinary tokens.
func (t *RankTable) Len() int {
	return len(t.ranks)
}

// MaxRank is the largest ordinary rank, or -1 for an empty table.
func (t *RankTable) MaxRank() int {
	return t.maxRank
}

// MaxTokenByteLen is the length of the longest ordinary byte sequence.
func (t *RankTable) MaxTokenByteLen() int {
	return t.maxTokenByteLen
}

// SpecialSet names the special tokens a caller allows in its input.
type SpecialSet map[string]struct{}

func NewSpecialSet(literals ...string) SpecialSet {
	s := make(SpecialSet, len(literals))
	for _, lit := range literals {
		s[lit] = struct{}{}
	}
	return s
}

func (s SpecialSet) Contains(literal string) bool {
	_, ok := s[literal]
	return ok
}
