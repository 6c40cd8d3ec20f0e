package loader

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/tokbudget/internal/tokenizer"
)

// ParseTiktoken reads a rank file: one "<base64-bytes> <decimal-rank>" entry per line. Blank lines are skipped.
func ParseTiktoken(r io.Reader) ([]tokenizer.Entry, error) {
	var entries []tokenizer.Entry

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 fields, got %d", lineNo, len(fields))
		}

		token, err := base64.StdEncoding.DecodeString(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: decode token: %w", lineNo, err)
		}

		rank, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: parse rank: %w", lineNo, err)
		}

		entries = append(entries, tokenizer.Entry{Bytes: token, Rank: rank})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rank file: %w", err)
	}

	return entries, nil
}

// fromRankMap converts a tiktoken-go rank map, keyed by raw token bytes, into entries ordered by rank.
func fromRankMap(ranks map[string]int) []tokenizer.Entry {
	entries := make([]tokenizer.Entry, 0, len(ranks))
	for token, rank := range ranks {
		entries = append(entries, tokenizer.Entry{Bytes: []byte(token), Rank: rank})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Rank < entries[j].Rank
	})
	return entries
}
