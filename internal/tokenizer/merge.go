package tokenizer

import (
	"github.com/tokbudget/internal/utils"
)

// Merge reduces one ordinary piece to token ids by repeatedly merging the adjacent symbol pair with the
// lowest rank, leftmost first on ties, until no adjacent pair has a rank.
func (t *RankTable) Merge(piece []byte) []int {
	return t.merge(string(piece))
}

func (t *RankTable) merge(piece string) []int {
	n := len(piece)
	switch n {
	case 0:
		return nil
	case 1:
		return []int{t.byteRank[piece[0]]}
	}

	// doubly linked-list over symbol start offsets; symbol i spans piece[i:next[i]]
	prev := make([]int, n)
	next := make([]int, n)
	for i := 0; i < n; i++ {
		prev[i] = i - 1
		next[i] = i + 1
	}

	// per-slot versioning to invalidate queued candidates
	liveVersion := make([]int, n)

	h := utils.NewMergeHeap()

	pushIfMergeable := func(i int) {
		if i < 0 {
			return
		}
		j := next[i]
		if j >= n {
			return
		}

		if rank, ok := t.ranks[piece[i:next[j]]]; ok {
			h.Push(utils.MergeCand{
				Rank: rank,
				Pos:  i,
				VerL: liveVersion[i],
				VerR: liveVersion[j],
			})
		}
	}

	for i := 0; i < n-1; i++ {
		pushIfMergeable(i)
	}

	for {
		c, ok := h.Pop()
		if !ok {
			break
		}

		i := c.Pos
		j := next[i]
		if j >= n {
			continue // no right neighbour anymore
		}

		// stale entry since at least one side changed after it was queued
		if liveVersion[i] != c.VerL || liveVersion[j] != c.VerR {
			continue
		}

		// collapse j into slot i; the left slot never dies
		nj := next[j]
		next[i] = nj
		if nj < n {
			prev[nj] = i
		}

		liveVersion[i]++
		liveVersion[j]++

		pushIfMergeable(prev[i])
		pushIfMergeable(i)
	}

	out := make([]int, 0, n)
	for i := 0; i < n; i = next[i] {
		// every merged symbol was looked up before merging, so this always hits
		out = append(out, t.ranks[piece[i:next[i]]])
	}

	return out
}
