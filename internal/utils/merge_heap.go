package utils

import (
	"github.com/emirpasic/gods/v2/trees/binaryheap"
)

// MergeCand is one candidate merge of two adjacent symbols inside a piece.
type MergeCand struct {
	Rank int // lower wins
	Pos  int // byte offset of the left symbol; lower wins on tie to enforce leftmost
	VerL int
	VerR int
}

// MergeHeap pops candidates in (Rank, Pos) order.
type MergeHeap struct {
	heap *binaryheap.Heap[MergeCand]
}

func compareCand(a, b MergeCand) int {
	switch {
	case a.Rank < b.Rank:
		return -1
	case a.Rank > b.Rank:
		return 1
	case a.Pos < b.Pos:
		return -1
	case a.Pos > b.Pos:
		return 1
	}
	return 0
}

func NewMergeHeap() *MergeHeap {
	return &MergeHeap{heap: binaryheap.NewWith(compareCand)}
}

func (h *MergeHeap) Len() int {
	return h.heap.Size()
}

func (h *MergeHeap) Push(c MergeCand) {
	h.heap.Push(c)
}

func (h *MergeHeap) Pop() (MergeCand, bool) {
	return h.heap.Pop()
}
