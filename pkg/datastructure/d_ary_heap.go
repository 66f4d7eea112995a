package datastructure

import (
	"errors"
)

var ErrEmptyHeap = errors.New("heap is empty")

// PriorityQueueNode is one entry of the heap. seq records insertion order and breaks rank ties (FIFO),
// which gives every run over the same input the same pop order.
type PriorityQueueNode[T any] struct {
	rank float64
	seq  uint64
	item T
}

func (p PriorityQueueNode[T]) GetItem() T {
	return p.item
}

func (p PriorityQueueNode[T]) GetRank() float64 {
	return p.rank
}

// MinHeap d-ary min priority queue. Entries are never updated in place: callers push a fresh entry and
// skip stale ones when they are popped.
type MinHeap[T any] struct {
	heap []PriorityQueueNode[T]
	d    int
	seq  uint64
}

func NewBinaryHeap[T any]() *MinHeap[T] {
	return NewdAryHeap[T](2)
}

func NewFourAryHeap[T any]() *MinHeap[T] {
	return NewdAryHeap[T](4)
}

func NewdAryHeap[T any](d int) *MinHeap[T] {
	if d < 2 {
		d = 2
	}
	return &MinHeap[T]{
		heap: make([]PriorityQueueNode[T], 0),
		d:    d,
	}
}

func (h *MinHeap[T]) Preallocate(maxSearchSize int) {
	if cap(h.heap) >= maxSearchSize {
		h.heap = h.heap[:0]
		return
	}
	h.heap = make([]PriorityQueueNode[T], 0, maxSearchSize)
}

func (h *MinHeap[T]) parent(index int) int {
	return (index - 1) / h.d
}

func (h *MinHeap[T]) less(i, j int) bool {
	if h.heap[i].rank != h.heap[j].rank {
		return h.heap[i].rank < h.heap[j].rank
	}
	return h.heap[i].seq < h.heap[j].seq
}

// heapifyUp moves index towards the root while it is smaller than its parent. O(log_d N).
func (h *MinHeap[T]) heapifyUp(index int) {
	for index != 0 && h.less(index, h.parent(index)) {
		p := h.parent(index)
		h.swap(index, p)
		index = p
	}
}

// heapifyDown moves index towards the leaves while one of its children is smaller. O(d log_d N).
func (h *MinHeap[T]) heapifyDown(index int) {
	for {
		leftMostChild := index*h.d + 1
		if leftMostChild >= len(h.heap) {
			return
		}

		sentinel := leftMostChild + h.d
		if sentinel > len(h.heap) {
			sentinel = len(h.heap)
		}

		smallest := leftMostChild
		for i := leftMostChild + 1; i < sentinel; i++ {
			if h.less(i, smallest) {
				smallest = i
			}
		}

		if !h.less(smallest, index) {
			return
		}
		h.swap(index, smallest)
		index = smallest
	}
}

func (h *MinHeap[T]) swap(i, j int) {
	h.heap[i], h.heap[j] = h.heap[j], h.heap[i]
}

func (h *MinHeap[T]) IsEmpty() bool {
	return len(h.heap) == 0
}

func (h *MinHeap[T]) Size() int {
	return len(h.heap)
}

// Clear empties the heap but keeps its backing array.
func (h *MinHeap[T]) Clear() {
	h.heap = h.heap[:0]
	h.seq = 0
}

func (h *MinHeap[T]) GetMin() (PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return PriorityQueueNode[T]{}, ErrEmptyHeap
	}
	return h.heap[0], nil
}

func (h *MinHeap[T]) Insert(rank float64, item T) {
	h.heap = append(h.heap, PriorityQueueNode[T]{rank: rank, seq: h.seq, item: item})
	h.seq++
	h.heapifyUp(len(h.heap) - 1)
}

// ExtractMin pops the entry with the smallest rank. O(d log_d N).
func (h *MinHeap[T]) ExtractMin() (PriorityQueueNode[T], error) {
	if h.IsEmpty() {
		return PriorityQueueNode[T]{}, ErrEmptyHeap
	}
	root := h.heap[0]

	last := len(h.heap) - 1
	h.swap(0, last)
	h.heap = h.heap[:last]
	if len(h.heap) > 0 {
		h.heapifyDown(0)
	}

	return root, nil
}
