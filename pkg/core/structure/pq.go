package structure

import "container/heap"

// PriorityQueue is a binary min-heap ordered by a caller supplied comparator
// (negative when a sorts before b).
type PriorityQueue[T any] struct {
	h *items[T]
}

func NewPriorityQueue[T any](cmp func(a, b T) int) *PriorityQueue[T] {
	return &PriorityQueue[T]{h: &items[T]{cmp: cmp}}
}

// NewPriorityQueueCap preallocates room for n items.
func NewPriorityQueueCap[T any](cmp func(a, b T) int, n int) *PriorityQueue[T] {
	return &PriorityQueue[T]{h: &items[T]{cmp: cmp, data: make([]T, 0, n)}}
}

func (pq *PriorityQueue[T]) Push(item T) {
	heap.Push(pq.h, item)
}

// PopMin removes and returns the smallest item.
func (pq *PriorityQueue[T]) PopMin() (T, bool) {
	if pq.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(pq.h).(T), true
}

func (pq *PriorityQueue[T]) PeekMin() (T, bool) {
	if pq.h.Len() == 0 {
		var zero T
		return zero, false
	}
	return pq.h.data[0], true
}

// ReplaceMin swaps the minimum for item and restores heap order; it is a
// cheaper PopMin followed by Push.
func (pq *PriorityQueue[T]) ReplaceMin(item T) {
	if pq.h.Len() == 0 {
		pq.Push(item)
		return
	}
	pq.h.data[0] = item
	heap.Fix(pq.h, 0)
}

func (pq *PriorityQueue[T]) IsEmpty() bool { return pq.h.Len() == 0 }

func (pq *PriorityQueue[T]) Len() int { return pq.h.Len() }

// Drain empties the queue in ascending order.
func (pq *PriorityQueue[T]) Drain() []T {
	out := make([]T, 0, pq.h.Len())
	for !pq.IsEmpty() {
		v, _ := pq.PopMin()
		out = append(out, v)
	}
	return out
}

type items[T any] struct {
	data []T
	cmp  func(a, b T) int
}

func (h items[T]) Len() int           { return len(h.data) }
func (h items[T]) Less(i, j int) bool { return h.cmp(h.data[i], h.data[j]) < 0 }
func (h items[T]) Swap(i, j int)      { h.data[i], h.data[j] = h.data[j], h.data[i] }

func (h *items[T]) Push(x any) {
	h.data = append(h.data, x.(T))
}

func (h *items[T]) Pop() any {
	old := h.data
	n := len(old)
	item := old[n-1]
	var zero T
	old[n-1] = zero // 释放引用
	h.data = old[:n-1]
	return item
}
