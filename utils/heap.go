package utils

import "golang.org/x/exp/constraints"

// MaxHeap pops the greatest element first.
type MaxHeap[T constraints.Ordered] struct {
	buf []T
}

func (h *MaxHeap[T]) Len() int {
	return len(h.buf)
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *MaxHeap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	h.up(h.Len() - 1)
}

// Peek returns the maximum without removing it. The heap must not be empty.
func (h *MaxHeap[T]) Peek() T {
	return h.buf[0]
}

// Pop removes and returns the maximum element.
// The complexity is O(log n) where n = h.Len().
func (h *MaxHeap[T]) Pop() (max T) {
	max = h.buf[0]
	n := h.Len() - 1
	h.buf[0], h.buf[n] = h.buf[n], h.buf[0]
	h.down(0, n)
	h.buf = h.buf[0:n]
	return
}

func (h *MaxHeap[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !(h.buf[i] < h.buf[j]) {
			break
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		j = i
	}
}

func (h *MaxHeap[T]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.buf[j1] < h.buf[j2] {
			j = j2 // right child
		}
		if !(h.buf[i] < h.buf[j]) {
			break
		}
		h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
		i = j
	}
	return i > i0
}
