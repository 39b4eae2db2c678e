package ds

// Queue is a FIFO queue. Items pushed while draining are returned after
// every item that was already queued.
type Queue[T any] struct {
	slice []T
	head  int
}

func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{
		slice: make([]T, 0),
	}
}

func (r *Queue[T]) Len() int {
	return len(r.slice) - r.head
}

func (r *Queue[T]) Push(ts ...T) {
	r.slice = append(r.slice, ts...)
}

func (r *Queue[T]) Pop() (T, bool) {
	var zero T
	if r.Len() == 0 {
		return zero, false
	}
	first := r.slice[r.head]
	r.slice[r.head] = zero
	r.head++
	if r.head == len(r.slice) {
		r.slice = r.slice[:0]
		r.head = 0
	}
	return first, true
}
