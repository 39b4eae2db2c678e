package ds

type Stack[T any] struct {
	slice []T
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{
		slice: make([]T, 0),
	}
}

func (r *Stack[T]) Len() int {
	return len(r.slice)
}

func (r *Stack[T]) Push(t T) T {
	r.slice = append(r.slice, t)
	return t
}

// Pop removes the last item. The second return value is false when the
// stack was already empty.
func (r *Stack[T]) Pop() (T, bool) {
	var zero T
	if r.Len() == 0 {
		return zero, false
	}
	last := r.slice[r.Len()-1]
	r.slice[r.Len()-1] = zero
	r.slice = r.slice[:r.Len()-1]
	return last, true
}

func (r *Stack[T]) Peek() (T, bool) {
	if r.Len() == 0 {
		var zero T
		return zero, false
	}
	return r.slice[r.Len()-1], true
}

// Contains reports whether any item satisfies match, searching from the top.
func (r *Stack[T]) Contains(match func(t T) bool) bool {
	for i := r.Len() - 1; i >= 0; i-- {
		if match(r.slice[i]) {
			return true
		}
	}
	return false
}

// Values returns the items from the bottom to the top.
func (r *Stack[T]) Values() []T {
	values := make([]T, r.Len())
	copy(values, r.slice)
	return values
}
