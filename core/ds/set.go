// Package ds provides small generic data structures for aggregate state.
package ds

// Set keeps insertion order so replayed aggregates list their members
// deterministically.
type Set[T comparable] struct {
	items map[T]struct{}
	order []T
}

func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]struct{}, len(items)), order: make([]T, 0, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add is a no-op when v is already present.
func (s *Set[T]) Add(v T) {
	if s.Contains(v) {
		return
	}
	s.items[v] = struct{}{}
	s.order = append(s.order, v)
}

func (s *Set[T]) Remove(vs ...T) {
	removed := false
	for _, v := range vs {
		if s.Contains(v) {
			delete(s.items, v)
			removed = true
		}
	}
	if !removed {
		return
	}
	order := s.order[:0]
	for _, v := range s.order {
		if s.Contains(v) {
			order = append(order, v)
		}
	}
	clear(s.order[len(order):])
	s.order = order
}

func (s *Set[T]) Contains(v T) bool {
	_, ok := s.items[v]
	return ok
}

func (s *Set[T]) Len() int { return len(s.items) }

// Values returns a copy in insertion order.
func (s *Set[T]) Values() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}
