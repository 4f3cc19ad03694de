package sf

import "golang.org/x/sync/singleflight"

type Singleflight[T any] struct {
	group singleflight.Group
}

func New[T any]() *Singleflight[T] { return &Singleflight[T]{} }

// Do runs fn unless a call for key is already in flight, in which case it
// waits for that call and returns its result.
func (s *Singleflight[T]) Do(key string, fn func() (*T, error)) (*T, error) {
	v, err, _ := s.group.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// Forget makes the next Do for key call fn even if a call is in flight.
func (s *Singleflight[T]) Forget(key string) { s.group.Forget(key) }
