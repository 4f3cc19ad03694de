package cache

import "time"

type PutOptions struct {
	// TTL of the entry. Defaults to LRUOpts.TTL; zero never expires.
	TTL time.Duration
}

type PutOption func(*PutOptions)

func WithTTL(ttl time.Duration) PutOption { return func(o *PutOptions) { o.TTL = ttl } }

type Cache interface {
	Get(key string) (any, bool)
	Put(key string, val any, opts ...PutOption)
	Delete(key string)
}

// TypedCache views a Cache as holding values of T only. Values of other
// types read as misses.
type TypedCache[T any] struct {
	c Cache
}

func NewTyped[T any](c Cache) TypedCache[T] { return TypedCache[T]{c: c} }

func (t TypedCache[T]) Get(key string) (T, bool) {
	v, ok := t.c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

func (t TypedCache[T]) Put(key string, val T, opts ...PutOption) { t.c.Put(key, val, opts...) }
func (t TypedCache[T]) Delete(key string)                        { t.c.Delete(key) }
