package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLRU(t *testing.T, opts LRUOpts) (*LRU, *clock) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLRU(opts)
	l.now = c.now
	t.Cleanup(l.Close)
	return l, c
}

func TestLRU_Basic(t *testing.T) {
	l, _ := newTestLRU(t, LRUOpts{Size: 2})

	l.Put("a", 1)
	l.Put("b", 2)

	val, ok := l.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, val)

	l.Put("c", 3) // evicts "b", "a" was used last

	_, ok = l.Get("b")
	require.False(t, ok)
	val, ok = l.Get("c")
	require.True(t, ok)
	require.Equal(t, 3, val)
	require.Equal(t, 2, l.Len())
}

func TestLRU_Update(t *testing.T) {
	l, _ := newTestLRU(t, LRUOpts{Size: 2})

	l.Put("a", 1)
	l.Put("a", 2)

	val, ok := l.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, val)
	require.Equal(t, 1, l.Len())
}

func TestLRU_Delete(t *testing.T) {
	l, _ := newTestLRU(t, LRUOpts{Size: 2})

	l.Put("a", 1)
	l.Put("b", 2)
	l.Delete("a")
	l.Delete("nonexistent")

	_, ok := l.Get("a")
	require.False(t, ok)
	val, ok := l.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, val)
}

func TestLRU_TTL(t *testing.T) {
	l, c := newTestLRU(t, LRUOpts{Size: 2})

	l.Put("a", 1, WithTTL(50*time.Millisecond))
	l.Put("b", 2)

	_, ok := l.Get("a")
	require.True(t, ok)

	c.advance(60 * time.Millisecond)

	_, ok = l.Get("a")
	require.False(t, ok)
	_, ok = l.Get("b")
	require.True(t, ok)
	require.Equal(t, 1, l.Len())
}

func TestLRU_TTL_refreshedByPut(t *testing.T) {
	l, c := newTestLRU(t, LRUOpts{Size: 2})

	l.Put("a", 1, WithTTL(50*time.Millisecond))
	c.advance(30 * time.Millisecond)
	l.Put("a", 2, WithTTL(100*time.Millisecond))
	c.advance(30 * time.Millisecond)

	val, ok := l.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, val)
}

func TestLRU_defaultTTL(t *testing.T) {
	l, c := newTestLRU(t, LRUOpts{Size: 2, TTL: time.Second})

	l.Put("a", 1)
	c.advance(2 * time.Second)

	_, ok := l.Get("a")
	require.False(t, ok)
}

func TestLRU_Close(t *testing.T) {
	l := NewLRU(LRUOpts{Size: 2})
	l.Put("a", 1)
	l.Close()

	_, ok := l.Get("a")
	require.False(t, ok)
	l.Put("b", 2)
	l.Delete("a")
	require.Zero(t, l.Len())
}

func TestLRU_DefaultSize(t *testing.T) {
	l, _ := newTestLRU(t, LRUOpts{})

	for i := 0; i < 129; i++ {
		l.Put(fmt.Sprintf("k%d", i), i)
	}
	require.Equal(t, 128, l.Len())
	_, ok := l.Get("k0")
	require.False(t, ok)
	_, ok = l.Get("k128")
	require.True(t, ok)
}

func TestLRU_Concurrent(t *testing.T) {
	l := NewLRU(LRUOpts{Size: 100})
	defer l.Close()

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				l.Put("key", j)
				l.Get("key")
			}
		}()
	}
	wg.Wait()
}

func TestTyped(t *testing.T) {
	l, _ := newTestLRU(t, LRUOpts{Size: 4})
	tc := NewTyped[string](l)

	tc.Put("a", "x")
	v, ok := tc.Get("a")
	require.True(t, ok)
	require.Equal(t, "x", v)

	l.Put("b", 42)
	_, ok = tc.Get("b")
	require.False(t, ok)

	tc.Delete("a")
	_, ok = tc.Get("a")
	require.False(t, ok)
}
