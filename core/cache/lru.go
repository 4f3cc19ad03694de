package cache

import (
	"container/list"
	"sync"
	"time"
)

type LRUOpts struct {
	// Size is the maximum number of entries. Defaults to 128.
	Size int
	// TTL applies to entries put without WithTTL. Zero never expires.
	TTL time.Duration
}

type entry struct {
	key       string
	val       any
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRU is an in-memory cache safe for concurrent use. After Close it holds
// nothing and ignores writes.
type LRU struct {
	mu     sync.Mutex
	size   int
	ttl    time.Duration
	ll     *list.List
	items  map[string]*list.Element
	closed bool
	now    func() time.Time
}

func NewLRU(opts LRUOpts) *LRU {
	if opts.Size <= 0 {
		opts.Size = 128
	}
	return &LRU{
		size:  opts.Size,
		ttl:   opts.TTL,
		ll:    list.New(),
		items: make(map[string]*list.Element, opts.Size),
		now:   time.Now,
	}
}

func (l *LRU) Get(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, false
	}
	ele, ok := l.items[key]
	if !ok {
		return nil, false
	}
	e := ele.Value.(*entry)
	if e.expired(l.now()) {
		l.remove(ele)
		return nil, false
	}
	l.ll.MoveToFront(ele)
	return e.val, true
}

func (l *LRU) Put(key string, val any, opts ...PutOption) {
	o := PutOptions{TTL: l.ttl}
	for _, opt := range opts {
		opt(&o)
	}
	var expiresAt time.Time
	if o.TTL > 0 {
		expiresAt = l.now().Add(o.TTL)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	if ele, ok := l.items[key]; ok {
		l.ll.MoveToFront(ele)
		e := ele.Value.(*entry)
		e.val, e.expiresAt = val, expiresAt
		return
	}
	l.items[key] = l.ll.PushFront(&entry{key: key, val: val, expiresAt: expiresAt})
	if l.ll.Len() > l.size {
		l.remove(l.ll.Back())
	}
}

func (l *LRU) Delete(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ele, ok := l.items[key]; ok {
		l.remove(ele)
	}
}

func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ll.Len()
}

// Close drops all entries.
func (l *LRU) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	l.ll.Init()
	clear(l.items)
}

func (l *LRU) remove(ele *list.Element) {
	l.ll.Remove(ele)
	delete(l.items, ele.Value.(*entry).key)
}

var _ Cache = (*LRU)(nil)
