package readmodel

import (
	"context"
	"encoding/json"

	"github.com/codewandler/iam-go/core/cache"
	"github.com/codewandler/iam-go/core/sf"
)

// cachedTable reads through a cache. Concurrent misses for one key share a
// single lookup. Callers get private copies.
type cachedTable[T any, PT interface {
	*T
	Keyed
}] struct {
	inner  Table[T]
	prefix string
	cache  cache.TypedCache[*T]
	flight *sf.Singleflight[T]
	opts   []cache.PutOption
}

func newCachedTable[T any, PT interface {
	*T
	Keyed
}](inner Table[T], c cache.Cache, prefix string, opts []cache.PutOption) *cachedTable[T, PT] {
	return &cachedTable[T, PT]{
		inner:  inner,
		prefix: prefix + ":",
		cache:  cache.NewTyped[*T](c),
		flight: sf.New[T](),
		opts:   opts,
	}
}

func (t *cachedTable[T, PT]) Get(ctx context.Context, key string) (*T, error) {
	ck := t.prefix + key
	if v, ok := t.cache.Get(ck); ok {
		return clone(v)
	}
	v, err := t.flight.Do(ck, func() (*T, error) {
		v, err := t.inner.Get(ctx, key)
		if err != nil || v == nil {
			return v, err
		}
		t.cache.Put(ck, v, t.opts...)
		return v, nil
	})
	if err != nil || v == nil {
		return nil, err
	}
	return clone(v)
}

func (t *cachedTable[T, PT]) Save(ctx context.Context, v *T) error {
	ck := t.prefix + PT(v).Key()
	t.cache.Delete(ck)
	t.flight.Forget(ck)
	if err := t.inner.Save(ctx, v); err != nil {
		return err
	}
	if c, err := clone(v); err == nil {
		t.cache.Put(ck, c, t.opts...)
	}
	return nil
}

func (t *cachedTable[T, PT]) Delete(ctx context.Context, key string) error {
	ck := t.prefix + key
	t.cache.Delete(ck)
	t.flight.Forget(ck)
	return t.inner.Delete(ctx, key)
}

func clone[T any](v *T) (*T, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CachedStore fronts a Store with a shared cache. It is only coherent while
// it is the sole writer of the underlying store.
type CachedStore struct {
	roles    *cachedTable[Role, *Role]
	users    *cachedTable[User, *User]
	sessions *cachedTable[Session, *Session]
	apiKeys  *cachedTable[ApiKey, *ApiKey]
	otps     *cachedTable[OneTimePassword, *OneTimePassword]
	actors   *cachedTable[Actor, *Actor]
	tombs    *cachedTable[Tombstone, *Tombstone]
}

func NewCachedStore(inner Store, c cache.Cache, opts ...cache.PutOption) *CachedStore {
	return &CachedStore{
		roles:    newCachedTable[Role, *Role](inner.Roles(), c, "role", opts),
		users:    newCachedTable[User, *User](inner.Users(), c, "user", opts),
		sessions: newCachedTable[Session, *Session](inner.Sessions(), c, "session", opts),
		apiKeys:  newCachedTable[ApiKey, *ApiKey](inner.ApiKeys(), c, "apikey", opts),
		otps:     newCachedTable[OneTimePassword, *OneTimePassword](inner.OneTimePasswords(), c, "otp", opts),
		actors:   newCachedTable[Actor, *Actor](inner.Actors(), c, "actor", opts),
		tombs:    newCachedTable[Tombstone, *Tombstone](inner.Tombstones(), c, "tomb", opts),
	}
}

func (s *CachedStore) Roles() Table[Role]                       { return s.roles }
func (s *CachedStore) Users() Table[User]                       { return s.users }
func (s *CachedStore) Sessions() Table[Session]                 { return s.sessions }
func (s *CachedStore) ApiKeys() Table[ApiKey]                   { return s.apiKeys }
func (s *CachedStore) OneTimePasswords() Table[OneTimePassword] { return s.otps }
func (s *CachedStore) Actors() Table[Actor]                     { return s.actors }
func (s *CachedStore) Tombstones() Table[Tombstone]             { return s.tombs }

var _ Store = (*CachedStore)(nil)
