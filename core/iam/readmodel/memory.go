package readmodel

import (
	"context"
	"encoding/json"
	"sync"
)

type memTable[T any, PT interface {
	*T
	Keyed
}] struct {
	mu   sync.RWMutex
	rows map[string][]byte
}

func newMemTable[T any, PT interface {
	*T
	Keyed
}]() *memTable[T, PT] {
	return &memTable[T, PT]{rows: map[string][]byte{}}
}

// Get decodes a fresh copy; callers may mutate it freely.
func (t *memTable[T, PT]) Get(_ context.Context, key string) (*T, error) {
	t.mu.RLock()
	data, ok := t.rows[key]
	t.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	v := new(T)
	if err := json.Unmarshal(data, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (t *memTable[T, PT]) Save(_ context.Context, v *T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	t.rows[PT(v).Key()] = data
	t.mu.Unlock()
	return nil
}

func (t *memTable[T, PT]) Delete(_ context.Context, key string) error {
	t.mu.Lock()
	delete(t.rows, key)
	t.mu.Unlock()
	return nil
}

func (t *memTable[T, PT]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// MemoryStore keeps read entities in process memory.
type MemoryStore struct {
	roles    *memTable[Role, *Role]
	users    *memTable[User, *User]
	sessions *memTable[Session, *Session]
	apiKeys  *memTable[ApiKey, *ApiKey]
	otps     *memTable[OneTimePassword, *OneTimePassword]
	actors   *memTable[Actor, *Actor]
	tombs    *memTable[Tombstone, *Tombstone]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		roles:    newMemTable[Role](),
		users:    newMemTable[User](),
		sessions: newMemTable[Session](),
		apiKeys:  newMemTable[ApiKey](),
		otps:     newMemTable[OneTimePassword](),
		actors:   newMemTable[Actor](),
		tombs:    newMemTable[Tombstone](),
	}
}

func (s *MemoryStore) Roles() Table[Role]                       { return s.roles }
func (s *MemoryStore) Users() Table[User]                       { return s.users }
func (s *MemoryStore) Sessions() Table[Session]                 { return s.sessions }
func (s *MemoryStore) ApiKeys() Table[ApiKey]                   { return s.apiKeys }
func (s *MemoryStore) OneTimePasswords() Table[OneTimePassword] { return s.otps }
func (s *MemoryStore) Actors() Table[Actor]                     { return s.actors }
func (s *MemoryStore) Tombstones() Table[Tombstone]             { return s.tombs }

var _ Store = (*MemoryStore)(nil)
