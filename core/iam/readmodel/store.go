package readmodel

import "context"

// Keyed is implemented by every read entity pointer.
type Keyed interface{ Key() string }

// Table persists one kind of read entity by key.
type Table[T any] interface {
	// Get returns nil and no error when key is unknown.
	Get(ctx context.Context, key string) (*T, error)
	Save(ctx context.Context, v *T) error
	Delete(ctx context.Context, key string) error
}

// Store is the read side the projection writes to.
type Store interface {
	Roles() Table[Role]
	Users() Table[User]
	Sessions() Table[Session]
	ApiKeys() Table[ApiKey]
	OneTimePasswords() Table[OneTimePassword]
	Actors() Table[Actor]
	Tombstones() Table[Tombstone]
}
