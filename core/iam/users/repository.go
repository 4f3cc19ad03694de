package users

import (
	"context"
	"strings"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
)

// Repository loads and saves users.
type Repository struct {
	es.TypedRepository[*User]
}

func NewRepository(r es.Repository) *Repository {
	return &Repository{TypedRepository: es.NewTypedRepository(r, Empty)}
}

func (r *Repository) live(ctx context.Context, tenantID iam.TenantID, keep func(*User) bool) ([]*User, error) {
	return r.Find(ctx, func(u *User) bool {
		return !u.IsDeleted() && u.tenantID == tenantID && keep(u)
	})
}

func first(found []*User, err error) (*User, error) {
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}

// LoadByUniqueName returns the live user named uniqueName in tenantID, or nil.
func (r *Repository) LoadByUniqueName(ctx context.Context, tenantID iam.TenantID, uniqueName iam.UniqueName) (*User, error) {
	key := uniqueName.Normalize()
	return first(r.live(ctx, tenantID, func(u *User) bool { return u.uniqueName.Normalize() == key }))
}

// LoadByEmail returns every live user of tenantID with address. Several users
// may share an address unless unique emails are required.
func (r *Repository) LoadByEmail(ctx context.Context, tenantID iam.TenantID, address string) ([]*User, error) {
	return r.live(ctx, tenantID, func(u *User) bool {
		return u.email != nil && strings.EqualFold(u.email.Address, address)
	})
}

// LoadByCustomIdentifier returns the live user holding key=value, or nil.
func (r *Repository) LoadByCustomIdentifier(ctx context.Context, tenantID iam.TenantID, id iam.CustomIdentifier) (*User, error) {
	return first(r.live(ctx, tenantID, func(u *User) bool {
		v, ok := u.customIdentifiers[id.Key]
		return ok && v == id.Value
	}))
}

// LoadByRole returns the live users holding roleID.
func (r *Repository) LoadByRole(ctx context.Context, roleID string) ([]*User, error) {
	return r.Find(ctx, func(u *User) bool { return !u.IsDeleted() && u.roles.Contains(roleID) })
}
