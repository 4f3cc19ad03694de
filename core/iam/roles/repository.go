package roles

import (
	"context"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
)

// Repository loads and saves roles.
type Repository struct {
	es.TypedRepository[*Role]
}

func NewRepository(r es.Repository) *Repository {
	return &Repository{TypedRepository: es.NewTypedRepository(r, Empty)}
}

// LoadByUniqueName returns the live role named uniqueName in tenantID, or nil.
func (r *Repository) LoadByUniqueName(ctx context.Context, tenantID iam.TenantID, uniqueName iam.UniqueName) (*Role, error) {
	key := uniqueName.Normalize()
	found, err := r.Find(ctx, func(role *Role) bool {
		return !role.IsDeleted() && role.tenantID == tenantID && role.uniqueName.Normalize() == key
	})
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return found[0], nil
}
