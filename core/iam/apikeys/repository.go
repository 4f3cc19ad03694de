package apikeys

import (
	"context"

	"github.com/codewandler/iam-go/core/es"
)

type Repository struct {
	es.TypedRepository[*ApiKey]
}

func NewRepository(r es.Repository) *Repository {
	return &Repository{TypedRepository: es.NewTypedRepository(r, Empty)}
}

// LoadByRole returns the live keys holding roleID.
func (r *Repository) LoadByRole(ctx context.Context, roleID string) ([]*ApiKey, error) {
	return r.Find(ctx, func(k *ApiKey) bool { return !k.IsDeleted() && k.roles.Contains(roleID) })
}
