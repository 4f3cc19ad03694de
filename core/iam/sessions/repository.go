package sessions

import (
	"context"

	"github.com/codewandler/iam-go/core/es"
)

type Repository struct {
	es.TypedRepository[*Session]
}

func NewRepository(r es.Repository) *Repository {
	return &Repository{TypedRepository: es.NewTypedRepository(r, Empty)}
}

// LoadByUser returns the sessions of userID that are not deleted.
func (r *Repository) LoadByUser(ctx context.Context, userID string) ([]*Session, error) {
	return r.Find(ctx, func(s *Session) bool { return !s.IsDeleted() && s.userID == userID })
}

// LoadActiveByUser returns the sessions of userID that are not signed out.
func (r *Repository) LoadActiveByUser(ctx context.Context, userID string) ([]*Session, error) {
	return r.Find(ctx, func(s *Session) bool { return !s.IsDeleted() && s.isActive && s.userID == userID })
}
