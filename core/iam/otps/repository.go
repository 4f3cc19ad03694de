package otps

import "github.com/codewandler/iam-go/core/es"

type Repository struct {
	es.TypedRepository[*OneTimePassword]
}

func NewRepository(r es.Repository) *Repository {
	return &Repository{TypedRepository: es.NewTypedRepository(r, Empty)}
}
