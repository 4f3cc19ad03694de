package projection

import (
	"context"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam/readmodel"
	"github.com/codewandler/iam-go/core/iam/roles"
)

func (s *Synchronizer) syncRole(ctx context.Context, env es.Envelope, rec es.Record) error {
	table := s.store.Roles()
	switch e := rec.Event.(type) {
	case *roles.RoleCreated:
		return create(ctx, s, table, env, rec, func(r *readmodel.Role) error {
			r.UniqueName = e.UniqueName.String()
			return nil
		})
	case *roles.RoleUniqueNameChanged:
		return update(ctx, s, table, env, rec, func(r *readmodel.Role) error {
			r.UniqueName = e.UniqueName.String()
			return nil
		})
	case *roles.RoleUpdated:
		return update(ctx, s, table, env, rec, func(r *readmodel.Role) error {
			e.DisplayName.ApplyTo(&r.DisplayName)
			e.Description.ApplyTo(&r.Description)
			applyAttributes(&r.CustomAttributes, e.CustomAttributes)
			return nil
		})
	case *roles.RoleDeleted:
		return remove(ctx, s, table, env, rec)
	}
	return unexpected(rec)
}
