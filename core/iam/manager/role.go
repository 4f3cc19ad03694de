package manager

import (
	"context"
	"log/slog"

	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/core/perkey"
)

type RoleManager struct {
	roles   *roles.Repository
	users   *users.Repository
	apiKeys *apikeys.Repository
	locks   *perkey.Mutex[string]
	log     *slog.Logger
}

func (m *RoleManager) Repository() *roles.Repository { return m.roles }

// Save persists r after checking its unique name. Deleting a role also
// removes it from every user and API key holding it.
func (m *RoleManager) Save(ctx context.Context, r *roles.Role) error {
	if !r.HasChanges() {
		return nil
	}
	var renamed, deleted bool
	for _, rec := range r.Uncommitted() {
		switch rec.Event.(type) {
		case *roles.RoleCreated, *roles.RoleUniqueNameChanged:
			renamed = true
		case *roles.RoleDeleted:
			deleted = true
		}
	}
	return m.locks.Do(ctx, lockKey(roles.AggType, r.TenantID()), func() error {
		if deleted {
			if err := m.revoke(ctx, r); err != nil {
				return err
			}
		} else if renamed {
			other, err := m.roles.LoadByUniqueName(ctx, r.TenantID(), r.UniqueName())
			if err != nil {
				return err
			}
			if other != nil && other.GetID() != r.GetID() {
				return &iam.UniqueNameAlreadyUsedError{
					AggType:    roles.AggType,
					TenantID:   r.TenantID(),
					UniqueName: r.UniqueName().String(),
					ConflictID: other.GetID(),
				}
			}
		}
		if err := m.roles.Save(ctx, r); err != nil {
			return err
		}
		m.log.Debug("role saved", slog.String("id", r.GetID()), r.GetVersion().SlogAttr())
		return nil
	})
}

func (m *RoleManager) revoke(ctx context.Context, r *roles.Role) error {
	actorID := r.UpdatedBy()
	holders, err := m.users.LoadByRole(ctx, r.GetID())
	if err != nil {
		return err
	}
	for _, u := range holders {
		if err := u.RemoveRole(r.GetID(), actorID); err != nil {
			return err
		}
	}
	if err := m.users.Save(ctx, holders...); err != nil {
		return err
	}
	keys, err := m.apiKeys.LoadByRole(ctx, r.GetID())
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := k.RemoveRole(r.GetID(), actorID); err != nil {
			return err
		}
	}
	return m.apiKeys.Save(ctx, keys...)
}
