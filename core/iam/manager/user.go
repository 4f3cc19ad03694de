package manager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/core/perkey"
)

type UserManager struct {
	users    *users.Repository
	sessions *sessions.Repository
	locks    *perkey.Mutex[string]
	log      *slog.Logger
}

// Repository exposes the underlying user repository for reads.
func (m *UserManager) Repository() *users.Repository { return m.users }

type userChanges struct {
	uniqueName  bool
	email       *iam.Email
	identifiers map[string]string
	deleted     bool
}

func stagedUserChanges(u *users.User) userChanges {
	c := userChanges{identifiers: map[string]string{}}
	for _, r := range u.Uncommitted() {
		switch e := r.Event.(type) {
		case *users.UserCreated, *users.UserUniqueNameChanged:
			c.uniqueName = true
		case *users.UserIdentifierChanged:
			c.identifiers[e.Key] = e.Value
		case *users.UserIdentifierRemoved:
			delete(c.identifiers, e.Key)
		case *users.UserUpdated:
			if e.Email.IsSet() {
				c.email = e.Email.Ptr()
			}
		case *users.UserDeleted:
			c.deleted = true
		}
	}
	return c
}

// Save persists u after checking its staged changes against the other users
// of its tenant. Deleting a user also deletes its sessions.
func (m *UserManager) Save(ctx context.Context, settings iam.UserSettings, u *users.User) error {
	if !u.HasChanges() {
		return nil
	}
	c := stagedUserChanges(u)
	return m.locks.Do(ctx, lockKey(users.AggType, u.TenantID()), func() error {
		if c.deleted {
			if err := m.deleteSessions(ctx, u); err != nil {
				return err
			}
		} else if err := m.checkConflicts(ctx, settings, u, c); err != nil {
			return err
		}
		if err := m.users.Save(ctx, u); err != nil {
			return err
		}
		m.log.Debug("user saved", slog.String("id", u.GetID()), u.GetVersion().SlogAttr())
		return nil
	})
}

func (m *UserManager) checkConflicts(ctx context.Context, settings iam.UserSettings, u *users.User, c userChanges) error {
	tenantID := u.TenantID()
	if c.uniqueName {
		other, err := m.users.LoadByUniqueName(ctx, tenantID, u.UniqueName())
		if err != nil {
			return err
		}
		if other != nil && other.GetID() != u.GetID() {
			return &iam.UniqueNameAlreadyUsedError{
				AggType:    users.AggType,
				TenantID:   tenantID,
				UniqueName: u.UniqueName().String(),
				ConflictID: other.GetID(),
			}
		}
	}
	for key, value := range c.identifiers {
		other, err := m.users.LoadByCustomIdentifier(ctx, tenantID, iam.CustomIdentifier{Key: key, Value: value})
		if err != nil {
			return err
		}
		if other != nil && other.GetID() != u.GetID() {
			return &iam.CustomIdentifierAlreadyUsedError{
				AggType:    users.AggType,
				TenantID:   tenantID,
				Key:        key,
				Value:      value,
				ConflictID: other.GetID(),
			}
		}
	}
	if settings.RequireUniqueEmail && c.email != nil {
		found, err := m.users.LoadByEmail(ctx, tenantID, c.email.Address)
		if err != nil {
			return err
		}
		var conflicts []string
		for _, other := range found {
			if other.GetID() != u.GetID() {
				conflicts = append(conflicts, other.GetID())
			}
		}
		if len(conflicts) > 0 {
			return &iam.EmailAddressAlreadyUsedError{TenantID: tenantID, EmailAddress: c.email.Address, ConflictIDs: conflicts}
		}
	}
	return nil
}

func (m *UserManager) deleteSessions(ctx context.Context, u *users.User) error {
	found, err := m.sessions.LoadActiveByUser(ctx, u.GetID())
	if err != nil {
		return err
	}
	actorID := u.UpdatedBy()
	for _, s := range found {
		if err := s.Delete(actorID); err != nil {
			return err
		}
	}
	if err := m.sessions.Save(ctx, found...); err != nil {
		return fmt.Errorf("delete sessions of user %s: %w", u.GetID(), err)
	}
	return nil
}
