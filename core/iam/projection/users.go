package projection

import (
	"context"
	"slices"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/readmodel"
	"github.com/codewandler/iam-go/core/iam/users"
)

func (s *Synchronizer) syncUser(ctx context.Context, env es.Envelope, rec es.Record) error {
	table := s.store.Users()
	switch e := rec.Event.(type) {
	case *users.UserCreated:
		return create(ctx, s, table, env, rec, func(u *readmodel.User) error {
			u.UniqueName = e.UniqueName.String()
			return s.saveActor(ctx, userActor(u))
		})
	case *users.UserUniqueNameChanged:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			u.UniqueName = e.UniqueName.String()
			return s.saveActor(ctx, userActor(u))
		})
	case *users.UserPasswordChanged:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			on := rec.OccurredAt
			u.HasPassword = true
			u.PasswordChangedBy = rec.ActorID
			u.PasswordChangedOn = &on
			return nil
		})
	case *users.UserPasswordRemoved:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			u.HasPassword = false
			u.PasswordChangedBy = ""
			u.PasswordChangedOn = nil
			return nil
		})
	case *users.UserIdentifierChanged:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			if u.CustomIdentifiers == nil {
				u.CustomIdentifiers = map[string]string{}
			}
			u.CustomIdentifiers[e.Key] = e.Value
			return nil
		})
	case *users.UserIdentifierRemoved:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			delete(u.CustomIdentifiers, e.Key)
			return nil
		})
	case *users.UserRoleAdded:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			role, err := s.store.Roles().Get(ctx, e.RoleID)
			if err != nil {
				return err
			}
			if role == nil {
				return missing("role", e.RoleID, u.StreamID)
			}
			if !readmodel.HasRole(u.Roles, e.RoleID) {
				u.Roles = append(u.Roles, e.RoleID)
			}
			return nil
		})
	case *users.UserRoleRemoved:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			u.Roles = slices.DeleteFunc(u.Roles, func(id string) bool { return id == e.RoleID })
			return nil
		})
	case *users.UserDisabled:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			on := rec.OccurredAt
			u.IsDisabled = true
			u.DisabledBy = rec.ActorID
			u.DisabledOn = &on
			return nil
		})
	case *users.UserEnabled:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			u.IsDisabled = false
			u.DisabledBy = ""
			u.DisabledOn = nil
			return nil
		})
	case *users.UserSignedIn, *users.UserAuthenticated:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			on := rec.OccurredAt
			u.AuthenticatedOn = &on
			return nil
		})
	case *users.UserUpdated:
		return update(ctx, s, table, env, rec, func(u *readmodel.User) error {
			applyUserUpdated(u, rec, e)
			return s.saveActor(ctx, userActor(u))
		})
	case *users.UserDeleted:
		if err := remove(ctx, s, table, env, rec); err != nil {
			return err
		}
		return s.markActorDeleted(ctx, env.AggregateID)
	}
	return unexpected(rec)
}

func applyUserUpdated(u *readmodel.User, rec es.Record, e *users.UserUpdated) {
	verification := func(verified bool) *iam.Verification {
		if !verified {
			return nil
		}
		return &iam.Verification{By: rec.ActorID, On: rec.OccurredAt}
	}
	if e.Email.IsSet() {
		u.Email = e.Email.Ptr()
		u.EmailVerification = verification(u.Email != nil && u.Email.IsVerified)
	}
	if e.Phone.IsSet() {
		u.Phone = e.Phone.Ptr()
		u.PhoneVerification = verification(u.Phone != nil && u.Phone.IsVerified)
	}
	if e.Address.IsSet() {
		u.Address = e.Address.Ptr()
		u.AddressVerification = verification(u.Address != nil && u.Address.IsVerified)
	}
	u.IsConfirmed = u.EmailVerification != nil || u.PhoneVerification != nil

	e.FirstName.ApplyTo(&u.FirstName)
	e.MiddleName.ApplyTo(&u.MiddleName)
	e.LastName.ApplyTo(&u.LastName)
	u.FullName = users.FullName(u.FirstName, u.MiddleName, u.LastName)
	e.Nickname.ApplyTo(&u.Nickname)
	e.Birthdate.ApplyTo(&u.Birthdate)
	e.Gender.ApplyTo(&u.Gender)
	e.Locale.ApplyTo(&u.Locale)
	e.TimeZone.ApplyTo(&u.TimeZone)
	e.Picture.ApplyTo(&u.Picture)
	e.Profile.ApplyTo(&u.Profile)
	e.Website.ApplyTo(&u.Website)
	applyAttributes(&u.CustomAttributes, e.CustomAttributes)
}

func userActor(u *readmodel.User) *readmodel.Actor {
	a := &readmodel.Actor{
		ID:          u.StreamID,
		TenantID:    u.TenantID,
		Type:        readmodel.ActorUser,
		DisplayName: u.UniqueName,
		PictureURL:  u.Picture,
	}
	if u.FullName != nil {
		a.DisplayName = *u.FullName
	}
	if u.Email != nil {
		addr := u.Email.Address
		a.EmailAddress = &addr
	}
	return a
}
