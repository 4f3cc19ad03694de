// Package users implements the User aggregate: identity, credentials,
// contact information and role membership of a person.
package users

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/codewandler/iam-go/core/ds"
	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/secret"
)

const AggType = "user"

type User struct {
	es.BaseAggregate

	tenantID   iam.TenantID
	uniqueName iam.UniqueName
	password   *secret.Password

	disabled   bool
	disabledBy string
	disabledOn *time.Time

	email               *iam.Email
	emailVerification   *iam.Verification
	phone               *iam.Phone
	phoneVerification   *iam.Verification
	address             *iam.Address
	addressVerification *iam.Verification

	firstName  *string
	middleName *string
	lastName   *string
	nickname   *string
	birthdate  *time.Time
	gender     *string
	locale     *string
	timeZone   *string
	picture    *string
	profile    *string
	website    *string

	authenticatedOn   *time.Time
	customIdentifiers map[string]string
	customAttributes  iam.CustomAttributes
	roles             *ds.Set[string]
}

func newUser() *User {
	return &User{
		customIdentifiers: map[string]string{},
		customAttributes:  iam.CustomAttributes{},
		roles:             ds.NewSet[string](),
	}
}

func Empty() *User { return newUser() }

// New creates a user in tenantID. Uniqueness of the name is enforced when
// saving through the manager.
func New(uniqueName iam.UniqueName, tenantID iam.TenantID, actorID string) (*User, error) {
	u := newUser()
	u.SetID(iam.NewID(tenantID).String())
	if err := es.Raise(u, actorID, &UserCreated{TenantID: tenantID, UniqueName: uniqueName}); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) GetAggType() string { return AggType }

func (u *User) Register(r es.Registrar) {
	es.RegisterEvents(r,
		es.Ctor[UserCreated](),
		es.Ctor[UserUniqueNameChanged](),
		es.Ctor[UserPasswordChanged](),
		es.Ctor[UserPasswordRemoved](),
		es.Ctor[UserIdentifierChanged](),
		es.Ctor[UserIdentifierRemoved](),
		es.Ctor[UserRoleAdded](),
		es.Ctor[UserRoleRemoved](),
		es.Ctor[UserDisabled](),
		es.Ctor[UserEnabled](),
		es.Ctor[UserSignedIn](),
		es.Ctor[UserAuthenticated](),
		es.Ctor[UserDeleted](),
		es.Ctor[UserUpdated](),
	)
}

func (u *User) Apply(r es.Record) error {
	switch e := r.Event.(type) {
	case *UserCreated:
		u.tenantID = e.TenantID
		u.uniqueName = e.UniqueName
	case *UserUniqueNameChanged:
		u.uniqueName = e.UniqueName
	case *UserPasswordChanged:
		pw := e.Password
		u.password = &pw
	case *UserPasswordRemoved:
		u.password = nil
	case *UserIdentifierChanged:
		u.customIdentifiers[e.Key] = e.Value
	case *UserIdentifierRemoved:
		delete(u.customIdentifiers, e.Key)
	case *UserRoleAdded:
		u.roles.Add(e.RoleID)
	case *UserRoleRemoved:
		u.roles.Remove(e.RoleID)
	case *UserDisabled:
		u.disabled = true
		u.disabledBy = r.ActorID
		on := r.OccurredAt
		u.disabledOn = &on
	case *UserEnabled:
		u.disabled = false
		u.disabledBy = ""
		u.disabledOn = nil
	case *UserSignedIn, *UserAuthenticated:
		on := r.OccurredAt
		u.authenticatedOn = &on
	case *UserUpdated:
		u.applyUpdated(r, e)
	case *UserDeleted:
	default:
		return fmt.Errorf("%w: %T", es.ErrUnknownEventType, r.Event)
	}
	return nil
}

func (u *User) applyUpdated(r es.Record, e *UserUpdated) {
	verification := func(verified bool) *iam.Verification {
		if !verified {
			return nil
		}
		return &iam.Verification{By: r.ActorID, On: r.OccurredAt}
	}
	if e.Email.IsSet() {
		u.email = e.Email.Ptr()
		u.emailVerification = verification(u.email != nil && u.email.IsVerified)
	}
	if e.Phone.IsSet() {
		u.phone = e.Phone.Ptr()
		u.phoneVerification = verification(u.phone != nil && u.phone.IsVerified)
	}
	if e.Address.IsSet() {
		u.address = e.Address.Ptr()
		u.addressVerification = verification(u.address != nil && u.address.IsVerified)
	}
	e.FirstName.ApplyTo(&u.firstName)
	e.MiddleName.ApplyTo(&u.middleName)
	e.LastName.ApplyTo(&u.lastName)
	e.Nickname.ApplyTo(&u.nickname)
	e.Birthdate.ApplyTo(&u.birthdate)
	e.Gender.ApplyTo(&u.gender)
	e.Locale.ApplyTo(&u.locale)
	e.TimeZone.ApplyTo(&u.timeZone)
	e.Picture.ApplyTo(&u.picture)
	e.Profile.ApplyTo(&u.profile)
	e.Website.ApplyTo(&u.website)
	u.customAttributes.Apply(e.CustomAttributes)
}

// === Read ===

func (u *User) ID() iam.ID                 { return iam.MustParseID(u.GetID()) }
func (u *User) TenantID() iam.TenantID     { return u.tenantID }
func (u *User) UniqueName() iam.UniqueName { return u.uniqueName }
func (u *User) HasPassword() bool          { return u.password != nil }
func (u *User) IsDisabled() bool           { return u.disabled }
func (u *User) DisabledBy() string         { return u.disabledBy }
func (u *User) DisabledOn() *time.Time     { return u.disabledOn }

func (u *User) Email() *iam.Email                      { return u.email }
func (u *User) EmailVerification() *iam.Verification   { return u.emailVerification }
func (u *User) Phone() *iam.Phone                      { return u.phone }
func (u *User) PhoneVerification() *iam.Verification   { return u.phoneVerification }
func (u *User) Address() *iam.Address                  { return u.address }
func (u *User) AddressVerification() *iam.Verification { return u.addressVerification }

// IsConfirmed reports whether the user verified an email address or phone.
func (u *User) IsConfirmed() bool {
	return (u.email != nil && u.email.IsVerified) || (u.phone != nil && u.phone.IsVerified)
}

func (u *User) FirstName() *string          { return u.firstName }
func (u *User) MiddleName() *string         { return u.middleName }
func (u *User) LastName() *string           { return u.lastName }
func (u *User) Nickname() *string           { return u.nickname }
func (u *User) Birthdate() *time.Time       { return u.birthdate }
func (u *User) Gender() *string             { return u.gender }
func (u *User) Locale() *string             { return u.locale }
func (u *User) TimeZone() *string           { return u.timeZone }
func (u *User) Picture() *string            { return u.picture }
func (u *User) Profile() *string            { return u.profile }
func (u *User) Website() *string            { return u.website }
func (u *User) AuthenticatedOn() *time.Time { return u.authenticatedOn }

// FullName joins first, middle and last name; nil when all are unset.
func (u *User) FullName() *string { return FullName(u.firstName, u.middleName, u.lastName) }

func FullName(parts ...*string) *string {
	var names []string
	for _, p := range parts {
		if p != nil && *p != "" {
			names = append(names, *p)
		}
	}
	if len(names) == 0 {
		return nil
	}
	full := strings.Join(names, " ")
	return &full
}

func (u *User) CustomIdentifiers() map[string]string   { return maps.Clone(u.customIdentifiers) }
func (u *User) CustomAttributes() iam.CustomAttributes { return u.customAttributes.Clone() }
func (u *User) Roles() []string                        { return u.roles.Values() }
func (u *User) HasRole(roleID string) bool             { return u.roles.Contains(roleID) }

// === Commands ===

func (u *User) SetUniqueName(uniqueName iam.UniqueName, actorID string) error {
	if u.uniqueName == uniqueName {
		return nil
	}
	return es.Raise(u, actorID, &UserUniqueNameChanged{UniqueName: uniqueName})
}

// SetPassword replaces the password without checking the current one.
func (u *User) SetPassword(password secret.Password, actorID string) error {
	return es.Raise(u, actorID, &UserPasswordChanged{Password: password})
}

// ChangePassword replaces the password after verifying current.
func (u *User) ChangePassword(current string, password secret.Password, actorID string) error {
	if err := u.verifyPassword(current); err != nil {
		return err
	}
	return u.SetPassword(password, actorID)
}

func (u *User) RemovePassword(actorID string) error {
	if u.password == nil {
		return nil
	}
	return es.Raise(u, actorID, &UserPasswordRemoved{})
}

func (u *User) SetCustomIdentifier(id iam.CustomIdentifier, actorID string) error {
	if cur, ok := u.customIdentifiers[id.Key]; ok && cur == id.Value {
		return nil
	}
	return es.Raise(u, actorID, &UserIdentifierChanged{Key: id.Key, Value: id.Value})
}

func (u *User) RemoveCustomIdentifier(key, actorID string) error {
	if _, ok := u.customIdentifiers[key]; !ok {
		return nil
	}
	return es.Raise(u, actorID, &UserIdentifierRemoved{Key: key})
}

// AddRole grants role; the role must live in the user's tenant.
func (u *User) AddRole(role *roles.Role, actorID string) error {
	if err := iam.EnsureSameTenant(u.tenantID, role.TenantID()); err != nil {
		return err
	}
	if u.roles.Contains(role.GetID()) {
		return nil
	}
	return es.Raise(u, actorID, &UserRoleAdded{RoleID: role.GetID()})
}

func (u *User) RemoveRole(roleID, actorID string) error {
	if !u.roles.Contains(roleID) {
		return nil
	}
	return es.Raise(u, actorID, &UserRoleRemoved{RoleID: roleID})
}

func (u *User) Disable(actorID string) error {
	if u.disabled {
		return nil
	}
	return es.Raise(u, actorID, &UserDisabled{})
}

func (u *User) Enable(actorID string) error {
	if !u.disabled {
		return nil
	}
	return es.Raise(u, actorID, &UserEnabled{})
}

// Delete is a no-op on a deleted user. Sessions are cascaded by the manager.
func (u *User) Delete(actorID string) error {
	if u.IsDeleted() {
		return nil
	}
	return es.Raise(u, actorID, &UserDeleted{})
}

func (u *User) ensureCanAuthenticate(settings iam.UserSettings) error {
	if u.disabled {
		return fmt.Errorf("%w: user %s", iam.ErrUserIsDisabled, u.GetID())
	}
	if settings.RequireConfirmedAccount && !u.IsConfirmed() {
		return fmt.Errorf("%w: user %s", iam.ErrUserIsNotConfirmed, u.GetID())
	}
	return nil
}

func (u *User) verifyPassword(password string) error {
	if u.password == nil {
		return fmt.Errorf("%w: user %s", iam.ErrUserHasNoPassword, u.GetID())
	}
	if !u.password.Verify(password) {
		return fmt.Errorf("%w: user %s", iam.ErrIncorrectUserPassword, u.GetID())
	}
	return nil
}

// Authenticate checks password without opening a session.
func (u *User) Authenticate(settings iam.UserSettings, password, actorID string) error {
	if err := u.ensureCanAuthenticate(settings); err != nil {
		return err
	}
	if err := u.verifyPassword(password); err != nil {
		return err
	}
	if actorID == "" {
		actorID = u.GetID()
	}
	return es.Raise(u, actorID, &UserAuthenticated{})
}

// SignIn opens a new session. When password is not nil it must match the
// user's password. A non-nil sessionSecret makes the session persistent.
// The returned session is staged and must be saved along with the user.
func (u *User) SignIn(settings iam.UserSettings, password *string, sessionSecret *secret.Password, actorID string) (*sessions.Session, error) {
	if err := u.ensureCanAuthenticate(settings); err != nil {
		return nil, err
	}
	if password != nil {
		if err := u.verifyPassword(*password); err != nil {
			return nil, err
		}
	}
	if actorID == "" {
		actorID = u.GetID()
	}
	s, err := sessions.New(u.ID(), sessionSecret, actorID)
	if err != nil {
		return nil, err
	}
	if err := es.Raise(u, actorID, &UserSignedIn{SessionID: s.GetID()}); err != nil {
		return nil, err
	}
	return s, nil
}
