// Package apikeys implements the ApiKey aggregate: a long-lived secret
// credential owned by a tenant and granted roles directly.
package apikeys

import (
	"fmt"
	"time"

	"github.com/codewandler/iam-go/core/ds"
	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/secret"
)

const AggType = "apikey"

type ApiKey struct {
	es.BaseAggregate

	tenantID         iam.TenantID
	secret           secret.Password
	displayName      string
	description      *string
	expiresOn        *time.Time
	authenticatedOn  *time.Time
	customAttributes iam.CustomAttributes
	roles            *ds.Set[string]
}

func newApiKey() *ApiKey {
	return &ApiKey{customAttributes: iam.CustomAttributes{}, roles: ds.NewSet[string]()}
}

func Empty() *ApiKey { return newApiKey() }

// New creates an API key. secretHash is the hash of the secret handed out
// inside the key's token.
func New(displayName string, secretHash secret.Password, tenantID iam.TenantID, actorID string) (*ApiKey, error) {
	return NewWithID(iam.NewID(tenantID), displayName, secretHash, actorID)
}

// NewWithID is New with a caller-chosen id, typically the id encoded in the token.
func NewWithID(id iam.ID, displayName string, secretHash secret.Password, actorID string) (*ApiKey, error) {
	name, err := iam.NewDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	k := newApiKey()
	k.SetID(id.String())
	if err := es.Raise(k, actorID, &ApiKeyCreated{TenantID: id.TenantID, DisplayName: name, Secret: secretHash}); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *ApiKey) GetAggType() string { return AggType }

func (k *ApiKey) Register(r es.Registrar) {
	es.RegisterEvents(r,
		es.Ctor[ApiKeyCreated](),
		es.Ctor[ApiKeyUpdated](),
		es.Ctor[ApiKeyRoleAdded](),
		es.Ctor[ApiKeyRoleRemoved](),
		es.Ctor[ApiKeyAuthenticated](),
		es.Ctor[ApiKeyDeleted](),
	)
}

func (k *ApiKey) Apply(r es.Record) error {
	switch e := r.Event.(type) {
	case *ApiKeyCreated:
		k.tenantID = e.TenantID
		k.displayName = e.DisplayName
		k.secret = e.Secret
	case *ApiKeyUpdated:
		if v, ok := e.DisplayName.Value(); ok {
			k.displayName = v
		}
		e.Description.ApplyTo(&k.description)
		e.ExpiresOn.ApplyTo(&k.expiresOn)
		k.customAttributes.Apply(e.CustomAttributes)
	case *ApiKeyRoleAdded:
		k.roles.Add(e.RoleID)
	case *ApiKeyRoleRemoved:
		k.roles.Remove(e.RoleID)
	case *ApiKeyAuthenticated:
		on := r.OccurredAt
		k.authenticatedOn = &on
	case *ApiKeyDeleted:
	default:
		return fmt.Errorf("%w: %T", es.ErrUnknownEventType, r.Event)
	}
	return nil
}

func (k *ApiKey) ID() iam.ID                             { return iam.MustParseID(k.GetID()) }
func (k *ApiKey) TenantID() iam.TenantID                 { return k.tenantID }
func (k *ApiKey) DisplayName() string                    { return k.displayName }
func (k *ApiKey) Description() *string                   { return k.description }
func (k *ApiKey) ExpiresOn() *time.Time                  { return k.expiresOn }
func (k *ApiKey) AuthenticatedOn() *time.Time            { return k.authenticatedOn }
func (k *ApiKey) CustomAttributes() iam.CustomAttributes { return k.customAttributes.Clone() }
func (k *ApiKey) Roles() []string                        { return k.roles.Values() }
func (k *ApiKey) HasRole(roleID string) bool             { return k.roles.Contains(roleID) }

// IsExpired reports whether the key expired at now.
func (k *ApiKey) IsExpired(now time.Time) bool {
	return k.expiresOn != nil && !k.expiresOn.After(now)
}

// AddRole grants role; the role must live in the key's tenant.
func (k *ApiKey) AddRole(role *roles.Role, actorID string) error {
	if err := iam.EnsureSameTenant(k.tenantID, role.TenantID()); err != nil {
		return err
	}
	if k.roles.Contains(role.GetID()) {
		return nil
	}
	return es.Raise(k, actorID, &ApiKeyRoleAdded{RoleID: role.GetID()})
}

func (k *ApiKey) RemoveRole(roleID, actorID string) error {
	if !k.roles.Contains(roleID) {
		return nil
	}
	return es.Raise(k, actorID, &ApiKeyRoleRemoved{RoleID: roleID})
}

// Authenticate verifies the plain secret of the key's token.
func (k *ApiKey) Authenticate(plainSecret, actorID string) error {
	if k.IsExpired(time.Now()) {
		return fmt.Errorf("%w: api key %s", iam.ErrApiKeyIsExpired, k.GetID())
	}
	if !k.secret.Verify(plainSecret) {
		return fmt.Errorf("%w: api key %s", iam.ErrIncorrectApiKeySecret, k.GetID())
	}
	if actorID == "" {
		actorID = k.GetID()
	}
	return es.Raise(k, actorID, &ApiKeyAuthenticated{})
}

// Delete is a no-op on a deleted key.
func (k *ApiKey) Delete(actorID string) error {
	if k.IsDeleted() {
		return nil
	}
	return es.Raise(k, actorID, &ApiKeyDeleted{})
}

// === Update ===

// Update accumulates changes to an API key; see ApiKey.Edit.
type Update struct {
	key     *ApiKey
	version es.Version
	event   ApiKeyUpdated
	attrs   iam.AttributeEditor
}

func (k *ApiKey) Edit() *Update {
	return &Update{key: k, version: k.GetVersion(), attrs: iam.NewAttributeEditor(k.customAttributes)}
}

func (u *Update) SetDisplayName(v string) error {
	name, err := iam.NewDisplayName(v)
	if err != nil {
		return err
	}
	u.event.DisplayName = iam.Diff(&u.key.displayName, &name)
	return nil
}

func (u *Update) SetDescription(v *string) *Update {
	u.event.Description = iam.Diff(u.key.description, v)
	return u
}

// SetExpiration sets a future expiry. Once a key expires it can only expire
// earlier.
func (u *Update) SetExpiration(t time.Time) error {
	t, err := iam.NewFutureTime("ExpiresOn", t)
	if err != nil {
		return err
	}
	if cur := u.key.expiresOn; cur != nil && t.After(*cur) {
		return iam.NewValidationError("ExpiresOn", "ExpirationValidator", "expiration can only be shortened")
	}
	u.event.ExpiresOn = iam.Diff(u.key.expiresOn, &t)
	return nil
}

func (u *Update) SetCustomAttribute(key, value string) error { return u.attrs.Set(key, value) }
func (u *Update) RemoveCustomAttribute(key string)           { u.attrs.Remove(key) }

func (u *Update) HasChanges() bool { return u.event.HasChanges() || u.attrs.HasChanges() }

// Update raises one ApiKeyUpdated event with the changes of upd.
func (k *ApiKey) Update(actorID string, upd *Update) error {
	if upd == nil || !upd.HasChanges() {
		return nil
	}
	if upd.key != k || upd.version != k.GetVersion() {
		return fmt.Errorf("%w: api key %s", iam.ErrStaleUpdate, k.GetID())
	}
	e := upd.event
	e.CustomAttributes = upd.attrs.Changes()
	if err := es.Raise(k, actorID, &e); err != nil {
		return err
	}
	*upd = *k.Edit()
	return nil
}
