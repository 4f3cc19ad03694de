// Package roles implements the Role aggregate.
package roles

import (
	"fmt"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
)

const AggType = "role"

type Role struct {
	es.BaseAggregate

	tenantID         iam.TenantID
	uniqueName       iam.UniqueName
	displayName      *string
	description      *string
	customAttributes iam.CustomAttributes
}

func newRole() *Role { return &Role{customAttributes: iam.CustomAttributes{}} }

// Empty returns a Role ready to be loaded from its stream.
func Empty() *Role { return newRole() }

// New creates a role in tenantID.
func New(uniqueName iam.UniqueName, tenantID iam.TenantID, actorID string) (*Role, error) {
	r := newRole()
	r.SetID(iam.NewID(tenantID).String())
	if err := es.Raise(r, actorID, &RoleCreated{TenantID: tenantID, UniqueName: uniqueName}); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Role) GetAggType() string { return AggType }

func (r *Role) Register(reg es.Registrar) {
	es.RegisterEvents(reg,
		es.Ctor[RoleCreated](),
		es.Ctor[RoleUniqueNameChanged](),
		es.Ctor[RoleUpdated](),
		es.Ctor[RoleDeleted](),
	)
}

func (r *Role) Apply(rec es.Record) error {
	switch e := rec.Event.(type) {
	case *RoleCreated:
		r.tenantID = e.TenantID
		r.uniqueName = e.UniqueName
	case *RoleUniqueNameChanged:
		r.uniqueName = e.UniqueName
	case *RoleUpdated:
		e.DisplayName.ApplyTo(&r.displayName)
		e.Description.ApplyTo(&r.description)
		r.customAttributes.Apply(e.CustomAttributes)
	case *RoleDeleted:
	default:
		return fmt.Errorf("%w: %T", es.ErrUnknownEventType, rec.Event)
	}
	return nil
}

func (r *Role) ID() iam.ID                             { return iam.MustParseID(r.GetID()) }
func (r *Role) TenantID() iam.TenantID                 { return r.tenantID }
func (r *Role) UniqueName() iam.UniqueName             { return r.uniqueName }
func (r *Role) DisplayName() *string                   { return r.displayName }
func (r *Role) Description() *string                   { return r.description }
func (r *Role) CustomAttributes() iam.CustomAttributes { return r.customAttributes.Clone() }

// SetUniqueName renames the role right away; renames are not batched.
func (r *Role) SetUniqueName(uniqueName iam.UniqueName, actorID string) error {
	if r.uniqueName == uniqueName {
		return nil
	}
	return es.Raise(r, actorID, &RoleUniqueNameChanged{UniqueName: uniqueName})
}

// Delete is a no-op on a deleted role.
func (r *Role) Delete(actorID string) error {
	if r.IsDeleted() {
		return nil
	}
	return es.Raise(r, actorID, &RoleDeleted{})
}

// === Update ===

// Update accumulates changes to a role; see Role.Edit.
type Update struct {
	role    *Role
	version es.Version
	event   RoleUpdated
	attrs   iam.AttributeEditor
}

// Edit starts an update against the current state.
func (r *Role) Edit() *Update {
	return &Update{role: r, version: r.GetVersion(), attrs: iam.NewAttributeEditor(r.customAttributes)}
}

func (u *Update) SetDisplayName(v *string) *Update {
	u.event.DisplayName = iam.Diff(u.role.displayName, v)
	return u
}

func (u *Update) SetDescription(v *string) *Update {
	u.event.Description = iam.Diff(u.role.description, v)
	return u
}

func (u *Update) SetCustomAttribute(key, value string) error { return u.attrs.Set(key, value) }
func (u *Update) RemoveCustomAttribute(key string)           { u.attrs.Remove(key) }

func (u *Update) HasChanges() bool {
	return u.event.DisplayName.IsSet() || u.event.Description.IsSet() || u.attrs.HasChanges()
}

// Update raises a RoleUpdated event holding the changes of upd, or nothing
// when upd has none.
func (r *Role) Update(actorID string, upd *Update) error {
	if upd == nil || !upd.HasChanges() {
		return nil
	}
	if upd.role != r || upd.version != r.GetVersion() {
		return fmt.Errorf("%w: role %s", iam.ErrStaleUpdate, r.GetID())
	}
	e := upd.event
	e.CustomAttributes = upd.attrs.Changes()
	if err := es.Raise(r, actorID, &e); err != nil {
		return err
	}
	*upd = *r.Edit()
	return nil
}
