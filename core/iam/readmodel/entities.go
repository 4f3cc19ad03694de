// Package readmodel holds the denormalized entities the projection keeps in
// sync with the event streams, and the store they live in.
package readmodel

import (
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
)

// Entity carries the stream position and audit fields of every read entity.
type Entity struct {
	StreamID  string       `json:"stream_id"`
	TenantID  iam.TenantID `json:"tenant_id,omitempty"`
	Version   es.Version   `json:"version"`
	CreatedBy string       `json:"created_by"`
	CreatedOn time.Time    `json:"created_on"`
	UpdatedBy string       `json:"updated_by"`
	UpdatedOn time.Time    `json:"updated_on"`
}

func (e *Entity) Key() string          { return e.StreamID }
func (e *Entity) Base() *Entity        { return e }
func (e *Entity) Tenant() iam.TenantID { return e.TenantID }

type Role struct {
	Entity
	UniqueName       string               `json:"unique_name"`
	DisplayName      *string              `json:"display_name,omitempty"`
	Description      *string              `json:"description,omitempty"`
	CustomAttributes iam.CustomAttributes `json:"custom_attributes,omitempty"`
}

type User struct {
	Entity
	UniqueName        string     `json:"unique_name"`
	HasPassword       bool       `json:"has_password"`
	PasswordChangedBy string     `json:"password_changed_by,omitempty"`
	PasswordChangedOn *time.Time `json:"password_changed_on,omitempty"`
	DisabledBy        string     `json:"disabled_by,omitempty"`
	DisabledOn        *time.Time `json:"disabled_on,omitempty"`
	IsDisabled        bool       `json:"is_disabled"`
	AuthenticatedOn   *time.Time `json:"authenticated_on,omitempty"`

	Email               *iam.Email        `json:"email,omitempty"`
	EmailVerification   *iam.Verification `json:"email_verification,omitempty"`
	Phone               *iam.Phone        `json:"phone,omitempty"`
	PhoneVerification   *iam.Verification `json:"phone_verification,omitempty"`
	Address             *iam.Address      `json:"address,omitempty"`
	AddressVerification *iam.Verification `json:"address_verification,omitempty"`
	IsConfirmed         bool              `json:"is_confirmed"`

	FirstName  *string    `json:"first_name,omitempty"`
	MiddleName *string    `json:"middle_name,omitempty"`
	LastName   *string    `json:"last_name,omitempty"`
	FullName   *string    `json:"full_name,omitempty"`
	Nickname   *string    `json:"nickname,omitempty"`
	Birthdate  *time.Time `json:"birthdate,omitempty"`
	Gender     *string    `json:"gender,omitempty"`
	Locale     *string    `json:"locale,omitempty"`
	TimeZone   *string    `json:"time_zone,omitempty"`
	Picture    *string    `json:"picture,omitempty"`
	Profile    *string    `json:"profile,omitempty"`
	Website    *string    `json:"website,omitempty"`

	CustomIdentifiers map[string]string    `json:"custom_identifiers,omitempty"`
	Roles             []string             `json:"roles,omitempty"`
	CustomAttributes  iam.CustomAttributes `json:"custom_attributes,omitempty"`
}

type Session struct {
	Entity
	UserID           string               `json:"user_id"`
	IsPersistent     bool                 `json:"is_persistent"`
	IsActive         bool                 `json:"is_active"`
	SignedOutBy      string               `json:"signed_out_by,omitempty"`
	SignedOutOn      *time.Time           `json:"signed_out_on,omitempty"`
	CustomAttributes iam.CustomAttributes `json:"custom_attributes,omitempty"`
}

type ApiKey struct {
	Entity
	DisplayName      string               `json:"display_name"`
	Description      *string              `json:"description,omitempty"`
	ExpiresOn        *time.Time           `json:"expires_on,omitempty"`
	AuthenticatedOn  *time.Time           `json:"authenticated_on,omitempty"`
	Roles            []string             `json:"roles,omitempty"`
	CustomAttributes iam.CustomAttributes `json:"custom_attributes,omitempty"`
}

type OneTimePassword struct {
	Entity
	ExpiresOn              *time.Time           `json:"expires_on,omitempty"`
	MaximumAttempts        *int                 `json:"maximum_attempts,omitempty"`
	AttemptCount           int                  `json:"attempt_count"`
	HasValidationSucceeded bool                 `json:"has_validation_succeeded"`
	CustomAttributes       iam.CustomAttributes `json:"custom_attributes,omitempty"`
}

// Tombstone marks a stream whose entity was deleted at Version. Creation
// events for it are rejected afterwards.
type Tombstone struct {
	StreamID  string       `json:"stream_id"`
	TenantID  iam.TenantID `json:"tenant_id,omitempty"`
	Version   es.Version   `json:"version"`
	DeletedBy string       `json:"deleted_by"`
	DeletedOn time.Time    `json:"deleted_on"`
}

func (t *Tombstone) Key() string          { return t.StreamID }
func (t *Tombstone) Tenant() iam.TenantID { return t.TenantID }

// ActorType tells what kind of principal an Actor is.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorApiKey ActorType = "apikey"
)

// Actor is the display summary of a principal referenced by audit fields.
// It outlives its principal, flagged IsDeleted.
type Actor struct {
	ID           string       `json:"id"`
	TenantID     iam.TenantID `json:"tenant_id,omitempty"`
	Type         ActorType    `json:"type"`
	IsDeleted    bool         `json:"is_deleted"`
	DisplayName  string       `json:"display_name"`
	EmailAddress *string      `json:"email_address,omitempty"`
	PictureURL   *string      `json:"picture_url,omitempty"`
}

func (a *Actor) Key() string          { return a.ID }
func (a *Actor) Tenant() iam.TenantID { return a.TenantID }

// HasRole reports whether roleID is in roles.
func HasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}
