package users

import (
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

type (
	UserCreated struct {
		TenantID   iam.TenantID   `json:"tenant_id,omitempty"`
		UniqueName iam.UniqueName `json:"unique_name"`
	}
	UserUniqueNameChanged struct {
		UniqueName iam.UniqueName `json:"unique_name"`
	}
	UserPasswordChanged struct {
		Password secret.Password `json:"password"`
	}
	UserPasswordRemoved   struct{}
	UserIdentifierChanged struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}
	UserIdentifierRemoved struct {
		Key string `json:"key"`
	}
	UserRoleAdded struct {
		RoleID string `json:"role_id"`
	}
	UserRoleRemoved struct {
		RoleID string `json:"role_id"`
	}
	UserDisabled struct{}
	UserEnabled  struct{}
	UserSignedIn struct {
		SessionID string `json:"session_id"`
	}
	UserAuthenticated struct{}
	UserDeleted       struct{ es.Deletion }

	UserUpdated struct {
		Email   iam.Change[iam.Email]   `json:"email,omitzero"`
		Phone   iam.Change[iam.Phone]   `json:"phone,omitzero"`
		Address iam.Change[iam.Address] `json:"address,omitzero"`

		FirstName  iam.Change[string]    `json:"first_name,omitzero"`
		MiddleName iam.Change[string]    `json:"middle_name,omitzero"`
		LastName   iam.Change[string]    `json:"last_name,omitzero"`
		Nickname   iam.Change[string]    `json:"nickname,omitzero"`
		Birthdate  iam.Change[time.Time] `json:"birthdate,omitzero"`
		Gender     iam.Change[string]    `json:"gender,omitzero"`
		Locale     iam.Change[string]    `json:"locale,omitzero"`
		TimeZone   iam.Change[string]    `json:"time_zone,omitzero"`
		Picture    iam.Change[string]    `json:"picture,omitzero"`
		Profile    iam.Change[string]    `json:"profile,omitzero"`
		Website    iam.Change[string]    `json:"website,omitzero"`

		CustomAttributes iam.CustomAttributeChanges `json:"custom_attributes,omitempty"`
	}
)

func (*UserCreated) EventType() string           { return "UserCreated" }
func (*UserUniqueNameChanged) EventType() string { return "UserUniqueNameChanged" }
func (*UserPasswordChanged) EventType() string   { return "UserPasswordChanged" }
func (*UserPasswordRemoved) EventType() string   { return "UserPasswordRemoved" }
func (*UserIdentifierChanged) EventType() string { return "UserIdentifierChanged" }
func (*UserIdentifierRemoved) EventType() string { return "UserIdentifierRemoved" }
func (*UserRoleAdded) EventType() string         { return "UserRoleAdded" }
func (*UserRoleRemoved) EventType() string       { return "UserRoleRemoved" }
func (*UserDisabled) EventType() string          { return "UserDisabled" }
func (*UserEnabled) EventType() string           { return "UserEnabled" }
func (*UserSignedIn) EventType() string          { return "UserSignedIn" }
func (*UserAuthenticated) EventType() string     { return "UserAuthenticated" }
func (*UserDeleted) EventType() string           { return "UserDeleted" }
func (*UserUpdated) EventType() string           { return "UserUpdated" }

func (e *UserUpdated) HasChanges() bool {
	return e.Email.IsSet() || e.Phone.IsSet() || e.Address.IsSet() ||
		e.FirstName.IsSet() || e.MiddleName.IsSet() || e.LastName.IsSet() || e.Nickname.IsSet() ||
		e.Birthdate.IsSet() || e.Gender.IsSet() || e.Locale.IsSet() || e.TimeZone.IsSet() ||
		e.Picture.IsSet() || e.Profile.IsSet() || e.Website.IsSet() ||
		len(e.CustomAttributes) > 0
}
