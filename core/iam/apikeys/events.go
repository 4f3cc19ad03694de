package apikeys

import (
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

type (
	ApiKeyCreated struct {
		TenantID    iam.TenantID    `json:"tenant_id,omitempty"`
		DisplayName string          `json:"display_name"`
		Secret      secret.Password `json:"secret"`
	}
	ApiKeyUpdated struct {
		DisplayName      iam.Change[string]         `json:"display_name,omitzero"`
		Description      iam.Change[string]         `json:"description,omitzero"`
		ExpiresOn        iam.Change[time.Time]      `json:"expires_on,omitzero"`
		CustomAttributes iam.CustomAttributeChanges `json:"custom_attributes,omitempty"`
	}
	ApiKeyRoleAdded struct {
		RoleID string `json:"role_id"`
	}
	ApiKeyRoleRemoved struct {
		RoleID string `json:"role_id"`
	}
	ApiKeyAuthenticated struct{}
	ApiKeyDeleted       struct{ es.Deletion }
)

func (*ApiKeyCreated) EventType() string       { return "ApiKeyCreated" }
func (*ApiKeyUpdated) EventType() string       { return "ApiKeyUpdated" }
func (*ApiKeyRoleAdded) EventType() string     { return "ApiKeyRoleAdded" }
func (*ApiKeyRoleRemoved) EventType() string   { return "ApiKeyRoleRemoved" }
func (*ApiKeyAuthenticated) EventType() string { return "ApiKeyAuthenticated" }
func (*ApiKeyDeleted) EventType() string       { return "ApiKeyDeleted" }

func (e *ApiKeyUpdated) HasChanges() bool {
	return e.DisplayName.IsSet() || e.Description.IsSet() || e.ExpiresOn.IsSet() || len(e.CustomAttributes) > 0
}
