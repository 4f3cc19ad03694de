package roles

import (
	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
)

type (
	RoleCreated struct {
		TenantID   iam.TenantID   `json:"tenant_id,omitempty"`
		UniqueName iam.UniqueName `json:"unique_name"`
	}
	RoleUniqueNameChanged struct {
		UniqueName iam.UniqueName `json:"unique_name"`
	}
	RoleUpdated struct {
		DisplayName      iam.Change[string]         `json:"display_name,omitzero"`
		Description      iam.Change[string]         `json:"description,omitzero"`
		CustomAttributes iam.CustomAttributeChanges `json:"custom_attributes,omitempty"`
	}
	RoleDeleted struct{ es.Deletion }
)

func (*RoleCreated) EventType() string           { return "RoleCreated" }
func (*RoleUniqueNameChanged) EventType() string { return "RoleUniqueNameChanged" }
func (*RoleUpdated) EventType() string           { return "RoleUpdated" }
func (*RoleDeleted) EventType() string           { return "RoleDeleted" }

func (e *RoleUpdated) HasChanges() bool {
	return e.DisplayName.IsSet() || e.Description.IsSet() || len(e.CustomAttributes) > 0
}
