package sessions

import (
	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

type (
	SessionCreated struct {
		UserID string           `json:"user_id"`
		Secret *secret.Password `json:"secret,omitempty"`
	}
	SessionRenewed struct {
		Secret           secret.Password            `json:"secret"`
		CustomAttributes iam.CustomAttributeChanges `json:"custom_attributes,omitempty"`
	}
	SessionSignedOut struct{}
	SessionUpdated   struct {
		CustomAttributes iam.CustomAttributeChanges `json:"custom_attributes,omitempty"`
	}
	SessionDeleted struct{ es.Deletion }
)

func (*SessionCreated) EventType() string   { return "SessionCreated" }
func (*SessionRenewed) EventType() string   { return "SessionRenewed" }
func (*SessionSignedOut) EventType() string { return "SessionSignedOut" }
func (*SessionUpdated) EventType() string   { return "SessionUpdated" }
func (*SessionDeleted) EventType() string   { return "SessionDeleted" }
