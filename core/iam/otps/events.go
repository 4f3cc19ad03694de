package otps

import (
	"time"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/secret"
)

type (
	OneTimePasswordCreated struct {
		TenantID        iam.TenantID    `json:"tenant_id,omitempty"`
		Password        secret.Password `json:"password"`
		ExpiresOn       *time.Time      `json:"expires_on,omitempty"`
		MaximumAttempts *int            `json:"maximum_attempts,omitempty"`
	}
	OneTimePasswordValidationFailed    struct{}
	OneTimePasswordValidationSucceeded struct{}
	OneTimePasswordUpdated             struct {
		CustomAttributes iam.CustomAttributeChanges `json:"custom_attributes,omitempty"`
	}
	OneTimePasswordDeleted struct{ es.Deletion }
)

func (*OneTimePasswordCreated) EventType() string          { return "OneTimePasswordCreated" }
func (*OneTimePasswordValidationFailed) EventType() string { return "OneTimePasswordValidationFailed" }
func (*OneTimePasswordValidationSucceeded) EventType() string {
	return "OneTimePasswordValidationSucceeded"
}
func (*OneTimePasswordUpdated) EventType() string { return "OneTimePasswordUpdated" }
func (*OneTimePasswordDeleted) EventType() string { return "OneTimePasswordDeleted" }
