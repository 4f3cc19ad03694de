package manager

import (
	"context"

	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/otps"
	"github.com/codewandler/iam-go/core/iam/sessions"
)

// Sessions, API keys and one-time passwords carry no tenant-unique values.

type SessionManager struct{ repo *sessions.Repository }

func (m *SessionManager) Repository() *sessions.Repository { return m.repo }
func (m *SessionManager) Save(ctx context.Context, s ...*sessions.Session) error {
	return m.repo.Save(ctx, s...)
}

type ApiKeyManager struct{ repo *apikeys.Repository }

func (m *ApiKeyManager) Repository() *apikeys.Repository { return m.repo }
func (m *ApiKeyManager) Save(ctx context.Context, k ...*apikeys.ApiKey) error {
	return m.repo.Save(ctx, k...)
}

type OneTimePasswordManager struct{ repo *otps.Repository }

func (m *OneTimePasswordManager) Repository() *otps.Repository { return m.repo }
func (m *OneTimePasswordManager) Save(ctx context.Context, o ...*otps.OneTimePassword) error {
	return m.repo.Save(ctx, o...)
}
