package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/manager"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/core/secret"
	"github.com/codewandler/iam-go/internal/config"
)

const systemActor = "system"

// bootstrapAdmin makes sure the configured administrator exists with the
// admin role. Existing users keep their password.
func bootstrapAdmin(ctx context.Context, b config.Bootstrap, settings iam.TenantSettings, m *manager.Manager, log *slog.Logger) error {
	tenantID, err := iam.ParseTenantID(b.TenantID)
	if err != nil {
		return err
	}
	roleName, err := iam.NewUniqueName(settings.Role.UniqueName, b.AdminRole)
	if err != nil {
		return fmt.Errorf("admin role: %w", err)
	}
	userName, err := iam.NewUniqueName(settings.User.UniqueName, b.AdminName)
	if err != nil {
		return fmt.Errorf("admin user: %w", err)
	}

	role, err := m.Roles.Repository().LoadByUniqueName(ctx, tenantID, roleName)
	if err != nil {
		return err
	}
	if role == nil {
		if role, err = roles.New(roleName, tenantID, systemActor); err != nil {
			return err
		}
		if err := m.Roles.Save(ctx, role); err != nil {
			return fmt.Errorf("save admin role: %w", err)
		}
		log.Info("created admin role", slog.String("id", role.GetID()))
	}

	user, err := m.Users.Repository().LoadByUniqueName(ctx, tenantID, userName)
	if err != nil {
		return err
	}
	if user == nil {
		if user, err = users.New(userName, tenantID, systemActor); err != nil {
			return err
		}
		pw, err := secret.Hasher{}.ValidateAndHash(settings.User.Password, b.AdminPassword)
		if err != nil {
			return fmt.Errorf("admin password: %w", err)
		}
		if err := user.SetPassword(pw, systemActor); err != nil {
			return err
		}
	}
	if err := user.AddRole(role, systemActor); err != nil {
		return err
	}
	if !user.HasChanges() {
		log.Debug("admin already bootstrapped", slog.String("id", user.GetID()))
		return nil
	}
	if err := m.Users.Save(ctx, settings.User, user); err != nil {
		return fmt.Errorf("save admin user: %w", err)
	}
	log.Info("bootstrapped admin", slog.String("id", user.GetID()), slog.String("name", userName.String()))
	return nil
}
