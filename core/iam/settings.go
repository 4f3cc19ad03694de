package iam

import "github.com/codewandler/iam-go/core/secret"

const DefaultAllowedCharacters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-._@+"

// UniqueNameSettings restricts the characters of unique names. An empty
// AllowedCharacters allows everything.
type UniqueNameSettings struct {
	AllowedCharacters string `yaml:"allowed_characters"`
}

type UserSettings struct {
	UniqueName              UniqueNameSettings      `yaml:"unique_name"`
	Password                secret.PasswordSettings `yaml:"password"`
	RequireUniqueEmail      bool                    `yaml:"require_unique_email"`
	RequireConfirmedAccount bool                    `yaml:"require_confirmed_account"`
}

type RoleSettings struct {
	UniqueName UniqueNameSettings `yaml:"unique_name"`
}

type ApiKeySettings struct {
	// Prefix is the first segment of API key tokens.
	Prefix string `yaml:"prefix"`
}

// TenantSettings groups the settings one tenant applies to its entities.
type TenantSettings struct {
	User   UserSettings   `yaml:"user"`
	Role   RoleSettings   `yaml:"role"`
	ApiKey ApiKeySettings `yaml:"api_key"`
}

func DefaultTenantSettings() TenantSettings {
	names := UniqueNameSettings{AllowedCharacters: DefaultAllowedCharacters}
	return TenantSettings{
		User: UserSettings{
			UniqueName:         names,
			Password:           secret.DefaultPasswordSettings(),
			RequireUniqueEmail: true,
		},
		Role:   RoleSettings{UniqueName: names},
		ApiKey: ApiKeySettings{Prefix: "PK"},
	}
}
