// Package manager saves aggregates after checking the uniqueness constraints
// the event store cannot enforce on its own: unique names, custom identifiers
// and email addresses per tenant.
//
// Checks run against replayed streams and are serialized per tenant within a
// process. Two processes saving conflicting aggregates at the same time can
// still both succeed.
//
// Every check replays all streams of the aggregate type, across tenants, so
// the cost of a save grows with the total number of users or roles.
package manager

import (
	"log/slog"

	"github.com/codewandler/iam-go/core/es"
	"github.com/codewandler/iam-go/core/iam"
	"github.com/codewandler/iam-go/core/iam/apikeys"
	"github.com/codewandler/iam-go/core/iam/otps"
	"github.com/codewandler/iam-go/core/iam/roles"
	"github.com/codewandler/iam-go/core/iam/sessions"
	"github.com/codewandler/iam-go/core/iam/users"
	"github.com/codewandler/iam-go/core/perkey"
)

type (
	Option  func(*options)
	options struct {
		log *slog.Logger
	}
)

func WithLog(l *slog.Logger) Option { return func(o *options) { o.log = l } }

// Manager bundles the per-aggregate managers over one repository.
type Manager struct {
	Users            *UserManager
	Roles            *RoleManager
	Sessions         *SessionManager
	ApiKeys          *ApiKeyManager
	OneTimePasswords *OneTimePasswordManager

	locks *perkey.Mutex[string]
}

func New(repo es.Repository, opts ...Option) *Manager {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	var (
		locks = perkey.New[string]()
		log   = o.log.With(slog.String("component", "iam.manager"))
		us    = users.NewRepository(repo)
		rs    = roles.NewRepository(repo)
		ss    = sessions.NewRepository(repo)
		ks    = apikeys.NewRepository(repo)
	)
	return &Manager{
		Users:            &UserManager{users: us, sessions: ss, locks: locks, log: log},
		Roles:            &RoleManager{roles: rs, users: us, apiKeys: ks, locks: locks, log: log},
		Sessions:         &SessionManager{repo: ss},
		ApiKeys:          &ApiKeyManager{repo: ks},
		OneTimePasswords: &OneTimePasswordManager{repo: otps.NewRepository(repo)},
		locks:            locks,
	}
}

// Close rejects further saves and waits for running ones.
func (m *Manager) Close() { m.locks.Close() }

func lockKey(aggType string, tenantID iam.TenantID) string {
	return aggType + "/" + string(tenantID)
}
