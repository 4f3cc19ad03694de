package postgres

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

type Testing interface {
	require.TestingT
	Context() context.Context
	Skip(args ...any)
	Helper()
	Cleanup(func())
}

// NewTestContainer starts PostgreSQL and returns its DSN. It skips the test
// unless IAM_INTEGRATION=1.
func NewTestContainer(t Testing) string {
	t.Helper()
	if os.Getenv("IAM_INTEGRATION") != "1" {
		t.Skip("set IAM_INTEGRATION=1 to run against a postgres container")
	}
	ctx := t.Context()
	pgC, err := testcontainers.Run(
		ctx, "postgres:17-alpine",
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "iam",
			"POSTGRES_PASSWORD": "iam",
			"POSTGRES_DB":       "iam",
		}),
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgC); err != nil {
			t.Errorf("failed to terminate container: %s", err.Error())
		}
	})

	endpoint, err := pgC.PortEndpoint(ctx, "5432/tcp", "")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://iam:iam@%s/iam?sslmode=disable", endpoint)
}
