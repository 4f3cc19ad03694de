package es

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// StartTestEnv starts an in-memory Env that is shut down with the test.
func StartTestEnv(t testing.TB, opts ...EnvOption) *Env {
	t.Helper()
	e, err := NewEnv(
		WithInMemory(),
		WithCtx(t.Context()),
		WithEnvOpts(opts...),
	)
	require.NoError(t, err)
	t.Cleanup(e.Shutdown)
	return e
}
