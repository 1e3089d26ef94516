package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/slimecraft/shop/internal/auth"
	"github.com/slimecraft/shop/internal/testutil"
)

func TestLoginGuardAgainstPostgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	pool, cleanup := testutil.StartPostgres(ctx, t)
	t.Cleanup(cleanup)

	admins := auth.NewPostgresAdminStore(pool)
	windows := auth.NewPostgresWindowStore(pool)
	audit := auth.NewPostgresAuditStore(pool)
	guard := auth.NewGuard(admins, windows, audit, nil)

	violations, err := guard.CreateAdmin(ctx, "Root", "root@example.com", "Str0ng!Passw0rd")
	require.NoError(t, err)
	require.Empty(t, violations)

	const addr = "203.0.113.9"

	for i := 0; i < 5; i++ {
		d, err := guard.Authenticate(ctx, "root@example.com", "wrong", addr)
		require.NoError(t, err)
		require.Equal(t, auth.DecisionIncorrect, d)
	}

	d, err := guard.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", addr)
	require.NoError(t, err)
	require.Equal(t, auth.DecisionLocked, d, "correct password must not bypass the lockout")

	// a different source address is unaffected
	d, err = guard.Authenticate(ctx, "root@example.com", "Str0ng!Passw0rd", "198.51.100.7")
	require.NoError(t, err)
	require.Equal(t, auth.DecisionAuthenticated, d)

	events, err := audit.RecentEvents(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 7)

	bySeverity := map[string]int{}
	for _, e := range events {
		bySeverity[e.Severity]++
	}
	require.Equal(t, 6, bySeverity[auth.SeverityHigh], "five failures plus one lockout")
	require.Equal(t, 1, bySeverity[auth.SeverityCritical])
}
