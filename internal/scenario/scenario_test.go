package scenario

import (
	"testing"

	"github.com/stretchr/testify/require"

	"rowtrack/internal/storage"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	st, err := storage.NewSQLite(storage.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st)
}

func TestCallerAssignedScenario(t *testing.T) {
	d := newTestDriver(t)
	ctx := t.Context()

	require.NoError(t, d.ResetCallerAssigned(ctx))
	require.NoError(t, d.RunCallerAssigned(ctx))
}

func TestStoreGeneratedScenario(t *testing.T) {
	d := newTestDriver(t)
	ctx := t.Context()

	require.NoError(t, d.ResetStoreGenerated(ctx))
	require.NoError(t, d.RunStoreGenerated(ctx))
}

func TestScenariosAreIdempotentAfterReset(t *testing.T) {
	d := newTestDriver(t)
	ctx := t.Context()

	for run := 0; run < 2; run++ {
		require.NoError(t, d.ResetCallerAssigned(ctx))
		require.NoError(t, d.RunCallerAssigned(ctx))

		require.NoError(t, d.ResetStoreGenerated(ctx))
		require.NoError(t, d.RunStoreGenerated(ctx))
	}
}

func TestScenariosShareOneDatabase(t *testing.T) {
	d := newTestDriver(t)
	ctx := t.Context()

	// The two pairs live in separate tables; running one scenario must not
	// disturb the other's seeded state.
	require.NoError(t, d.ResetCallerAssigned(ctx))
	require.NoError(t, d.ResetStoreGenerated(ctx))
	require.NoError(t, d.RunCallerAssigned(ctx))
	require.NoError(t, d.RunStoreGenerated(ctx))
}
