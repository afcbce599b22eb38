package resetflow_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/scaffold-dashboard/server/resetflow"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	resetflow.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { resetflow.NowTimeFunc = time.Now })

	repo := resetflow.NewInMemoryRepo()

	t.Run("empty id", func(t *testing.T) {
		require.Error(t, repo.Upsert("", &resetflow.Flow{}))
		_, err := repo.Get("")
		require.ErrorIs(t, err, resetflow.ErrFlowNotFound)
	})

	t.Run("round trip returns a copy", func(t *testing.T) {
		require.NoError(t, repo.Upsert("flow-1", &resetflow.Flow{Email: "jane@example.com", CreatedAt: now}))

		got, err := repo.Get("flow-1")
		require.NoError(t, err)
		require.Equal(t, "jane@example.com", got.Email)
		require.False(t, got.Verified)

		got.Verified = true
		again, err := repo.Get("flow-1")
		require.NoError(t, err)
		require.False(t, again.Verified)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		require.NoError(t, repo.Upsert("flow-2", &resetflow.Flow{Email: "old@example.com", CreatedAt: now.Add(-resetflow.FlowTTL)}))
		_, err := repo.Get("flow-2")
		require.ErrorIs(t, err, resetflow.ErrFlowNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete("flow-1"))
		require.NoError(t, repo.Delete("flow-1"))
		_, err := repo.Get("flow-1")
		require.ErrorIs(t, err, resetflow.ErrFlowNotFound)
	})
}
