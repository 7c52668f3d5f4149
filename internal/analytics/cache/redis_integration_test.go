//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort/internal/analytics/cache"
	"cohort/internal/analytics/models"
	id "cohort/pkg/domain"
	"cohort/pkg/testutil/containers"
)

func TestSnapshotCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	snapshots := cache.New(rc.Client)

	snap := &models.Snapshot{
		ID:               1,
		OrganizationID:   3,
		TotalMembers:     10,
		ActiveMembers:    7,
		AgeDistribution:  map[string]int{"Teens (13-17)": 4},
		RoleDistribution: map[string]int{"member": 10},
		LastUpdated:      time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC),
	}

	t.Run("miss returns nil without error", func(t *testing.T) {
		got, err := snapshots.Get(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set then get round-trips", func(t *testing.T) {
		require.NoError(t, snapshots.Set(ctx, snap))

		got, err := snapshots.Get(ctx, 3)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, snap.TotalMembers, got.TotalMembers)
		assert.Equal(t, snap.AgeDistribution, got.AgeDistribution)
		assert.True(t, snap.LastUpdated.Equal(got.LastUpdated))
	})

	t.Run("organizations are keyed separately", func(t *testing.T) {
		got, err := snapshots.Get(ctx, id.OrganizationID(4))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		require.NoError(t, snapshots.Invalidate(ctx, 3))

		got, err := snapshots.Get(ctx, 3)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
