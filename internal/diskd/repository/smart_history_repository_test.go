package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jimyag/diskd/internal/diskd/repository/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmartHistoryRepository(t *testing.T) {
	t.Parallel()

	repo := setupTestDB(t)
	historyRepo := NewSmartHistoryRepository(repo.DB())
	ctx := context.Background()

	temp := 38
	now := time.Now()
	entries := []*model.SmartHistory{
		{DeviceID: "sda", Serial: strPtr("S-A"), Temperature: &temp, Health: "GOOD", Source: "diagnostic", CreatedAt: now.Add(-time.Minute)},
		{DeviceID: "sda", Serial: strPtr("S-A"), Health: "BAD", Source: "import", CreatedAt: now},
		{DeviceID: "sdb", Health: "GOOD", Source: "diagnostic", CreatedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, historyRepo.Append(ctx, e))
		assert.NotZero(t, e.ID)
	}

	all, err := historyRepo.List(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	sda, err := historyRepo.List(ctx, map[string]interface{}{"device_id": "sda"}, 0)
	require.NoError(t, err)
	require.Len(t, sda, 2)
	assert.Equal(t, "BAD", sda[0].Health)
	require.NotNil(t, sda[1].Temperature)
	assert.Equal(t, 38, *sda[1].Temperature)

	bad, err := historyRepo.List(ctx, map[string]interface{}{"health": "BAD"}, 10)
	require.NoError(t, err)
	assert.Len(t, bad, 1)

	n, err := historyRepo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
