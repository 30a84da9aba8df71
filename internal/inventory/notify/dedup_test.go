package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/meditrack/meditrack-backend/internal/inventory/notify"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestDedup(t *testing.T) (*notify.Dedup, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return notify.NewDedupWithClient(client, logger.New("test", "test")), mr
}

func TestDedup_FirstClaimWins(t *testing.T) {
	d, _ := newTestDedup(t)
	defer d.Close()

	ctx := context.Background()
	day := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-1", day))
	assert.False(t, d.ShouldNotify(ctx, "branch-1", "med-1", day))

	// Same moment from "another session" is still suppressed.
	assert.False(t, d.ShouldNotify(ctx, "branch-1", "med-1", day.Add(2*time.Hour)))
}

func TestDedup_KeysAreScoped(t *testing.T) {
	d, _ := newTestDedup(t)
	defer d.Close()

	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-1", day))
	assert.True(t, d.ShouldNotify(ctx, "branch-2", "med-1", day))
	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-2", day))

	// Next day is a fresh slot.
	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-1", day.AddDate(0, 0, 1)))
}

func TestDedup_ExpiryAndLowStockDoNotCollide(t *testing.T) {
	d, _ := newTestDedup(t)
	defer d.Close()

	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-1", day))
	assert.True(t, d.ShouldNotifyExpiry(ctx, "branch-1", "med-1", day))
	assert.False(t, d.ShouldNotifyExpiry(ctx, "branch-1", "med-1", day))
}

func TestDedup_SlotExpires(t *testing.T) {
	d, mr := newTestDedup(t)
	defer d.Close()

	ctx := context.Background()
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-1", day))
	mr.FastForward(25 * time.Hour)
	assert.True(t, d.ShouldNotify(ctx, "branch-1", "med-1", day))
}

func TestDedup_NilIsOpen(t *testing.T) {
	var d *notify.Dedup
	assert.True(t, d.ShouldNotify(context.Background(), "branch-1", "med-1", time.Now()))
	assert.NoError(t, d.Close())
}
