package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const dedupTTL = 24 * time.Hour

// Dedup is the authoritative notification deduplicator. A subject (medicine
// for low-stock, batch for expiry) at a branch alerts at most once per
// calendar day, whichever session or instance observes the condition first.
// Keys expire on their own after 24h.
type Dedup struct {
	client *redis.Client
	logger *logger.Logger
}

// NewDedup connects to Redis and returns a deduplicator
func NewDedup(cfg *config.RedisConfig, log *logger.Logger) (*Dedup, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Dedup{client: client, logger: log.WithComponent("notify-dedup")}, nil
}

// NewDedupWithClient wires an existing client, used by tests
func NewDedupWithClient(client *redis.Client, log *logger.Logger) *Dedup {
	return &Dedup{client: client, logger: log.WithComponent("notify-dedup")}
}

// ShouldNotify claims the low-stock (branch, medicine, day) slot. The first
// caller for a given day gets true; everyone after gets false until the key
// expires. When Redis is unreachable the notification goes through: a
// duplicate alert beats a silently dropped one.
func (d *Dedup) ShouldNotify(ctx context.Context, branchID, medicineID string, day time.Time) bool {
	return d.claim(ctx, "lowstock", branchID, medicineID, day)
}

// ShouldNotifyExpiry claims the expiry-warning slot for a batch
func (d *Dedup) ShouldNotifyExpiry(ctx context.Context, branchID, batchID string, day time.Time) bool {
	return d.claim(ctx, "expiry", branchID, batchID, day)
}

func (d *Dedup) claim(ctx context.Context, kind, branchID, subjectID string, day time.Time) bool {
	if d == nil {
		return true
	}

	key := fmt.Sprintf("%s:%s:%s:%s", kind, branchID, subjectID, day.UTC().Format("2006-01-02"))

	claimed, err := d.client.SetNX(ctx, key, 1, dedupTTL).Result()
	if err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("dedup check failed, allowing notification")
		return true
	}
	return claimed
}

// Close closes the Redis connection
func (d *Dedup) Close() error {
	if d == nil {
		return nil
	}
	return d.client.Close()
}

// Health reports the Redis connection state
func (d *Dedup) Health(ctx context.Context) string {
	if d == nil {
		return "disabled"
	}
	if err := d.client.Ping(ctx).Err(); err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
