package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nerrad567/sensor-relay/internal/infrastructure/config"
	"github.com/nerrad567/sensor-relay/internal/telemetry"
)

// RedisRepository appends readings to a capped stream and keeps the latest
// significant value per channel under <prefix>:last:<channel>.
type RedisRepository struct {
	rdb       goredis.Cmdable
	stream    string
	maxLen    int64
	keyPrefix string
	ttl       time.Duration
}

// NewRedisRepository creates a repository from the redis storage settings.
func NewRedisRepository(rdb goredis.Cmdable, cfg config.RedisConfig) *RedisRepository {
	return &RedisRepository{
		rdb:       rdb,
		stream:    cfg.Stream,
		maxLen:    cfg.MaxLen,
		keyPrefix: cfg.KeyPrefix,
		ttl:       time.Duration(cfg.LatestTTL) * time.Second,
	}
}

// LatestKey returns the key holding the last stored value for ch.
func (r *RedisRepository) LatestKey(ch telemetry.Channel) string {
	return r.keyPrefix + ":last:" + string(ch)
}

// AppendReading writes the stream entry and latest-value keys in one
// MULTI/EXEC transaction.
func (r *RedisRepository) AppendReading(ctx context.Context, reading telemetry.Reading, recordedAt time.Time) error {
	ts := recordedAt.UTC()

	_, err := r.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.XAdd(ctx, &goredis.XAddArgs{
			Stream: r.stream,
			MaxLen: r.maxLen,
			Approx: r.maxLen > 0,
			Values: map[string]interface{}{
				"light":       reading.Light(),
				"sound":       reading.Sound(),
				"motion":      reading.Motion(),
				"recorded_at": strconv.FormatInt(ts.UnixMilli(), 10),
			},
		})

		for ch, value := range map[telemetry.Channel]string{
			telemetry.ChannelLight:  reading.Light(),
			telemetry.ChannelSound:  reading.Sound(),
			telemetry.ChannelMotion: reading.Motion(),
		} {
			if value == telemetry.NotAvailable {
				continue
			}
			pipe.Set(ctx, r.LatestKey(ch), value, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing reading to redis: %w", err)
	}
	return nil
}
