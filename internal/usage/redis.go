package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// retention keeps a period's counter around a little past the period end.
const retention = 40 * 24 * time.Hour

type RedisMeter struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisMeter(client *redis.Client, now func() time.Time) *RedisMeter {
	if now == nil {
		now = time.Now
	}
	return &RedisMeter{client: client, now: now}
}

func (m *RedisMeter) Incr(ctx context.Context, userID string) (int64, error) {
	k := key(userID, Period(m.now()))
	pipe := m.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr usage: %w", err)
	}
	return incr.Val(), nil
}

func (m *RedisMeter) Used(ctx context.Context, userID string) (int64, error) {
	n, err := m.client.Get(ctx, key(userID, Period(m.now()))).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get usage: %w", err)
	}
	return n, nil
}
