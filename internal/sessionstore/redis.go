package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Simplici0/markup/internal/config"
	"github.com/Simplici0/markup/internal/logger"
	"github.com/Simplici0/markup/internal/wizard"
)

const keyPrefix = "markup:session:"

// Redis stores sessions as JSON with a sliding expiry.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// ConnectRedis creates a client and waits until the server answers PING.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, log logger.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second

	notify := func(err error, next time.Duration) {
		log.Warn("redis not ready, retrying", map[string]interface{}{
			"addr":  cfg.Addr,
			"error": err.Error(),
			"retry": next.String(),
		})
	}

	_, err := backoff.Retry(ctx, func() (string, error) {
		return client.Ping(ctx).Result()
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(5),
		backoff.WithNotify(notify))
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

func (r *Redis) Load(ctx context.Context, id string) (wizard.Session, error) {
	raw, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return wizard.Session{}, ErrNotFound
	}
	if err != nil {
		return wizard.Session{}, fmt.Errorf("get session: %w", err)
	}

	var s wizard.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return wizard.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return s, nil
}

func (r *Redis) Save(ctx context.Context, s wizard.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+s.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
