package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/domain"
)

// historyTTL bounds how long an idle session's history survives.
const historyTTL = 7 * 24 * time.Hour

// Redis keeps history in a redis list per session so it survives daemon
// restarts.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects and verifies the connection; the caller falls back to
// InMemory when this fails.
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func key(session string) string {
	return "askdb:history:" + session
}

func (r *Redis) Append(ctx context.Context, session string, msgs ...domain.HistoryMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal history message: %w", err)
		}
		values = append(values, data)
	}

	pipe := r.rdb.Pipeline()
	pipe.RPush(ctx, key(session), values...)
	pipe.Expire(ctx, key(session), historyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (r *Redis) Messages(ctx context.Context, session string) ([]domain.HistoryMessage, error) {
	raw, err := r.rdb.LRange(ctx, key(session), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	msgs := make([]domain.HistoryMessage, 0, len(raw))
	for _, item := range raw {
		var m domain.HistoryMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			// Skip entries written by an incompatible version.
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (r *Redis) Clear(ctx context.Context, session string) error {
	if err := r.rdb.Del(ctx, key(session)).Err(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (r *Redis) Exists(ctx context.Context, session string) (bool, error) {
	n, err := r.rdb.Exists(ctx, key(session)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check history: %w", err)
	}
	return n > 0, nil
}
