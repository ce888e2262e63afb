package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "reminder:"

// RedisNotifier stores pending reminders in Redis. Each reminder lives
// under its identifier key with a TTL expiring at the fire time, so stale
// reminders clean themselves up. SET NX makes scheduling idempotent.
type RedisNotifier struct {
	client *redis.Client
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisNotifier(ctx context.Context, cfg RedisConfig) (*RedisNotifier, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisNotifier{client: client}, nil
}

// NewRedisNotifierWithClient wraps an existing client, mainly for tests.
func NewRedisNotifierWithClient(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

func (n *RedisNotifier) Close() error {
	return n.client.Close()
}

func (n *RedisNotifier) Schedule(ctx context.Context, reminder Reminder) error {
	ttl := time.Until(reminder.FireAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("encode reminder: %w", err)
	}

	key := redisKeyPrefix + reminder.Identifier()
	if err := n.client.SetNX(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("store reminder: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Remove(ctx context.Context, companyID, stageID string) error {
	key := redisKeyPrefix + ReminderIdentifier(companyID, stageID)
	if err := n.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("remove reminder: %w", err)
	}
	return nil
}

// Pending loads the reminder scheduled for the stage, if any.
func (n *RedisNotifier) Pending(ctx context.Context, companyID, stageID string) (Reminder, bool, error) {
	key := redisKeyPrefix + ReminderIdentifier(companyID, stageID)
	payload, err := n.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Reminder{}, false, nil
		}
		return Reminder{}, false, fmt.Errorf("load reminder: %w", err)
	}

	var reminder Reminder
	if err := json.Unmarshal(payload, &reminder); err != nil {
		return Reminder{}, false, fmt.Errorf("decode reminder: %w", err)
	}
	return reminder, true, nil
}
