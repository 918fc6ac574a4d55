package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisEventsKey = "voxelrelay:events"

type RedisRepository struct {
	client *redis.Client
	limit  int64
}

// NewRedisRepository connects to Redis and verifies the connection.
// Events are kept in a list capped at limit entries, most recent first.
func NewRedisRepository(url string, limit int) (*RedisRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisRepository{
		client: client,
		limit:  int64(limit),
	}, nil
}

// NewRedisRepositoryWithClient wraps an existing client (for testing).
func NewRedisRepositoryWithClient(client *redis.Client, limit int) *RedisRepository {
	return &RedisRepository{
		client: client,
		limit:  int64(limit),
	}
}

func (r *RedisRepository) RecordEvent(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.LPush(ctx, redisEventsKey, data)
	pipe.LTrim(ctx, redisEventsKey, 0, r.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record event: %w", err)
	}
	return nil
}

func (r *RedisRepository) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	values, err := r.client.LRange(ctx, redisEventsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	events := make([]Event, 0, len(values))
	for _, v := range values {
		var event Event
		if err := json.Unmarshal([]byte(v), &event); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *RedisRepository) Close(_ context.Context) error {
	return r.client.Close()
}
