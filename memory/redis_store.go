package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/mindhive/core"
)

// RedisStore mirrors trace records into a Redis list so multiple processes
// can share one agent's trace history, the way gomind's RedisClient gives
// discovery a shared backing store instead of an in-process map.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// NewRedisStore connects to redisURL and returns a mirror keyed under
// namespace (defaults to core.DefaultRedisPrefix).
func NewRedisStore(redisURL, namespace string, logger core.Logger) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", core.ErrInvalidConfiguration)
	}
	if namespace == "" {
		namespace = core.DefaultRedisPrefix
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cal, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cal.WithComponent("memory/redis")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", core.ErrInvalidConfiguration)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", core.ErrConnectionFailed)
	}

	logger.Info("redis trace mirror connected", map[string]interface{}{"namespace": namespace})

	return &RedisStore{client: client, namespace: namespace, logger: logger}, nil
}

func (r *RedisStore) key(agentID string) string {
	return fmt.Sprintf("%straces:%s", r.namespace, agentID)
}

// Append pushes rec onto agentID's trace list.
func (r *RedisStore) Append(ctx context.Context, agentID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling trace record: %w", err)
	}
	if err := r.client.RPush(ctx, r.key(agentID), data).Err(); err != nil {
		return fmt.Errorf("pushing trace record: %w", err)
	}
	return nil
}

// Recent returns up to count most recent records for agentID, newest last
// (matching the underlying list's append order).
func (r *RedisStore) Recent(ctx context.Context, agentID string, count int) ([]Record, error) {
	if count <= 0 {
		count = 100
	}
	raw, err := r.client.LRange(ctx, r.key(agentID), int64(-count), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading trace records: %w", err)
	}

	records := make([]Record, 0, len(raw))
	for _, s := range raw {
		var rec Record
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
