package coordination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/mindhive/core"
)

// RedisBacklogMirror publishes backlog mutations into a Redis sorted set
// (scored by priority) so other processes can observe the same backlog
// without reading the flat file, the way gomind's redis_discovery.go lets
// discovery share state across instances instead of staying in-process.
type RedisBacklogMirror struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// NewRedisBacklogMirror connects to redisURL and returns a mirror keyed
// under namespace (defaults to core.DefaultRedisPrefix).
func NewRedisBacklogMirror(redisURL, namespace string, logger core.Logger) (*RedisBacklogMirror, error) {
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
		logger = cal.WithComponent("coordination/redis")
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

	logger.Info("redis backlog mirror connected", map[string]interface{}{"namespace": namespace})

	return &RedisBacklogMirror{client: client, namespace: namespace, logger: logger}, nil
}

func (m *RedisBacklogMirror) setKey() string {
	return m.namespace + "backlog"
}

// Publish writes item into the mirrored sorted set, scored by priority so
// ZREVRANGE reproduces the in-process Backlog's priority-desc ordering.
// Items of equal priority come back in reverse lexicographic order of
// their serialized JSON, not in insertion order.
func (m *RedisBacklogMirror) Publish(ctx context.Context, item *BacklogItem) error {
	data, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling backlog item: %w", err)
	}
	if err := m.client.ZAdd(ctx, m.setKey(), &redis.Z{
		Score:  float64(item.Priority),
		Member: data,
	}).Err(); err != nil {
		return fmt.Errorf("publishing backlog item: %w", err)
	}
	return nil
}

// Snapshot returns every mirrored item, highest priority first.
func (m *RedisBacklogMirror) Snapshot(ctx context.Context) ([]*BacklogItem, error) {
	raw, err := m.client.ZRevRange(ctx, m.setKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading backlog mirror: %w", err)
	}

	items := make([]*BacklogItem, 0, len(raw))
	for _, s := range raw {
		var item BacklogItem
		if err := json.Unmarshal([]byte(s), &item); err != nil {
			continue
		}
		items = append(items, &item)
	}
	return items, nil
}

// Close releases the underlying Redis connection.
func (m *RedisBacklogMirror) Close() error {
	return m.client.Close()
}
