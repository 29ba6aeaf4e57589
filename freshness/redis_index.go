package freshness

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gridmind/gridmind/core"
)

// RedisIndex is the Redis-backed document index. Records are grouped by
// every string metadata field they carry, so a record indexed with
// {"zip": "80202", "state": "CO"} is retrievable by either filter.
//
// Key layout: <namespace>:<domain>:<filterKey>:<filterValue> -> JSON array
// of records. Upsert replaces the whole group; partial merges are not
// needed because tools always re-index a complete fetch result.
type RedisIndex struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// NewRedisIndex connects to Redis at redisURL and verifies the connection.
func NewRedisIndex(redisURL, namespace string, logger core.Logger) (*RedisIndex, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if namespace == "" {
		namespace = "gridmind:index"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: redis ping: %v", core.ErrConnectionFailed, err)
	}

	logger.Info("Connected to Redis document index", map[string]interface{}{
		"operation": "redis_index_connect",
		"namespace": namespace,
	})
	return &RedisIndex{client: client, namespace: namespace, logger: logger}, nil
}

func (r *RedisIndex) key(domain, filterKey, filterValue string) string {
	return fmt.Sprintf("%s:%s:%s:%s", r.namespace, domain, filterKey, filterValue)
}

// Query returns up to topK records for the filter, in stored order.
func (r *RedisIndex) Query(ctx context.Context, domain, filterKey, filterValue string, topK int) ([]core.IndexRecord, error) {
	data, err := r.client.Get(ctx, r.key(domain, filterKey, filterValue)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get: %v", core.ErrConnectionFailed, err)
	}

	var records []core.IndexRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("corrupt index entry for %s: %w", domain, err)
	}
	if topK > 0 && len(records) > topK {
		records = records[:topK]
	}
	return records, nil
}

// Upsert stamps each record with indexed_at (unless already set) and
// stores the batch under every string metadata filter it carries.
func (r *RedisIndex) Upsert(ctx context.Context, domain string, records []core.IndexRecord) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	groups := make(map[string][]core.IndexRecord)
	for _, rec := range records {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]interface{})
		}
		if _, ok := rec.Metadata["indexed_at"]; !ok {
			rec.Metadata["indexed_at"] = now
		}
		for k, v := range rec.Metadata {
			if k == "indexed_at" {
				continue
			}
			s, ok := v.(string)
			if !ok || s == "" {
				continue
			}
			key := r.key(domain, k, s)
			groups[key] = append(groups[key], rec)
		}
	}

	pipe := r.client.Pipeline()
	for key, group := range groups {
		data, err := json.Marshal(group)
		if err != nil {
			return fmt.Errorf("marshaling index group %s: %w", key, err)
		}
		pipe.Set(ctx, key, data, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis pipeline: %v", core.ErrConnectionFailed, err)
	}

	r.logger.Debug("Indexed records", map[string]interface{}{
		"operation": "index_upsert",
		"domain":    domain,
		"records":   len(records),
		"groups":    len(groups),
	})
	return nil
}

// Close releases the Redis connection.
func (r *RedisIndex) Close() error {
	return r.client.Close()
}
