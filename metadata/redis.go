// Package metadata persists content records in Redis, keyed by uid.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"atlas/config"
	"atlas/types"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 5 * time.Second

// RedisConfig configures the Redis connection and hash key.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Key      string // redis hash holding uid -> record JSON
}

// RedisStore is a Redis-hash-backed metadata store. It satisfies the
// metadata source and remover contracts the deduplication layer consumes.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStoreFromEnv creates a RedisStore using environment variables
// REDIS_ADDR, REDIS_PASS, REDIS_DB (optional), METADATA_KEY (optional).
func NewRedisStoreFromEnv() (*RedisStore, error) {
	cfg := RedisConfig{
		Addr:     config.GetEnv("REDIS_ADDR", config.DefaultRedisAddr),
		Password: config.GetEnv("REDIS_PASS", ""),
		DB:       config.GetEnvInt("REDIS_DB", 0),
		Key:      config.GetEnv("METADATA_KEY", config.DefaultMetadataKey),
	}
	return NewRedisStore(cfg)
}

// NewRedisStore creates a RedisStore and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Key == "" {
		cfg.Key = config.DefaultMetadataKey
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, key: cfg.Key}, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// GetAllMetadata returns every stored content record as a fresh slice.
// Entries that fail to decode are skipped with a warning rather than
// failing the whole fetch; a corrupt record must not block deduplication
// of the rest of the corpus.
func (s *RedisStore) GetAllMetadata() ([]types.ContentRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata hash %s: %w", s.key, err)
	}

	records := make([]types.ContentRecord, 0, len(entries))
	for uid, raw := range entries {
		var record types.ContentRecord
		if err := json.Unmarshal([]byte(raw), &record); err != nil {
			log.Printf("Warning: skipping corrupt metadata entry %s: %v", uid, err)
			continue
		}
		if record.UID == "" {
			record.UID = uid
		}
		records = append(records, record)
	}
	return records, nil
}

// Get fetches a single record by uid. A missing uid returns (nil, nil).
func (s *RedisStore) Get(uid string) (*types.ContentRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	raw, err := s.client.HGet(ctx, s.key, uid).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata entry %s: %w", uid, err)
	}

	var record types.ContentRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("corrupt metadata entry %s: %w", uid, err)
	}
	return &record, nil
}

// Save stores a record under its uid, overwriting any previous version.
func (s *RedisStore) Save(record *types.ContentRecord) error {
	if record.UID == "" {
		return fmt.Errorf("record has no uid")
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", record.UID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := s.client.HSet(ctx, s.key, record.UID, raw).Err(); err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.UID, err)
	}
	return nil
}

// Remove deletes the record with the given uid.
func (s *RedisStore) Remove(uid string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := s.client.HDel(ctx, s.key, uid).Err(); err != nil {
		return fmt.Errorf("failed to remove record %s: %w", uid, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *RedisStore) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count metadata entries: %w", err)
	}
	return int(n), nil
}
