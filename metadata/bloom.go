package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"atlas/config"
)

// BloomConfig configures the RedisBloom connection and key
type BloomConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	Key      string // redis key for the bloom filter
	TTL      time.Duration
	// Capacity sets the initial BF.RESERVE capacity (number of items)
	Capacity int
	// ErrorRate sets the desired false positive probability (e.g. 0.001)
	ErrorRate float64
}

// URLBloom tracks seen content URLs in a Redis-backed Bloom filter. It
// answers "definitely new" cheaply so the storage probe only runs for
// URLs that might already exist.
type URLBloom struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewURLBloomFromEnv creates a URLBloom using environment variables
// REDIS_ADDR, REDIS_PASS, BLOOM_KEY (optional), BLOOM_TTL_SECONDS (optional)
func NewURLBloomFromEnv() (*URLBloom, error) {
	cfg := BloomConfig{
		Addr:     config.GetEnv("REDIS_ADDR", config.DefaultRedisAddr),
		Password: config.GetEnv("REDIS_PASS", ""),
		DB:       config.GetEnvInt("REDIS_DB", 0),
		Key:      config.GetEnv("BLOOM_KEY", "atlas:urls:bloom"),
		TTL:      24 * time.Hour,
		Capacity: config.GetEnvInt("BLOOM_CAPACITY", 100000),
	}
	if t := config.GetEnv("BLOOM_TTL_SECONDS", ""); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			cfg.TTL = time.Duration(secs) * time.Second
		}
	}
	cfg.ErrorRate = 0.001
	if e := config.GetEnv("BLOOM_ERROR_RATE", ""); e != "" {
		if v, err := strconv.ParseFloat(e, 64); err == nil && v > 0 {
			cfg.ErrorRate = v
		}
	}
	return NewURLBloom(cfg)
}

// NewURLBloom creates a URLBloom and verifies connectivity
func NewURLBloom(cfg BloomConfig) (*URLBloom, error) {
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

	b := &URLBloom{client: client, key: cfg.Key, ttl: cfg.TTL}

	// Reserve the filter up front when the key is new. If the RedisBloom
	// module is missing, BF.ADD may still auto-create the filter, so a
	// failed reserve is not fatal.
	exists, err := client.Exists(ctx, cfg.Key).Result()
	if err == nil && exists == 0 {
		args := []interface{}{"BF.RESERVE", cfg.Key, fmt.Sprintf("%f", cfg.ErrorRate), cfg.Capacity}
		if err := client.Do(ctx, args...).Err(); err != nil {
			log.Printf("Warning: BF.RESERVE failed for %s: %v", cfg.Key, err)
		}
	}

	return b, nil
}

// Close closes the underlying Redis client
func (b *URLBloom) Close() error {
	return b.client.Close()
}

// Seen checks whether the URL may have been recorded before. False means
// definitely new; true may be a false positive.
func (b *URLBloom) Seen(rawURL string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	res, err := b.client.Do(ctx, "BF.EXISTS", b.key, hashURL(rawURL)).Result()
	if err != nil {
		return false, err
	}

	switch v := res.(type) {
	case int64:
		return v == 1, nil
	case string:
		return v == "1", nil
	default:
		return false, fmt.Errorf("unexpected BF.EXISTS response type %T: %v", res, res)
	}
}

// MarkSeen records the URL and refreshes the TTL so the filter stays
// alive for ttl after the most recent insertion.
func (b *URLBloom) MarkSeen(rawURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := b.client.Do(ctx, "BF.ADD", b.key, hashURL(rawURL)).Err(); err != nil {
		return err
	}
	return b.client.Expire(ctx, b.key, b.ttl).Err()
}

// hashURL returns a SHA-256 hex hash of the normalized URL.
func hashURL(rawURL string) string {
	h := sha256.Sum256([]byte(normalizeURL(rawURL)))
	return hex.EncodeToString(h[:])
}

// normalizeURL strips fragments and common tracking query params, and
// lowercases the scheme and host, so equivalent links hash identically.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	out := u.String()
	if strings.HasSuffix(out, "/") {
		out = strings.TrimRight(out, "/")
	}
	return out
}

// SeenChecker answers whether a URL may have been recorded before.
// Satisfied by URLBloom.
type SeenChecker interface {
	Seen(url string) (bool, error)
}

// URLExistenceChecker is the downstream existence probe.
type URLExistenceChecker interface {
	Exists(url string) (bool, error)
}

// SeenFilter wraps a URL existence check with the Bloom pre-filter: a
// definite miss skips the storage probe entirely.
type SeenFilter struct {
	bloom SeenChecker
	next  URLExistenceChecker
}

// NewSeenFilter wraps next with the given Bloom filter.
func NewSeenFilter(bloom SeenChecker, next URLExistenceChecker) *SeenFilter {
	return &SeenFilter{bloom: bloom, next: next}
}

// Exists consults the Bloom filter first and falls back to the wrapped
// probe on a possible hit or on filter errors.
func (f *SeenFilter) Exists(url string) (bool, error) {
	seen, err := f.bloom.Seen(url)
	if err != nil {
		log.Printf("Warning: bloom check failed, probing storage directly: %v", err)
		return f.next.Exists(url)
	}
	if !seen {
		return false, nil
	}
	return f.next.Exists(url)
}
