package config

import (
	"os"
	"strconv"
)

// Service defaults
const (
	// DefaultPort is the API listen port when PORT is unset
	DefaultPort = "8080"

	// DefaultRedisAddr is the metadata store address when REDIS_ADDR is unset
	DefaultRedisAddr = "localhost:6379"

	// DefaultMetadataKey is the Redis hash holding all content records
	DefaultMetadataKey = "atlas:metadata"

	// DefaultContentRoot is the base directory for on-disk content storage
	DefaultContentRoot = "content"

	// DefaultCandidateTopic is the Kafka topic carrying ingested candidates
	DefaultCandidateTopic = "atlas.candidates"

	// DefaultDecisionTopic is the Kafka topic receiving dedup decisions
	DefaultDecisionTopic = "atlas.decisions"

	// DefaultReviewTopic is the Kafka topic for decisions needing human review
	DefaultReviewTopic = "atlas.review"

	// DefaultConsumerGroup is the Kafka consumer group for the pipeline
	DefaultConsumerGroup = "atlas-dedup"
)

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// GetEnvInt returns an integer environment variable or a default value.
func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// GetEnvBool returns a boolean environment variable or a default value.
func GetEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
