package config

import (
	"errors"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

const defaultMaxUploadBytes = 10 << 20

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath         string
	MaxUploadBytes int64

	// Kafka announcement of persisted observations.
	KafkaEnabled   bool
	KafkaBrokers   []string
	KafkaSinkTopic string
	// KafkaPublishAttempts bounds retries of one announcement batch.
	KafkaPublishAttempts int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	maxUpload, err := strconv.ParseInt(sharedcfg.EnvOrDefault("MAX_UPLOAD_BYTES", strconv.Itoa(defaultMaxUploadBytes)), 10, 64)
	if err != nil || maxUpload <= 0 {
		return nil, errors.New("invalid MAX_UPLOAD_BYTES")
	}

	kafkaEnabled, err := strconv.ParseBool(sharedcfg.EnvOrDefault("KAFKA_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid KAFKA_ENABLED")
	}

	attempts, err := strconv.Atoi(sharedcfg.EnvOrDefault("KAFKA_PUBLISH_ATTEMPTS", "3"))
	if err != nil || attempts < 1 || attempts > 10 {
		return nil, errors.New("invalid KAFKA_PUBLISH_ATTEMPTS: must be 1-10")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath:         sharedcfg.EnvOrDefault("DB_PATH", "sea-ice-obs.db"),
		MaxUploadBytes: maxUpload,

		KafkaEnabled:   kafkaEnabled,
		KafkaBrokers:   sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "sea-ice-observations"),

		KafkaPublishAttempts: attempts,
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}
