package config

import (
	"fmt"

	pkgconfig "github.com/primecart/search-sync/pkg/config"
)

// Engine selection values.
const (
	EngineMeilisearch = "meilisearch"
	EngineMemory      = "memory"
)

// Config holds all configuration for the synchronizer service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8010"`

	// Upstream services
	CatalogURL    string `env:"CATALOG_URL" envDefault:"http://localhost:8080"`
	ContentURL    string `env:"CONTENT_URL" envDefault:"http://localhost:8090"`
	ContentAPIKey string `env:"CONTENT_API_KEY"`

	// Search engine selection (meilisearch or memory)
	SearchEngine string `env:"SEARCH_ENGINE" envDefault:"meilisearch"`

	// Meilisearch
	MeiliURL         string `env:"MEILI_URL" envDefault:"http://localhost:7700"`
	MeiliAPIKey      string `env:"MEILI_API_KEY"`
	MeiliIndexPrefix string `env:"MEILI_INDEX_PREFIX" envDefault:"commerce"`

	// Pipeline tuning
	SyncPageSize    int `env:"SYNC_PAGE_SIZE" envDefault:"50"`
	EnricherWorkers int `env:"ENRICHER_WORKERS" envDefault:"8"`

	// Kafka. Empty brokers disable the consumer and the completion events.
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	ConsumerGroup string   `env:"KAFKA_CONSUMER_GROUP" envDefault:"search-sync"`

	// Redis, used for cross-instance event deduplication. Empty falls back
	// to the in-memory store.
	RedisAddr string `env:"REDIS_ADDR"`

	// OpenTelemetry
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load search-sync config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.SearchEngine != EngineMeilisearch && c.SearchEngine != EngineMemory {
		return fmt.Errorf("invalid search engine %q: must be %q or %q", c.SearchEngine, EngineMeilisearch, EngineMemory)
	}
	if c.CatalogURL == "" {
		return fmt.Errorf("catalog URL is required")
	}
	if c.SearchEngine == EngineMeilisearch && c.MeiliURL == "" {
		return fmt.Errorf("meilisearch URL is required when the meilisearch engine is selected")
	}
	if c.SyncPageSize < 1 || c.SyncPageSize > 500 {
		return fmt.Errorf("invalid sync page size: %d", c.SyncPageSize)
	}
	return nil
}

// KafkaEnabled reports whether the event consumer and producer should run.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}
