// Package config loads the pipeline services' configuration from an optional
// YAML file overlaid with SENTIMENT_-prefixed environment variables. Required
// settings are validated per service at startup; a missing one is a fatal
// configuration error, never a partially-operating process.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "SENTIMENT_"

// Config is the full configuration tree. Each service validates only the
// subset it needs.
type Config struct {
	LogLevel  string `koanf:"log_level"`
	HTTPPort  string `koanf:"http_port"`
	ProjectID string `koanf:"project_id"`

	Buffer     BufferConfig     `koanf:"buffer"`
	Storage    StorageConfig    `koanf:"storage"`
	Classifier ClassifierConfig `koanf:"classifier"`
	Cache      CacheConfig      `koanf:"cache"`
	BigQuery   BigQueryConfig   `koanf:"bigquery"`
	Simulator  SimulatorConfig  `koanf:"simulator"`
}

// BufferConfig names the streaming-buffer endpoints.
type BufferConfig struct {
	TopicID        string `koanf:"topic_id"`
	SubscriptionID string `koanf:"subscription_id"`
}

// StorageConfig names the archival bucket.
type StorageConfig struct {
	Bucket string `koanf:"bucket"`
	Prefix string `koanf:"prefix"`
}

// ClassifierConfig configures the language-model classifier.
type ClassifierConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"`
	Model   string        `koanf:"model"`
	Timeout time.Duration `koanf:"timeout"`
}

// CacheConfig selects the verdict cache backing. Kind is one of "none",
// "memory", "redis" or "firestore".
type CacheConfig struct {
	Kind                string        `koanf:"kind"`
	LRUSize             int           `koanf:"lru_size"`
	RedisAddr           string        `koanf:"redis_addr"`
	RedisPassword       string        `koanf:"redis_password"`
	RedisDB             int           `koanf:"redis_db"`
	RedisTTL            time.Duration `koanf:"redis_ttl"`
	FirestoreCollection string        `koanf:"firestore_collection"`
}

// BigQueryConfig configures the optional aggregate export. Empty DatasetID
// disables it.
type BigQueryConfig struct {
	DatasetID       string `koanf:"dataset_id"`
	TableID         string `koanf:"table_id"`
	CredentialsFile string `koanf:"credentials_file"`
}

// SimulatorConfig configures the synthetic event generator.
type SimulatorConfig struct {
	BackendURL string        `koanf:"backend_url"`
	Interval   time.Duration `koanf:"interval"`
}

// Load reads configuration from the YAML file at path (skipped when path is
// empty or the file does not exist) and then overlays environment variables:
// SENTIMENT_BUFFER__TOPIC_ID=t maps to buffer.topic_id.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load environment config: %w", err)
	}

	cfg := defaults()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LogLevel: "info",
		HTTPPort: ":8080",
		Classifier: ClassifierConfig{
			BaseURL: "https://api.openai.com/v1/chat/completions",
			Model:   "gpt-4",
			Timeout: 60 * time.Second,
		},
		Cache: CacheConfig{
			Kind:     "none",
			LRUSize:  10_000,
			RedisTTL: 24 * time.Hour,
		},
		Simulator: SimulatorConfig{
			Interval: time.Minute,
		},
	}
}

// ValidateRelay checks the settings the relay service requires.
func (c *Config) ValidateRelay() error {
	return required(map[string]string{
		"project_id":      c.ProjectID,
		"buffer.topic_id": c.Buffer.TopicID,
	})
}

// ValidateAnalyzer checks the settings the analyzer service requires.
func (c *Config) ValidateAnalyzer() error {
	return required(map[string]string{
		"project_id":             c.ProjectID,
		"buffer.subscription_id": c.Buffer.SubscriptionID,
		"storage.bucket":         c.Storage.Bucket,
		"classifier.api_key":     c.Classifier.APIKey,
	})
}

// ValidateInsights checks the settings the insights service requires.
func (c *Config) ValidateInsights() error {
	return required(map[string]string{
		"project_id":     c.ProjectID,
		"storage.bucket": c.Storage.Bucket,
	})
}

// ValidateSimulator checks the settings the simulator requires.
func (c *Config) ValidateSimulator() error {
	return required(map[string]string{
		"simulator.backend_url": c.Simulator.BackendURL,
	})
}

func required(fields map[string]string) error {
	var missing []string
	for name, value := range fields {
		if value == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
