package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a file
// Supports both YAML and JSON formats
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	var config Config

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	return &config, nil
}

// LoadConfigWithDefaults loads configuration from a file and applies defaults for missing values
func LoadConfigWithDefaults(path string) (*Config, error) {
	config, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyDefaults(config)

	return config, nil
}

// LoadOrDefault attempts to load configuration from path, returns default config if file doesn't exist
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	return LoadConfigWithDefaults(path)
}

// SaveConfig saves configuration to a file
// Format is determined by file extension
func SaveConfig(config *Config, path string) error {
	ext := strings.ToLower(filepath.Ext(path))

	var data []byte
	var err error

	switch ext {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
		if err != nil {
			return fmt.Errorf("failed to marshal config to YAML: %w", err)
		}
	case ".json":
		data, err = json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config to JSON: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyDefaults fills in missing values with defaults. Ratios, seeds and
// booleans are taken as written since zero is a meaningful value for them.
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Version == "" {
		config.Version = defaults.Version
	}

	// Application
	if config.Application.Name == "" {
		config.Application.Name = defaults.Application.Name
	}
	if config.Application.Environment == "" {
		config.Application.Environment = defaults.Application.Environment
	}
	if config.Application.Tags == nil {
		config.Application.Tags = make(map[string]string)
	}

	// Generator
	g, dg := &config.Generator, defaults.Generator
	if g.Customers == 0 {
		g.Customers = dg.Customers
	}
	if g.Merchants == 0 {
		g.Merchants = dg.Merchants
	}
	if g.StartDate == "" {
		g.StartDate = dg.StartDate
	}
	if g.EndDate == "" {
		g.EndDate = dg.EndDate
	}

	// Delivery
	if config.Delivery.Sink == "" {
		config.Delivery.Sink = defaults.Delivery.Sink
	}
	if config.Delivery.BatchSize == 0 {
		config.Delivery.BatchSize = defaults.Delivery.BatchSize
	}
	if config.Delivery.Burst == 0 {
		config.Delivery.Burst = defaults.Delivery.Burst
	}
	if len(config.Delivery.Collections) == 0 {
		config.Delivery.Collections = defaults.Delivery.Collections
	}

	// Sinks
	s, ds := &config.Sinks, defaults.Sinks
	if s.HTTP.BaseURL == "" {
		s.HTTP.BaseURL = ds.HTTP.BaseURL
	}
	if s.HTTP.Timeout == 0 {
		s.HTTP.Timeout = ds.HTTP.Timeout
	}
	if s.File.Directory == "" {
		s.File.Directory = ds.File.Directory
	}
	if len(s.Kafka.Brokers) == 0 {
		s.Kafka.Brokers = ds.Kafka.Brokers
	}
	if s.Kafka.TopicPrefix == "" {
		s.Kafka.TopicPrefix = ds.Kafka.TopicPrefix
	}
	if s.Kafka.FlushTimeout == 0 {
		s.Kafka.FlushTimeout = ds.Kafka.FlushTimeout
	}
	if s.Postgres.ConnectionString == "" {
		s.Postgres.ConnectionString = ds.Postgres.ConnectionString
	}
	if s.Redis.Address == "" {
		s.Redis.Address = ds.Redis.Address
	}
	if s.Redis.KeyPrefix == "" {
		s.Redis.KeyPrefix = ds.Redis.KeyPrefix
	}
	if s.NATS.URL == "" {
		s.NATS.URL = ds.NATS.URL
	}
	if s.NATS.SubjectPrefix == "" {
		s.NATS.SubjectPrefix = ds.NATS.SubjectPrefix
	}
	if s.WebSocket.URL == "" {
		s.WebSocket.URL = ds.WebSocket.URL
	}

	// Error handling
	eh, deh := &config.ErrorHandling, defaults.ErrorHandling
	if eh.MaxRetryAttempts == 0 {
		eh.MaxRetryAttempts = deh.MaxRetryAttempts
	}
	if eh.InitialBackoff == 0 {
		eh.InitialBackoff = deh.InitialBackoff
	}
	if eh.MaxBackoff == 0 {
		eh.MaxBackoff = deh.MaxBackoff
	}
	if eh.BackoffMultiplier == 0 {
		eh.BackoffMultiplier = deh.BackoffMultiplier
	}
	if eh.BackoffJitter == 0 {
		eh.BackoffJitter = deh.BackoffJitter
	}
	if eh.DLQMaxSize == 0 {
		eh.DLQMaxSize = deh.DLQMaxSize
	}
	if eh.DLQType == "" {
		eh.DLQType = deh.DLQType
	}
	if eh.CircuitBreakerConfig.FailureThreshold == 0 {
		eh.CircuitBreakerConfig.FailureThreshold = deh.CircuitBreakerConfig.FailureThreshold
	}
	if eh.CircuitBreakerConfig.SuccessThreshold == 0 {
		eh.CircuitBreakerConfig.SuccessThreshold = deh.CircuitBreakerConfig.SuccessThreshold
	}
	if eh.CircuitBreakerConfig.Timeout == 0 {
		eh.CircuitBreakerConfig.Timeout = deh.CircuitBreakerConfig.Timeout
	}

	// API
	if config.API.Address == "" {
		config.API.Address = defaults.API.Address
	}
	if config.API.ReadTimeout == 0 {
		config.API.ReadTimeout = defaults.API.ReadTimeout
	}
	if config.API.WriteTimeout == 0 {
		config.API.WriteTimeout = defaults.API.WriteTimeout
	}
	if config.API.MaxBatchSize == 0 {
		config.API.MaxBatchSize = defaults.API.MaxBatchSize
	}

	// Metrics
	if config.Metrics.Address == "" {
		config.Metrics.Address = defaults.Metrics.Address
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = defaults.Metrics.Path
	}

	// Tracing
	if config.Tracing.ServiceName == "" {
		config.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
	if config.Tracing.Exporter == "" {
		config.Tracing.Exporter = defaults.Tracing.Exporter
	}
	if config.Tracing.Endpoint == "" {
		config.Tracing.Endpoint = defaults.Tracing.Endpoint
	}
	if config.Tracing.SamplingRate == 0 {
		config.Tracing.SamplingRate = defaults.Tracing.SamplingRate
	}

	// Logging
	if config.Logging.Level == "" {
		config.Logging.Level = defaults.Logging.Level
	}
	if config.Logging.Format == "" {
		config.Logging.Format = defaults.Logging.Format
	}
	if config.Logging.Output == "" {
		config.Logging.Output = defaults.Logging.Output
	}
}

// MergeConfigs merges multiple configurations, with later configs overriding earlier ones
func MergeConfigs(configs ...*Config) *Config {
	if len(configs) == 0 {
		return DefaultConfig()
	}

	result := configs[0]

	for i := 1; i < len(configs); i++ {
		mergeInto(result, configs[i])
	}

	return result
}

// mergeInto merges source into target, overriding non-zero values
func mergeInto(target, source *Config) {
	if source.Application.Name != "" {
		target.Application.Name = source.Application.Name
	}
	if source.Application.Environment != "" {
		target.Application.Environment = source.Application.Environment
	}
	if target.Application.Tags == nil {
		target.Application.Tags = make(map[string]string)
	}
	for k, v := range source.Application.Tags {
		target.Application.Tags[k] = v
	}

	if source.Generator.Customers != 0 {
		target.Generator.Customers = source.Generator.Customers
	}
	if source.Generator.Merchants != 0 {
		target.Generator.Merchants = source.Generator.Merchants
	}
	if source.Generator.StartDate != "" {
		target.Generator.StartDate = source.Generator.StartDate
	}
	if source.Generator.EndDate != "" {
		target.Generator.EndDate = source.Generator.EndDate
	}
	if source.Generator.Seed != 0 {
		target.Generator.Seed = source.Generator.Seed
	}
	if len(source.Generator.ATOCustomers) > 0 {
		target.Generator.ATOCustomers = source.Generator.ATOCustomers
	}

	if source.Delivery.Sink != "" {
		target.Delivery.Sink = source.Delivery.Sink
	}
	if source.Delivery.BatchSize != 0 {
		target.Delivery.BatchSize = source.Delivery.BatchSize
	}
	if source.Delivery.RatePerSecond != 0 {
		target.Delivery.RatePerSecond = source.Delivery.RatePerSecond
	}

	// Booleans are copied as-is since false is valid
	target.ErrorHandling.EnableRetry = source.ErrorHandling.EnableRetry
	target.ErrorHandling.EnableDLQ = source.ErrorHandling.EnableDLQ
	target.ErrorHandling.EnableCircuitBreaker = source.ErrorHandling.EnableCircuitBreaker
	if source.ErrorHandling.MaxRetryAttempts != 0 {
		target.ErrorHandling.MaxRetryAttempts = source.ErrorHandling.MaxRetryAttempts
	}

	if source.Logging.Level != "" {
		target.Logging.Level = source.Logging.Level
	}
	if source.Logging.Format != "" {
		target.Logging.Format = source.Logging.Format
	}
}
