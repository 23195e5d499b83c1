package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration
// Environment variables follow the pattern: FRAUDSIM_<SECTION>_<KEY>
// Example: FRAUDSIM_GENERATOR_CUSTOMERS=5000
func ApplyEnvOverrides(config *Config) error {
	// Application overrides
	if val := os.Getenv("FRAUDSIM_APPLICATION_NAME"); val != "" {
		config.Application.Name = val
	}
	if val := os.Getenv("FRAUDSIM_APPLICATION_ENVIRONMENT"); val != "" {
		config.Application.Environment = val
	}

	// Generator overrides
	if err := envInt("FRAUDSIM_GENERATOR_CUSTOMERS", &config.Generator.Customers); err != nil {
		return err
	}
	if err := envInt("FRAUDSIM_GENERATOR_MERCHANTS", &config.Generator.Merchants); err != nil {
		return err
	}
	if err := envFloat("FRAUDSIM_GENERATOR_MULTIPLE_DEVICE_RATIO", &config.Generator.MultipleDeviceRatio); err != nil {
		return err
	}
	if err := envFloat("FRAUDSIM_GENERATOR_ATO_RATIO", &config.Generator.ATORatio); err != nil {
		return err
	}
	if err := envFloat("FRAUDSIM_GENERATOR_TWO_FACTOR_RATIO", &config.Generator.TwoFactorRatio); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_GENERATOR_ATO_CUSTOMERS"); val != "" {
		ids, err := parseIDList(val)
		if err != nil {
			return fmt.Errorf("invalid FRAUDSIM_GENERATOR_ATO_CUSTOMERS: %w", err)
		}
		config.Generator.ATOCustomers = ids
	}
	if val := os.Getenv("FRAUDSIM_GENERATOR_START_DATE"); val != "" {
		config.Generator.StartDate = val
	}
	if val := os.Getenv("FRAUDSIM_GENERATOR_END_DATE"); val != "" {
		config.Generator.EndDate = val
	}
	if err := envInt("FRAUDSIM_GENERATOR_DUPLICATE_PAIRS", &config.Generator.DuplicatePairs); err != nil {
		return err
	}
	if err := envInt("FRAUDSIM_GENERATOR_DUPLICATE_TRIPLES", &config.Generator.DuplicateTriples); err != nil {
		return err
	}
	if err := envInt("FRAUDSIM_GENERATOR_KYC_FAIL_COUNT", &config.Generator.KYCFailCount); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_GENERATOR_SEED"); val != "" {
		seed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid FRAUDSIM_GENERATOR_SEED: %w", err)
		}
		config.Generator.Seed = seed
	}

	// Delivery overrides
	if val := os.Getenv("FRAUDSIM_DELIVERY_SINK"); val != "" {
		config.Delivery.Sink = val
	}
	if err := envInt("FRAUDSIM_DELIVERY_BATCH_SIZE", &config.Delivery.BatchSize); err != nil {
		return err
	}
	if err := envFloat("FRAUDSIM_DELIVERY_RATE_PER_SECOND", &config.Delivery.RatePerSecond); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_DELIVERY_COLLECTIONS"); val != "" {
		config.Delivery.Collections = strings.Split(val, ",")
	}

	// Sink overrides
	if val := os.Getenv("FRAUDSIM_SINKS_HTTP_BASE_URL"); val != "" {
		config.Sinks.HTTP.BaseURL = val
	}
	if err := envDuration("FRAUDSIM_SINKS_HTTP_TIMEOUT", &config.Sinks.HTTP.Timeout); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_SINKS_FILE_DIRECTORY"); val != "" {
		config.Sinks.File.Directory = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_KAFKA_BROKERS"); val != "" {
		config.Sinks.Kafka.Brokers = strings.Split(val, ",")
	}
	if val := os.Getenv("FRAUDSIM_SINKS_KAFKA_TOPIC_PREFIX"); val != "" {
		config.Sinks.Kafka.TopicPrefix = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_KAFKA_SCHEMA_REGISTRY_URL"); val != "" {
		config.Sinks.Kafka.SchemaRegistryURL = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_POSTGRES_CONNECTION_STRING"); val != "" {
		config.Sinks.Postgres.ConnectionString = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_REDIS_ADDRESS"); val != "" {
		config.Sinks.Redis.Address = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_REDIS_PASSWORD"); val != "" {
		config.Sinks.Redis.Password = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_NATS_URL"); val != "" {
		config.Sinks.NATS.URL = val
	}
	if val := os.Getenv("FRAUDSIM_SINKS_WEBSOCKET_URL"); val != "" {
		config.Sinks.WebSocket.URL = val
	}

	// Error handling overrides
	if err := envBool("FRAUDSIM_ERROR_ENABLE_RETRY", &config.ErrorHandling.EnableRetry); err != nil {
		return err
	}
	if err := envInt("FRAUDSIM_ERROR_MAX_RETRY_ATTEMPTS", &config.ErrorHandling.MaxRetryAttempts); err != nil {
		return err
	}
	if err := envBool("FRAUDSIM_ERROR_ENABLE_DLQ", &config.ErrorHandling.EnableDLQ); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_ERROR_DLQ_TYPE"); val != "" {
		config.ErrorHandling.DLQType = val
	}
	if val := os.Getenv("FRAUDSIM_ERROR_DLQ_DIRECTORY"); val != "" {
		config.ErrorHandling.DLQDirectory = val
	}
	if err := envBool("FRAUDSIM_ERROR_ENABLE_CIRCUIT_BREAKER", &config.ErrorHandling.EnableCircuitBreaker); err != nil {
		return err
	}

	// API overrides
	if val := os.Getenv("FRAUDSIM_API_ADDRESS"); val != "" {
		config.API.Address = val
	}
	if err := envInt("FRAUDSIM_API_MAX_BATCH_SIZE", &config.API.MaxBatchSize); err != nil {
		return err
	}

	// Metrics overrides
	if err := envBool("FRAUDSIM_METRICS_ENABLED", &config.Metrics.Enabled); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_METRICS_ADDRESS"); val != "" {
		config.Metrics.Address = val
	}

	// Tracing overrides
	if err := envBool("FRAUDSIM_TRACING_ENABLED", &config.Tracing.Enabled); err != nil {
		return err
	}
	if val := os.Getenv("FRAUDSIM_TRACING_EXPORTER"); val != "" {
		config.Tracing.Exporter = val
	}
	if val := os.Getenv("FRAUDSIM_TRACING_ENDPOINT"); val != "" {
		config.Tracing.Endpoint = val
	}

	// Logging overrides
	if val := os.Getenv("FRAUDSIM_LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("FRAUDSIM_LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("FRAUDSIM_LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
	if val := os.Getenv("FRAUDSIM_LOG_OUTPUT_PATH"); val != "" {
		config.Logging.OutputPath = val
	}

	return nil
}

func envInt(key string, dst *int) error {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = parsed
	}
	return nil
}

func envFloat(key string, dst *float64) error {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = parsed
	}
	return nil
}

func envBool(key string, dst *bool) error {
	if val := os.Getenv(key); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = parsed
	}
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	if val := os.Getenv(key); val != "" {
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = parsed
	}
	return nil
}

func parseIDList(val string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// GetEnvWithDefault retrieves an environment variable or returns a default value
func GetEnvWithDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// LoadConfigWithEnv loads configuration from file and applies environment variable overrides
func LoadConfigWithEnv(path string) (*Config, error) {
	config, err := LoadConfigWithDefaults(path)
	if err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}

// LoadOrDefaultWithEnv loads configuration from file (or uses default) and applies environment overrides
func LoadOrDefaultWithEnv(path string) (*Config, error) {
	config, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if err := ApplyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	return config, nil
}
