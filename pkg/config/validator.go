package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d validation error(s):\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Add adds a validation error
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// Has reports whether field failed validation
func (e *ValidationErrors) Has(field string) bool {
	for _, err := range e.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

var (
	validEnvironments = []string{"development", "staging", "production", "test"}
	validSinks        = []string{SinkDirect, SinkHTTP, SinkFile, SinkKafka, SinkPostgres, SinkRedis, SinkNATS, SinkWebSocket}
	validCollections  = []string{"payments", "auth_logs", "disputes", "kyc_events"}
	validDLQTypes     = []string{"memory", "file"}
	validExporters    = []string{"stdout", "otlp"}
	validLevels       = []string{"debug", "info", "warn", "error"}
	validFormats      = []string{"json", "console"}
	validOutputs      = []string{"stdout", "stderr", "file"}
)

// Validate validates the entire configuration
func Validate(config *Config) error {
	errs := &ValidationErrors{}

	validateVersion(config, errs)
	validateApplication(config, errs)
	validateGenerator(config, errs)
	validateDelivery(config, errs)
	validateSinks(config, errs)
	validateErrorHandling(config, errs)
	validateAPI(config, errs)
	validateMetrics(config, errs)
	validateTracing(config, errs)
	validateLogging(config, errs)

	if errs.HasErrors() {
		return errs
	}

	return nil
}

func validateVersion(config *Config, errs *ValidationErrors) {
	if config.Version == "" {
		errs.Add("version", "version is required")
		return
	}

	if err := ValidateVersion(config); err != nil {
		errs.Add("version", err.Error())
	}
}

func validateApplication(config *Config, errs *ValidationErrors) {
	if config.Application.Name == "" {
		errs.Add("application.name", "application name is required")
	}

	if config.Application.Environment != "" {
		checkOneOf(errs, "application.environment", "environment", config.Application.Environment, validEnvironments)
	}
}

func validateGenerator(config *Config, errs *ValidationErrors) {
	g := config.Generator

	if g.Customers <= 0 {
		errs.Add("generator.customers", "customer count must be positive")
	}
	if g.Merchants <= 0 {
		errs.Add("generator.merchants", "merchant count must be positive")
	}

	checkRatio(errs, "generator.multiple_device_ratio", g.MultipleDeviceRatio)
	checkRatio(errs, "generator.ato_ratio", g.ATORatio)
	checkRatio(errs, "generator.two_factor_ratio", g.TwoFactorRatio)

	start, end, err := g.Window()
	if err != nil {
		errs.Add("generator.start_date", fmt.Sprintf("dates must use %s: %v", DateLayout, err))
	} else if !end.After(start) {
		errs.Add("generator.end_date", fmt.Sprintf("end date %s must be after start date %s", g.EndDate, g.StartDate))
	}

	for _, id := range g.ATOCustomers {
		if id < 1 || id > int64(g.Customers) {
			errs.Add("generator.ato_customers", fmt.Sprintf("customer %d outside 1..%d", id, g.Customers))
		}
	}

	if g.DuplicatePairs < 0 {
		errs.Add("generator.duplicate_pairs", "duplicate pairs must not be negative")
	}
	if g.DuplicateTriples < 0 {
		errs.Add("generator.duplicate_triples", "duplicate triples must not be negative")
	}
	if g.KYCFailCount < 0 {
		errs.Add("generator.kyc_fail_count", "kyc fail count must not be negative")
	}

	clustered := g.DuplicatePairs*2 + g.DuplicateTriples*3
	if clustered > g.Customers {
		errs.Add("generator.duplicate_pairs", fmt.Sprintf("identity clusters need %d customers, population is %d",
			clustered, g.Customers))
	} else if g.KYCFailCount > g.Customers-clustered {
		errs.Add("generator.kyc_fail_count", fmt.Sprintf("kyc fail count %d exceeds the %d customers outside clusters",
			g.KYCFailCount, g.Customers-clustered))
	}
}

func validateDelivery(config *Config, errs *ValidationErrors) {
	checkOneOf(errs, "delivery.sink", "sink", config.Delivery.Sink, validSinks)

	if config.Delivery.BatchSize <= 0 {
		errs.Add("delivery.batch_size", "batch size must be positive")
	}
	if config.Delivery.RatePerSecond < 0 {
		errs.Add("delivery.rate_per_second", "rate must not be negative")
	}
	if config.Delivery.RatePerSecond > 0 && config.Delivery.Burst <= 0 {
		errs.Add("delivery.burst", "burst must be positive when a rate is set")
	}
	for _, c := range config.Delivery.Collections {
		checkOneOf(errs, "delivery.collections", "collection", c, validCollections)
	}
}

// validateSinks only checks the sink selected for delivery
func validateSinks(config *Config, errs *ValidationErrors) {
	s := config.Sinks

	switch config.Delivery.Sink {
	case SinkHTTP:
		checkURL(errs, "sinks.http.base_url", s.HTTP.BaseURL, "http", "https")
		if s.HTTP.Timeout <= 0 {
			errs.Add("sinks.http.timeout", "timeout must be positive")
		}
	case SinkFile:
		if s.File.Directory == "" {
			errs.Add("sinks.file.directory", "directory is required")
		}
	case SinkKafka:
		if len(s.Kafka.Brokers) == 0 {
			errs.Add("sinks.kafka.brokers", "at least one broker is required")
		}
		if s.Kafka.FlushTimeout <= 0 {
			errs.Add("sinks.kafka.flush_timeout", "flush timeout must be positive")
		}
		if s.Kafka.SchemaRegistryURL != "" {
			checkURL(errs, "sinks.kafka.schema_registry_url", s.Kafka.SchemaRegistryURL, "http", "https")
		}
	case SinkPostgres:
		if s.Postgres.ConnectionString == "" {
			errs.Add("sinks.postgres.connection_string", "connection string is required")
		}
	case SinkRedis:
		if s.Redis.Address == "" {
			errs.Add("sinks.redis.address", "address is required")
		}
		if s.Redis.TTL < 0 {
			errs.Add("sinks.redis.ttl", "ttl must not be negative")
		}
	case SinkNATS:
		checkURL(errs, "sinks.nats.url", s.NATS.URL, "nats", "tls")
	case SinkWebSocket:
		checkURL(errs, "sinks.websocket.url", s.WebSocket.URL, "ws", "wss")
	}
}

func validateErrorHandling(config *Config, errs *ValidationErrors) {
	eh := config.ErrorHandling

	if eh.EnableRetry {
		if eh.MaxRetryAttempts <= 0 {
			errs.Add("error_handling.max_retry_attempts", "max retry attempts must be positive when retry is enabled")
		}

		if eh.InitialBackoff <= 0 {
			errs.Add("error_handling.initial_backoff", "initial backoff must be positive when retry is enabled")
		}

		if eh.MaxBackoff <= 0 {
			errs.Add("error_handling.max_backoff", "max backoff must be positive when retry is enabled")
		}

		if eh.MaxBackoff < eh.InitialBackoff {
			errs.Add("error_handling.max_backoff", "max backoff must be >= initial backoff")
		}

		if eh.BackoffMultiplier <= 1 {
			errs.Add("error_handling.backoff_multiplier", "backoff multiplier must be > 1")
		}

		if eh.BackoffJitter < 0 || eh.BackoffJitter > 1 {
			errs.Add("error_handling.backoff_jitter", "backoff jitter must be between 0 and 1")
		}
	}

	if eh.EnableDLQ {
		checkOneOf(errs, "error_handling.dlq_type", "DLQ type", eh.DLQType, validDLQTypes)

		if eh.DLQType == "memory" && eh.DLQMaxSize <= 0 {
			errs.Add("error_handling.dlq_max_size", "DLQ max size must be positive for an in-memory DLQ")
		}

		if eh.DLQType == "file" && eh.DLQDirectory == "" {
			errs.Add("error_handling.dlq_directory", "DLQ directory is required for file-based DLQ")
		}
	}

	if eh.EnableCircuitBreaker {
		if eh.CircuitBreakerConfig.FailureThreshold == 0 {
			errs.Add("error_handling.circuit_breaker.failure_threshold", "failure threshold must be positive when circuit breaker is enabled")
		}

		if eh.CircuitBreakerConfig.SuccessThreshold == 0 {
			errs.Add("error_handling.circuit_breaker.success_threshold", "success threshold must be positive when circuit breaker is enabled")
		}

		if eh.CircuitBreakerConfig.Timeout <= 0 {
			errs.Add("error_handling.circuit_breaker.timeout", "timeout must be positive when circuit breaker is enabled")
		}
	}
}

func validateAPI(config *Config, errs *ValidationErrors) {
	if config.API.Address == "" {
		errs.Add("api.address", "address is required")
	}
	if config.API.MaxBatchSize <= 0 {
		errs.Add("api.max_batch_size", "max batch size must be positive")
	}
	if config.API.ReadTimeout < 0 || config.API.WriteTimeout < 0 {
		errs.Add("api.timeouts", "timeouts must not be negative")
	}
}

func validateMetrics(config *Config, errs *ValidationErrors) {
	if config.Metrics.Enabled {
		if config.Metrics.Address == "" {
			errs.Add("metrics.address", "metrics address is required when metrics are enabled")
		}

		if !strings.HasPrefix(config.Metrics.Path, "/") {
			errs.Add("metrics.path", "metrics path must start with /")
		}
	}
}

func validateTracing(config *Config, errs *ValidationErrors) {
	if !config.Tracing.Enabled {
		return
	}
	if config.Tracing.ServiceName == "" {
		errs.Add("tracing.service_name", "service name is required when tracing is enabled")
	}
	checkOneOf(errs, "tracing.exporter", "exporter", config.Tracing.Exporter, validExporters)
	if config.Tracing.Exporter == "otlp" && config.Tracing.Endpoint == "" {
		errs.Add("tracing.endpoint", "endpoint is required for the otlp exporter")
	}
	if config.Tracing.SamplingRate <= 0 || config.Tracing.SamplingRate > 1 {
		errs.Add("tracing.sampling_rate", "sampling rate must be in (0, 1]")
	}
}

func validateLogging(config *Config, errs *ValidationErrors) {
	checkOneOf(errs, "logging.level", "log level", config.Logging.Level, validLevels)
	checkOneOf(errs, "logging.format", "log format", config.Logging.Format, validFormats)
	checkOneOf(errs, "logging.output", "log output", config.Logging.Output, validOutputs)

	if config.Logging.Output == "file" && config.Logging.OutputPath == "" {
		errs.Add("logging.output_path", "output path is required when output is 'file'")
	}
}

func checkOneOf(errs *ValidationErrors, field, what, value string, valid []string) {
	if !slices.Contains(valid, value) {
		errs.Add(field, fmt.Sprintf("invalid %s %s (valid: %s)", what, value, strings.Join(valid, ", ")))
	}
}

func checkRatio(errs *ValidationErrors, field string, v float64) {
	if v < 0 || v > 1 {
		errs.Add(field, fmt.Sprintf("ratio %g must be between 0 and 1", v))
	}
}

func checkURL(errs *ValidationErrors, field, raw string, schemes ...string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		errs.Add(field, fmt.Sprintf("invalid URL %q", raw))
		return
	}
	if !slices.Contains(schemes, u.Scheme) {
		errs.Add(field, fmt.Sprintf("URL scheme %s not supported (valid: %s)", u.Scheme, strings.Join(schemes, ", ")))
	}
}

// ValidateAndLoad loads and validates a configuration file
func ValidateAndLoad(path string) (*Config, error) {
	config, err := LoadConfigWithEnv(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(config); err != nil {
		return nil, err
	}

	return config, nil
}
