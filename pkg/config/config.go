package config

import (
	"time"
)

// Version represents the configuration file version
const (
	CurrentConfigVersion = "v1"
)

// DateLayout is the layout of the generator window dates
const DateLayout = "2006-01-02"

// Sink kinds accepted by delivery.sink
const (
	SinkDirect    = "direct"
	SinkHTTP      = "http"
	SinkFile      = "file"
	SinkKafka     = "kafka"
	SinkPostgres  = "postgres"
	SinkRedis     = "redis"
	SinkNATS      = "nats"
	SinkWebSocket = "websocket"
)

// Config represents the complete fraudsim configuration
type Config struct {
	// Version of the configuration schema
	Version string `yaml:"version" json:"version"`

	// Application metadata
	Application ApplicationConfig `yaml:"application" json:"application"`

	// Generator parameters
	Generator GeneratorConfig `yaml:"generator" json:"generator"`

	// Delivery configuration
	Delivery DeliveryConfig `yaml:"delivery" json:"delivery"`

	// Sinks configuration
	Sinks SinksConfig `yaml:"sinks" json:"sinks"`

	// Error handling configuration
	ErrorHandling ErrorHandlingConfig `yaml:"error_handling" json:"error_handling"`

	// Collection API configuration
	API APIConfig `yaml:"api" json:"api"`

	// Metrics and monitoring configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Tracing configuration
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ApplicationConfig holds application-level metadata
type ApplicationConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Environment string            `yaml:"environment" json:"environment"` // development, staging, production, test
	Tags        map[string]string `yaml:"tags" json:"tags"`
}

// GeneratorConfig holds the parameters of a generation run
type GeneratorConfig struct {
	Customers           int     `yaml:"customers" json:"customers"`
	Merchants           int     `yaml:"merchants" json:"merchants"`
	MultipleDeviceRatio float64 `yaml:"multiple_device_ratio" json:"multiple_device_ratio"`
	ATORatio            float64 `yaml:"ato_ratio" json:"ato_ratio"`
	TwoFactorRatio      float64 `yaml:"two_factor_ratio" json:"two_factor_ratio"`
	ATOCustomers        []int64 `yaml:"ato_customers" json:"ato_customers"`
	StartDate           string  `yaml:"start_date" json:"start_date"` // YYYY-MM-DD
	EndDate             string  `yaml:"end_date" json:"end_date"`
	DuplicatePairs      int     `yaml:"duplicate_pairs" json:"duplicate_pairs"`
	DuplicateTriples    int     `yaml:"duplicate_triples" json:"duplicate_triples"`
	KYCFailCount        int     `yaml:"kyc_fail_count" json:"kyc_fail_count"`
	Seed                int64   `yaml:"seed" json:"seed"`
}

// Window parses the generator dates as UTC midnights
func (g GeneratorConfig) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, g.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(DateLayout, g.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// DeliveryConfig holds batch delivery configuration
type DeliveryConfig struct {
	Sink          string   `yaml:"sink" json:"sink"`
	BatchSize     int      `yaml:"batch_size" json:"batch_size"`
	RatePerSecond float64  `yaml:"rate_per_second" json:"rate_per_second"` // batches per second, 0 disables throttling
	Burst         int      `yaml:"burst" json:"burst"`
	Collections   []string `yaml:"collections" json:"collections"`
}

// SinksConfig holds per-kind sink settings
type SinksConfig struct {
	HTTP      HTTPSinkConfig      `yaml:"http" json:"http"`
	File      FileSinkConfig      `yaml:"file" json:"file"`
	Kafka     KafkaSinkConfig     `yaml:"kafka" json:"kafka"`
	Postgres  PostgresSinkConfig  `yaml:"postgres" json:"postgres"`
	Redis     RedisSinkConfig     `yaml:"redis" json:"redis"`
	NATS      NATSSinkConfig      `yaml:"nats" json:"nats"`
	WebSocket WebSocketSinkConfig `yaml:"websocket" json:"websocket"`
}

// HTTPSinkConfig points at a running collection API
type HTTPSinkConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// FileSinkConfig holds CSV export configuration
type FileSinkConfig struct {
	Directory string `yaml:"directory" json:"directory"`
}

// KafkaSinkConfig holds Kafka sink configuration
type KafkaSinkConfig struct {
	Brokers           []string      `yaml:"brokers" json:"brokers"`
	TopicPrefix       string        `yaml:"topic_prefix" json:"topic_prefix"`
	FlushTimeout      time.Duration `yaml:"flush_timeout" json:"flush_timeout"`
	SchemaRegistryURL string        `yaml:"schema_registry_url" json:"schema_registry_url"` // empty uses a local registry
}

// PostgresSinkConfig holds PostgreSQL sink configuration
type PostgresSinkConfig struct {
	ConnectionString string `yaml:"connection_string" json:"connection_string"`
	CreateTables     bool   `yaml:"create_tables" json:"create_tables"`
}

// RedisSinkConfig holds Redis sink configuration
type RedisSinkConfig struct {
	Address   string        `yaml:"address" json:"address"`
	Password  string        `yaml:"password" json:"password"`
	DB        int           `yaml:"db" json:"db"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
}

// NATSSinkConfig holds NATS sink configuration
type NATSSinkConfig struct {
	URL           string `yaml:"url" json:"url"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
}

// WebSocketSinkConfig points at the API websocket ingest endpoint
type WebSocketSinkConfig struct {
	URL string `yaml:"url" json:"url"`
}

// ErrorHandlingConfig holds error handling configuration for sinks
type ErrorHandlingConfig struct {
	EnableRetry          bool                 `yaml:"enable_retry" json:"enable_retry"`
	MaxRetryAttempts     int                  `yaml:"max_retry_attempts" json:"max_retry_attempts"`
	InitialBackoff       time.Duration        `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff           time.Duration        `yaml:"max_backoff" json:"max_backoff"`
	BackoffMultiplier    float64              `yaml:"backoff_multiplier" json:"backoff_multiplier"`
	BackoffJitter        float64              `yaml:"backoff_jitter" json:"backoff_jitter"`
	EnableDLQ            bool                 `yaml:"enable_dlq" json:"enable_dlq"`
	DLQMaxSize           int                  `yaml:"dlq_max_size" json:"dlq_max_size"`
	DLQType              string               `yaml:"dlq_type" json:"dlq_type"` // memory, file
	DLQDirectory         string               `yaml:"dlq_directory" json:"dlq_directory"`
	EnableCircuitBreaker bool                 `yaml:"enable_circuit_breaker" json:"enable_circuit_breaker"`
	CircuitBreakerConfig CircuitBreakerConfig `yaml:"circuit_breaker" json:"circuit_breaker"`
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"`
	SuccessThreshold uint32        `yaml:"success_threshold" json:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
}

// APIConfig holds the collection API server configuration
type APIConfig struct {
	Address        string        `yaml:"address" json:"address"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`
	MaxBatchSize   int           `yaml:"max_batch_size" json:"max_batch_size"`
	ValidateSchema bool          `yaml:"validate_schema" json:"validate_schema"`
}

// MetricsConfig holds metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Address string `yaml:"address" json:"address"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"service_name" json:"service_name"`
	Exporter     string  `yaml:"exporter" json:"exporter"` // stdout, otlp
	Endpoint     string  `yaml:"endpoint" json:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate" json:"sampling_rate"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`   // debug, info, warn, error
	Format     string `yaml:"format" json:"format"` // json, console
	Output     string `yaml:"output" json:"output"` // stdout, stderr, file
	OutputPath string `yaml:"output_path" json:"output_path"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Application: ApplicationConfig{
			Name:        "fraudsim",
			Environment: "development",
			Tags:        make(map[string]string),
		},
		Generator: GeneratorConfig{
			Customers:           100000,
			Merchants:           1000,
			MultipleDeviceRatio: 0.1,
			ATORatio:            0.01,
			TwoFactorRatio:      0.3,
			StartDate:           "2022-01-01",
			EndDate:             "2024-12-31",
			DuplicatePairs:      100,
			DuplicateTriples:    10,
			KYCFailCount:        500,
			Seed:                42,
		},
		Delivery: DeliveryConfig{
			Sink:        SinkDirect,
			BatchSize:   1000,
			Burst:       1,
			Collections: []string{"payments", "auth_logs", "disputes", "kyc_events"},
		},
		Sinks: SinksConfig{
			HTTP: HTTPSinkConfig{
				BaseURL: "http://localhost:8000",
				Timeout: 30 * time.Second,
			},
			File: FileSinkConfig{
				Directory: "./out",
			},
			Kafka: KafkaSinkConfig{
				Brokers:      []string{"localhost:9092"},
				TopicPrefix:  "fraudsim.",
				FlushTimeout: 15 * time.Second,
			},
			Postgres: PostgresSinkConfig{
				ConnectionString: "postgres://localhost:5432/fraudsim?sslmode=disable",
				CreateTables:     true,
			},
			Redis: RedisSinkConfig{
				Address:   "localhost:6379",
				KeyPrefix: "fraudsim",
			},
			NATS: NATSSinkConfig{
				URL:           "nats://localhost:4222",
				SubjectPrefix: "fraudsim",
			},
			WebSocket: WebSocketSinkConfig{
				URL: "ws://localhost:8000/ws",
			},
		},
		ErrorHandling: ErrorHandlingConfig{
			EnableRetry:          true,
			MaxRetryAttempts:     3,
			InitialBackoff:       100 * time.Millisecond,
			MaxBackoff:           30 * time.Second,
			BackoffMultiplier:    2.0,
			BackoffJitter:        0.1,
			EnableDLQ:            true,
			DLQMaxSize:           10000,
			DLQType:              "memory",
			EnableCircuitBreaker: true,
			CircuitBreakerConfig: CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				Timeout:          60 * time.Second,
			},
		},
		API: APIConfig{
			Address:        ":8000",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxBatchSize:   10000,
			ValidateSchema: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9091",
			Path:    "/metrics",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			ServiceName:  "fraudsim",
			Exporter:     "stdout",
			Endpoint:     "localhost:4318",
			SamplingRate: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// ProductionConfig returns a production-ready configuration
func ProductionConfig() *Config {
	config := DefaultConfig()
	config.Application.Environment = "production"
	config.Delivery.BatchSize = 5000
	config.ErrorHandling.MaxRetryAttempts = 5
	config.ErrorHandling.MaxBackoff = 60 * time.Second
	config.ErrorHandling.DLQMaxSize = 100000
	config.ErrorHandling.CircuitBreakerConfig.FailureThreshold = 10
	config.ErrorHandling.CircuitBreakerConfig.Timeout = 120 * time.Second
	config.Logging.Level = "warn"
	return config
}

// DevelopmentConfig returns a small, chatty configuration
func DevelopmentConfig() *Config {
	config := DefaultConfig()
	config.Application.Environment = "development"
	config.Generator.Customers = 1000
	config.Generator.Merchants = 50
	config.Generator.DuplicatePairs = 5
	config.Generator.DuplicateTriples = 2
	config.Generator.KYCFailCount = 20
	config.ErrorHandling.EnableRetry = false
	config.ErrorHandling.EnableCircuitBreaker = false
	config.Logging.Level = "debug"
	config.Logging.Format = "console"
	return config
}
