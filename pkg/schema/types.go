package schema

import (
	"context"
	"fmt"
	"time"
)

// SchemaType represents the format of a schema
type SchemaType string

const (
	SchemaTypeAvro SchemaType = "AVRO"
	SchemaTypeJSON SchemaType = "JSON"
)

// SchemaMetadata contains metadata about a registered schema
type SchemaMetadata struct {
	ID         int        `json:"id"`
	Version    int        `json:"version"`
	Schema     string     `json:"schema"`
	Subject    string     `json:"subject"`
	SchemaType SchemaType `json:"schemaType"`
}

// RegistryClient is the subset of a schema registry the Kafka sink needs
type RegistryClient interface {
	// GetSchema retrieves a schema by ID
	GetSchema(ctx context.Context, schemaID int) (*SchemaMetadata, error)

	// GetLatestSchema retrieves the latest version of a subject
	GetLatestSchema(ctx context.Context, subject string) (*SchemaMetadata, error)

	// RegisterSchema registers a schema, returning the existing one if identical
	RegisterSchema(ctx context.Context, subject string, schema string, schemaType SchemaType) (*SchemaMetadata, error)

	// GetSubjects lists all subjects
	GetSubjects(ctx context.Context) ([]string, error)

	// Close releases resources held by the client
	Close() error
}

// Config holds schema registry connection settings
type Config struct {
	RegistryURL string
	Username    string
	Password    string
	Timeout     time.Duration

	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
}

// DefaultConfig returns registry settings for url with caching enabled
func DefaultConfig(url string) *Config {
	return &Config{
		RegistryURL:  url,
		Timeout:      30 * time.Second,
		CacheEnabled: true,
		CacheSize:    100,
		CacheTTL:     5 * time.Minute,
	}
}

// ValidationError is a single schema violation in a submitted document
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
