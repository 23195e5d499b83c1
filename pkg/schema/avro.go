package schema

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/linkedin/goavro/v2"
	"go.uber.org/zap"
)

const (
	// Magic byte prefix for Confluent wire format
	magicByte byte = 0x0

	// magic byte + 4 byte schema id
	headerSize = 5
)

// AvroCodec encodes flat records in the Confluent wire format
type AvroCodec struct {
	registry RegistryClient
	logger   *zap.Logger

	mu     sync.RWMutex
	codecs map[int]*goavro.Codec
}

// NewAvroCodec creates a new Avro codec
func NewAvroCodec(registry RegistryClient, logger *zap.Logger) *AvroCodec {
	return &AvroCodec{
		registry: registry,
		logger:   logger,
		codecs:   make(map[int]*goavro.Codec),
	}
}

// Encode serializes a native record according to an Avro schema
func (c *AvroCodec) Encode(native map[string]interface{}, metadata *SchemaMetadata) ([]byte, error) {
	if metadata.SchemaType != SchemaTypeAvro {
		return nil, fmt.Errorf("expected AVRO schema, got %s", metadata.SchemaType)
	}

	codec, err := c.getCodec(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to get codec: %w", err)
	}

	// magic byte (0x0) + schema ID (4 bytes) + Avro data
	buf := bytes.NewBuffer(make([]byte, 0, 256))
	buf.WriteByte(magicByte)
	if err := binary.Write(buf, binary.BigEndian, int32(metadata.ID)); err != nil {
		return nil, fmt.Errorf("failed to write schema ID: %w", err)
	}

	avroBytes, err := codec.BinaryFromNative(buf.Bytes(), native)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Avro: %w", err)
	}

	return avroBytes, nil
}

// Decode deserializes a Confluent framed message, resolving the writer
// schema through the registry
func (c *AvroCodec) Decode(ctx context.Context, data []byte) (map[string]interface{}, error) {
	schemaID, err := SchemaID(data)
	if err != nil {
		return nil, err
	}

	metadata, err := c.registry.GetSchema(ctx, schemaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get schema %d: %w", schemaID, err)
	}

	codec, err := c.getCodec(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to get codec: %w", err)
	}

	native, _, err := codec.NativeFromBinary(data[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode Avro: %w", err)
	}

	record, ok := native.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("decoded value is %T, not a record", native)
	}

	return record, nil
}

// SchemaID extracts the schema id from a Confluent framed message
func SchemaID(data []byte) (int, error) {
	if len(data) < headerSize {
		return 0, errors.New("data too short for Confluent wire format")
	}
	if data[0] != magicByte {
		return 0, fmt.Errorf("invalid magic byte: expected 0x0, got 0x%x", data[0])
	}
	return int(binary.BigEndian.Uint32(data[1:headerSize])), nil
}

// getCodec retrieves or compiles a codec for the given schema
func (c *AvroCodec) getCodec(metadata *SchemaMetadata) (*goavro.Codec, error) {
	c.mu.RLock()
	codec, exists := c.codecs[metadata.ID]
	c.mu.RUnlock()
	if exists {
		return codec, nil
	}

	codec, err := goavro.NewCodec(metadata.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to create Avro codec: %w", err)
	}

	c.mu.Lock()
	c.codecs[metadata.ID] = codec
	c.mu.Unlock()

	c.logger.Debug("Created Avro codec",
		zap.Int("schema_id", metadata.ID),
		zap.String("subject", metadata.Subject),
	)

	return codec, nil
}

// ValidateAvroSchema validates an Avro schema
func ValidateAvroSchema(schemaStr string) error {
	if _, err := goavro.NewCodec(schemaStr); err != nil {
		return fmt.Errorf("invalid Avro schema: %w", err)
	}
	return nil
}

// GetAvroSchemaFields extracts field names from an Avro record schema
func GetAvroSchemaFields(schemaStr string) ([]string, error) {
	var schema struct {
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(schemaStr), &schema); err != nil {
		return nil, fmt.Errorf("failed to parse Avro schema: %w", err)
	}
	if len(schema.Fields) == 0 {
		return nil, errors.New("schema does not contain fields")
	}

	names := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		names[i] = f.Name
	}
	return names, nil
}
