package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

const decimalPattern = `^-?[0-9]+(\.[0-9]+)?$`

// optionalFields may be omitted from a JSON document
var optionalFields = map[string]bool{
	"resolution_timestamp": true,
}

// RecordJSONSchema derives the JSON Schema of a collection's JSON documents
// from its Avro schema. Primary keys must be positive, timestamps are
// RFC 3339 and amounts are decimal strings or numbers.
func RecordJSONSchema(c model.Collection) (string, error) {
	avroSchema, err := AvroSchema(c)
	if err != nil {
		return "", err
	}

	var record struct {
		Fields []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(avroSchema), &record); err != nil {
		return "", fmt.Errorf("failed to parse Avro schema: %w", err)
	}

	pk := model.PrimaryKey(c)
	properties := make(map[string]interface{}, len(record.Fields))
	required := make([]string, 0, len(record.Fields))

	for _, f := range record.Fields {
		var prop map[string]interface{}
		switch {
		case f.Name == pk:
			prop = map[string]interface{}{"type": "integer", "minimum": 1}
		case f.Name == "amount":
			prop = map[string]interface{}{"type": []string{"string", "number"}, "pattern": decimalPattern}
		case strings.HasSuffix(f.Name, "timestamp"):
			prop = map[string]interface{}{"type": "string", "format": "date-time"}
		case f.Type == "long":
			prop = map[string]interface{}{"type": "integer"}
		default:
			prop = map[string]interface{}{"type": "string"}
		}
		properties[f.Name] = prop

		if !optionalFields[f.Name] {
			required = append(required, f.Name)
		}
	}

	doc := map[string]interface{}{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Validator checks JSON documents submitted to the collection API
type Validator struct {
	schemas map[model.Collection]*jsonschema.Schema
}

// NewValidator compiles the JSON Schema of every collection
func NewValidator() (*Validator, error) {
	v := &Validator{schemas: make(map[model.Collection]*jsonschema.Schema, len(model.Collections))}

	for _, c := range model.Collections {
		schemaStr, err := RecordJSONSchema(c)
		if err != nil {
			return nil, err
		}

		compiled, err := compileJSONSchema("schema://"+string(c), schemaStr)
		if err != nil {
			return nil, fmt.Errorf("collection %s: %w", c, err)
		}
		v.schemas[c] = compiled
	}

	return v, nil
}

// DocumentError lists every violation found in one document
type DocumentError struct {
	Errors []*ValidationError
}

func (e *DocumentError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return "schema validation failed: " + strings.Join(msgs, "; ")
}

// Validate checks a decoded JSON document against the schema of c
func (v *Validator) Validate(c model.Collection, doc interface{}) error {
	compiled, ok := v.schemas[c]
	if !ok {
		return fmt.Errorf("unknown collection: %s", c)
	}

	if err := compiled.Validate(doc); err != nil {
		violations := ConvertValidationError(err)
		if len(violations) == 0 {
			return err
		}
		return &DocumentError{Errors: violations}
	}
	return nil
}

// ValidateRaw decodes raw JSON and validates it against the schema of c
func (v *Validator) ValidateRaw(c model.Collection, raw []byte) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.Validate(c, doc)
}

func compileJSONSchema(url, schemaStr string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	if err := compiler.AddResource(url, strings.NewReader(schemaStr)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

// ValidateJSONSchema validates a JSON Schema
func ValidateJSONSchema(schemaStr string) error {
	if _, err := compileJSONSchema("schema://validate", schemaStr); err != nil {
		return fmt.Errorf("invalid JSON Schema: %w", err)
	}
	return nil
}

// GetRequiredFields extracts required field names from a JSON Schema
func GetRequiredFields(schemaStr string) ([]string, error) {
	var schema struct {
		Required []string `json:"required"`
	}
	if err := json.Unmarshal([]byte(schemaStr), &schema); err != nil {
		return nil, fmt.Errorf("failed to parse JSON Schema: %w", err)
	}
	if schema.Required == nil {
		return []string{}, nil
	}
	return schema.Required, nil
}

// ConvertValidationError flattens a jsonschema validation error into its
// leaf causes, sorted by location
func ConvertValidationError(err error) []*ValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}

	var out []*ValidationError
	collectLeaves(ve, &out)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func collectLeaves(ve *jsonschema.ValidationError, out *[]*ValidationError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, &ValidationError{Field: ve.InstanceLocation, Message: ve.Message})
		return
	}
	for _, cause := range ve.Causes {
		collectLeaves(cause, out)
	}
}
