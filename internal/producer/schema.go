package producer

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ErrInvalidConfig is wrapped into an errs.UserInput by the caller when a
// handler's runtime.config fails schema validation (§4.6 "Handlers may
// declare an input JSON schema; the core validates runtime.config against
// it before calling invoke").
type ErrInvalidConfig struct {
	Handler string
	Cause   error
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("producer: config for handler %q failed schema validation: %v", e.Handler, e.Cause)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.Cause }

// SchemaValidator compiles and caches a ProducerHandler's config JSON
// schema, grounded on the registry package's validatePayloadJSONAgainstSchema
// helper (same jsonschema.NewCompiler/AddResource/Compile sequence),
// generalized to compile once per handler registration and cache the
// compiled *jsonschema.Schema rather than recompiling per call.
type SchemaValidator struct {
	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{schemas: map[string]*jsonschema.Schema{}}
}

// Register compiles schemaBytes under handlerName, so later Validate calls
// reuse the compiled schema. A nil or empty schemaBytes clears any
// previously registered schema for handlerName (an unconstrained handler).
func (v *SchemaValidator) Register(handlerName string, schemaBytes []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if len(schemaBytes) == 0 {
		delete(v.schemas, handlerName)
		return nil
	}

	var schemaDoc any
	if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		return fmt.Errorf("producer: unmarshaling schema for %q: %w", handlerName, err)
	}

	c := jsonschema.NewCompiler()
	resourceName := handlerName + ".schema.json"
	if err := c.AddResource(resourceName, schemaDoc); err != nil {
		return fmt.Errorf("producer: adding schema resource for %q: %w", handlerName, err)
	}
	compiled, err := c.Compile(resourceName)
	if err != nil {
		return fmt.Errorf("producer: compiling schema for %q: %w", handlerName, err)
	}

	v.schemas[handlerName] = compiled
	return nil
}

// Validate checks config against handlerName's registered schema. Handlers
// with no registered schema accept any config.
func (v *SchemaValidator) Validate(handlerName string, config map[string]any) error {
	v.mu.Lock()
	schema, ok := v.schemas[handlerName]
	v.mu.Unlock()
	if !ok {
		return nil
	}

	// jsonschema validates against generic any values produced by
	// encoding/json, not map[string]any directly with nested Go types
	// (e.g. value.Value) — round-trip through JSON to normalize.
	raw, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("producer: marshaling config for %q: %w", handlerName, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("producer: unmarshaling config for %q: %w", handlerName, err)
	}

	if err := schema.Validate(doc); err != nil {
		return &ErrInvalidConfig{Handler: handlerName, Cause: err}
	}
	return nil
}
