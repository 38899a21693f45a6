package execution

import (
	"fmt"

	"contentforge/internal/producer"
)

// Registration binds a ProducerHandler to its runtime configuration, keyed
// by the producer alias a job's AliasPath names (§4.6's handler contract:
// one registered handler per imported producer alias).
type Registration struct {
	Handler producer.ProducerHandler
	Config  map[string]any
}

// Registry holds every handler an ExecutionPlan's jobs may invoke, and
// validates each handler's config against its declared schema once at
// registration time rather than on every job invocation.
type Registry struct {
	entries   map[string]Registration
	validator *producer.SchemaValidator
}

func NewRegistry() *Registry {
	return &Registry{
		entries:   map[string]Registration{},
		validator: producer.NewSchemaValidator(),
	}
}

// Register binds handler (optionally wrapped in a producer.SimulatedHandler
// by the caller when running in ModeSimulated) to aliasPath, compiling and
// caching its config schema and validating config against it immediately.
func (r *Registry) Register(aliasPath string, handler producer.ProducerHandler, config map[string]any) error {
	if err := r.validator.Register(aliasPath, handler.ConfigSchema()); err != nil {
		return fmt.Errorf("execution: registering schema for %q: %w", aliasPath, err)
	}
	if err := r.validator.Validate(aliasPath, config); err != nil {
		return fmt.Errorf("execution: validating config for %q: %w", aliasPath, err)
	}
	r.entries[aliasPath] = Registration{Handler: handler, Config: config}
	return nil
}

// Lookup returns the registration for aliasPath, if any.
func (r *Registry) Lookup(aliasPath string) (Registration, bool) {
	reg, ok := r.entries[aliasPath]
	return reg, ok
}
