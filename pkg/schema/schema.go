// Package schema holds the CUE schema registry. Schemas gate the manifest
// and module inputs structurally before they are decoded into typed
// configs; the detailed cross-field preconditions live on the module types
// themselves.
package schema

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Registry manages compiled CUE schemas keyed by name. Module kinds use
// their kind string ("aws.s3.bucket"); the manifest envelope registers as
// "manifest".
type Registry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewRegistry creates a registry with all built-in schemas compiled.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	if err := r.Register("manifest", manifestSchema); err != nil {
		return nil, err
	}
	for kind, src := range kindSchemas {
		if err := r.Register(kind, src); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register compiles and stores a schema under the given name, replacing
// any previous registration.
func (r *Registry) Register(name, src string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	val := r.ctx.CompileString(src)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}
	r.schemas[name] = schemaValue(val)
	return nil
}

// schemaValue unwraps the root definition of a schema file so unification
// runs against the definition, not the enclosing struct. Helper
// definitions referenced from the root stay resolvable.
func schemaValue(val cue.Value) cue.Value {
	for _, root := range []string{"#Config", "#Manifest"} {
		if v := val.LookupPath(cue.ParsePath(root)); v.Exists() {
			return v
		}
	}
	return val
}

// Get retrieves a schema by name.
func (r *Registry) Get(name string) (cue.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	val, ok := r.schemas[name]
	return val, ok
}

// Has reports whether a schema is registered for the name.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns the registered schema names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	return names
}

// Source returns the built-in CUE source for a name, for display.
func Source(name string) (string, bool) {
	if name == "manifest" {
		return manifestSchema, true
	}
	src, ok := kindSchemas[name]
	return src, ok
}

// Validate unifies data with the named schema. Unification failure means
// the data does not satisfy the schema; the returned error carries CUE's
// positioned messages.
func (r *Registry) Validate(name string, data interface{}) error {
	schema, ok := r.Get(name)
	if !ok {
		return fmt.Errorf("schema %s not found", name)
	}

	val := r.ctx.Encode(data)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return fmt.Errorf("schema %s: %w", name, err)
	}
	return nil
}

// ValidateKind validates a raw module config block against its kind
// schema. Kinds without a registered schema pass; the typed Validate
// still runs after decoding.
func (r *Registry) ValidateKind(kind string, config map[string]interface{}) error {
	if !r.Has(kind) {
		return nil
	}
	return r.Validate(kind, config)
}
