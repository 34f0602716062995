package stack

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stackform/stackform/pkg/contract"
	"github.com/stackform/stackform/pkg/policy"
	"github.com/stackform/stackform/pkg/schema"
)

// Stack composes a manifest's modules for validation and rendering.
type Stack struct {
	manifest *Manifest
	registry *Registry
	schemas  *schema.Registry
	logger   zerolog.Logger
}

// ModuleResult is the validation outcome for one module instance.
type ModuleResult struct {
	// Name is the instance name from the manifest.
	Name string `json:"name"`

	// Kind is the module kind.
	Kind string `json:"kind"`

	// Issues lists the validation findings.
	Issues contract.Issues `json:"issues,omitempty"`

	// Valid is true when no finding has error severity.
	Valid bool `json:"valid"`

	// Outputs are the module's resolved outputs.
	Outputs map[string]string `json:"outputs,omitempty"`
}

// Report is the full validation outcome for a stack.
type Report struct {
	// ID uniquely identifies this validation run.
	ID string `json:"id"`

	// Stack is the manifest's stack name.
	Stack string `json:"stack,omitempty"`

	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Environment the declarations were rendered for.
	Environment contract.Env `json:"environment"`

	// Order is the dependency-resolved validation order.
	Order []string `json:"order"`

	// Modules holds per-module results in validation order.
	Modules []ModuleResult `json:"modules"`

	// Policy is the policy evaluation result, nil when disabled.
	Policy *policy.Result `json:"policy,omitempty"`

	// Valid is true when every module validated and policies allowed
	// the declarations.
	Valid bool `json:"valid"`
}

// New creates a stack over a manifest with the built-in kind registry and
// schemas.
func New(m *Manifest, logger zerolog.Logger) (*Stack, error) {
	schemas, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to build schema registry: %w", err)
	}
	return &Stack{
		manifest: m,
		registry: NewRegistry(),
		schemas:  schemas,
		logger:   logger.With().Str("component", "stack").Logger(),
	}, nil
}

// Manifest returns the underlying manifest.
func (s *Stack) Manifest() *Manifest { return s.manifest }

// Registry returns the kind registry, so callers can register custom
// kinds before validating.
func (s *Stack) Registry() *Registry { return s.registry }

// Schemas returns the schema registry.
func (s *Stack) Schemas() *schema.Registry { return s.schemas }

// Resolver builds the dependency resolver for the manifest.
func (s *Stack) Resolver() (*Resolver, error) {
	return NewResolver(s.manifest)
}

// resolved is the outcome of decoding and validating all modules in
// dependency order.
type resolved struct {
	order     []string
	results   []ModuleResult
	resources []contract.Resource
	outputs   map[string]map[string]string
}

// resolve runs the composition pipeline: computed variables, variable
// substitution, schema checks, decoding, per-module validation, and
// output substitution into downstream configs.
func (s *Stack) resolve(ctx context.Context) (*resolved, error) {
	env := s.manifest.Environment
	if issues := contract.Struct(&env); issues.HasErrors() {
		return nil, fmt.Errorf("invalid environment: %w", issues.Err())
	}

	vars, err := NewEvaluator(0).EvaluateComputed(ctx, s.manifest.Variables, s.manifest.Computed)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate computed variables: %w", err)
	}

	resolver, err := NewResolver(s.manifest)
	if err != nil {
		return nil, err
	}

	decls := make(map[string]Declaration, len(s.manifest.Modules))
	for _, decl := range s.manifest.Modules {
		decls[decl.Name] = decl
	}

	res := &resolved{
		order:   resolver.Order(),
		outputs: make(map[string]map[string]string),
	}

	for _, name := range res.order {
		decl := decls[name]
		result := ModuleResult{Name: name, Kind: decl.Kind}

		config, err := SubstituteVars(decl.Config, vars)
		if err == nil {
			config, err = SubstituteOutputs(config, res.outputs)
		}
		if err != nil {
			result.Issues.Referencef("", "%v", err)
			res.results = append(res.results, result)
			continue
		}

		if err := s.schemas.ValidateKind(decl.Kind, config); err != nil {
			result.Issues.Invalidf("", "%v", err)
			res.results = append(res.results, result)
			continue
		}

		module, err := s.registry.Decode(decl.Kind, config)
		if err != nil {
			result.Issues.Invalidf("", "%v", err)
			res.results = append(res.results, result)
			continue
		}

		if err := module.Validate(); err != nil {
			if issues, ok := contract.AsIssues(err); ok {
				result.Issues.Merge(issues)
			} else {
				result.Issues.Invalidf("", "%v", err)
			}
		}
		result.Valid = !result.Issues.HasErrors()

		result.Outputs = module.Outputs(env)
		res.outputs[name] = result.Outputs

		if result.Valid {
			res.resources = append(res.resources, module.Resources(env)...)
		}

		s.logger.Debug().
			Str("module", name).
			Str("kind", decl.Kind).
			Bool("valid", result.Valid).
			Int("issues", len(result.Issues)).
			Msg("Module resolved")

		res.results = append(res.results, result)
	}

	return res, nil
}

// Validate runs the full pipeline, including policy evaluation, and
// produces the report.
func (s *Stack) Validate(ctx context.Context) (*Report, error) {
	res, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:          uuid.New().String(),
		Stack:       s.manifest.Name,
		GeneratedAt: time.Now(),
		Environment: s.manifest.Environment,
		Order:       res.order,
		Modules:     res.results,
		Valid:       true,
	}
	for _, result := range res.results {
		if !result.Valid {
			report.Valid = false
		}
	}

	if s.manifest.Policy.IsEnabled() {
		engine, err := policy.NewEngine(s.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create policy engine: %w", err)
		}
		if mode := s.manifest.Policy.Mode; mode != "" {
			engine.SetMode(policy.Mode(mode))
		}
		if len(s.manifest.Policy.Paths) > 0 {
			if err := engine.LoadPolicies(ctx, s.manifest.Policy.Paths); err != nil {
				return nil, err
			}
		}

		result, err := engine.EvaluateResources(ctx, res.resources, s.manifest.Stage)
		if err != nil {
			return nil, fmt.Errorf("policy evaluation failed: %w", err)
		}
		report.Policy = result
		if !result.Allowed {
			report.Valid = false
		}
	}

	s.logger.Info().
		Str("report_id", report.ID).
		Int("modules", len(report.Modules)).
		Bool("valid", report.Valid).
		Msg("Stack validated")

	return report, nil
}

// Outputs resolves and returns every module's outputs keyed by instance
// name.
func (s *Stack) Outputs(ctx context.Context) (map[string]map[string]string, error) {
	res, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return res.outputs, nil
}

// Resources resolves the stack and returns the rendered declarations of
// every valid module.
func (s *Stack) Resources(ctx context.Context) ([]contract.Resource, error) {
	res, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}
	return res.resources, nil
}
