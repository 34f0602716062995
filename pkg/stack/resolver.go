package stack

import (
	"errors"
	"fmt"
	"io"
	"regexp"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"

	"github.com/stackform/stackform/pkg/contract"
)

// refPattern matches ${var.name} and ${module.name.output} placeholders
// inside config values.
var refPattern = regexp.MustCompile(`\$\{(var|module)\.([a-zA-Z0-9_-]+)(?:\.([a-zA-Z0-9_-]+))?\}`)

// Resolver builds the dependency graph over a manifest's modules and
// substitutes variable and output references into their configs.
type Resolver struct {
	g     graph.Graph[string, string]
	order []string
}

// NewResolver builds the dependency graph from inferred ${module.*}
// references and explicit depends_on edges. A reference cycle is
// rejected.
func NewResolver(m *Manifest) (*Resolver, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	for _, decl := range m.Modules {
		if err := g.AddVertex(decl.Name); err != nil {
			return nil, fmt.Errorf("module %s: %w", decl.Name, err)
		}
	}

	for _, decl := range m.Modules {
		deps := make(map[string]bool)
		for _, dep := range decl.DependsOn {
			deps[dep] = true
		}
		for _, dep := range moduleRefs(decl.Config) {
			deps[dep] = true
		}

		for dep := range deps {
			if dep == decl.Name {
				return nil, fmt.Errorf("module %s references itself", decl.Name)
			}
			// Edges run dependency -> dependent so topological order
			// yields dependencies first.
			err := g.AddEdge(dep, decl.Name)
			switch {
			case errors.Is(err, graph.ErrEdgeAlreadyExists):
				// Inferred and explicit edge coincide.
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, fmt.Errorf("dependency cycle between modules %s and %s", dep, decl.Name)
			case errors.Is(err, graph.ErrVertexNotFound):
				return nil, fmt.Errorf("module %s references undeclared module %s", decl.Name, dep)
			case err != nil:
				return nil, err
			}
		}
	}

	order, err := graph.TopologicalSort(g)
	if err != nil {
		return nil, fmt.Errorf("failed to order modules: %w", err)
	}

	return &Resolver{g: g, order: order}, nil
}

// Order returns the validation order: every module after its
// dependencies.
func (r *Resolver) Order() []string {
	return r.order
}

// DOT writes the dependency graph in Graphviz DOT format.
func (r *Resolver) DOT(w io.Writer) error {
	return draw.DOT(r.g, w)
}

// moduleRefs collects the module names referenced from a config block.
func moduleRefs(v interface{}) []string {
	seen := make(map[string]bool)
	walkStrings(v, func(s string) {
		for _, match := range refPattern.FindAllStringSubmatch(s, -1) {
			if match[1] == "module" {
				seen[match[2]] = true
			}
		}
	})

	refs := make([]string, 0, len(seen))
	for name := range seen {
		refs = append(refs, name)
	}
	return refs
}

// walkStrings visits every string value in a decoded YAML/JSON tree.
func walkStrings(v interface{}, fn func(string)) {
	switch val := v.(type) {
	case string:
		fn(val)
	case []interface{}:
		for _, item := range val {
			walkStrings(item, fn)
		}
	case map[string]interface{}:
		for _, item := range val {
			walkStrings(item, fn)
		}
	}
}

// SubstituteVars replaces ${var.name} placeholders in a config block
// using the (computed) variable map. A string consisting of exactly one
// placeholder takes the variable's raw value, so lists and numbers pass
// through untyped strings.
func SubstituteVars(config map[string]interface{}, vars map[string]interface{}) (map[string]interface{}, error) {
	out, err := substitute(config, func(scope, name, attr string) (interface{}, bool, error) {
		if scope != "var" {
			return nil, false, nil
		}
		val, ok := vars[name]
		if !ok {
			return nil, false, fmt.Errorf("undefined variable: %s", name)
		}
		return val, true, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

// SubstituteOutputs replaces ${module.name.output} placeholders using
// the outputs of already-resolved modules.
func SubstituteOutputs(config map[string]interface{}, outputs map[string]map[string]string) (map[string]interface{}, error) {
	out, err := substitute(config, func(scope, name, attr string) (interface{}, bool, error) {
		if scope != "module" {
			return nil, false, nil
		}
		mod, ok := outputs[name]
		if !ok {
			return nil, false, fmt.Errorf("reference to unresolved module: %s", name)
		}
		val, ok := mod[attr]
		if !ok {
			return nil, false, fmt.Errorf("module %s has no output %q", name, attr)
		}
		return val, true, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(map[string]interface{}), nil
}

// substitute rewrites string values bottom-up, replacing matched
// placeholders through the lookup callback.
func substitute(v interface{}, lookup func(scope, name, attr string) (interface{}, bool, error)) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return substituteString(val, lookup)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			sub, err := substitute(item, lookup)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			sub, err := substitute(item, lookup)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(s string, lookup func(scope, name, attr string) (interface{}, bool, error)) (interface{}, error) {
	// A lone placeholder keeps the looked-up value's type.
	if match := refPattern.FindStringSubmatch(s); match != nil && match[0] == s {
		val, replaced, err := lookup(match[1], match[2], match[3])
		if err != nil {
			return nil, err
		}
		if replaced {
			return val, nil
		}
		return s, nil
	}

	var substErr error
	out := refPattern.ReplaceAllStringFunc(s, func(m string) string {
		match := refPattern.FindStringSubmatch(m)
		val, replaced, err := lookup(match[1], match[2], match[3])
		if err != nil {
			substErr = err
			return m
		}
		if !replaced {
			return m
		}
		return fmt.Sprintf("%v", val)
	})
	if substErr != nil {
		return nil, substErr
	}
	return out, nil
}

// UnresolvedReferences reports placeholders that survived both
// substitution passes, excluding provider-assigned output references.
func UnresolvedReferences(config map[string]interface{}) contract.Issues {
	var issues contract.Issues
	walkStrings(config, func(s string) {
		for _, match := range refPattern.FindAllString(s, -1) {
			issues.Referencef("", "unresolved reference %s", match)
		}
	})
	return issues
}
