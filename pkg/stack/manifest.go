// Package stack loads stack manifests and composes the declared modules:
// decoding each config through the kind registry, resolving cross-module
// references in dependency order, and rendering the combined resource
// declarations for policy evaluation.
package stack

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stackform/stackform/pkg/contract"
)

// Manifest is the YAML document describing one stack.
type Manifest struct {
	// Name is the stack name.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Stage is the deployment stage (e.g. "production"), exposed to
	// policies as the evaluation environment.
	Stage string `yaml:"stage,omitempty" json:"stage,omitempty"`

	// Environment the declarations are rendered for.
	Environment contract.Env `yaml:"environment" json:"environment"`

	// Variables are plain values available as ${var.name}.
	Variables map[string]interface{} `yaml:"variables,omitempty" json:"variables,omitempty"`

	// Computed maps variable names to Starlark expressions evaluated
	// over the plain variables.
	Computed map[string]string `yaml:"computed,omitempty" json:"computed,omitempty"`

	// Policy configures policy evaluation for the stack.
	Policy PolicySettings `yaml:"policy,omitempty" json:"policy,omitempty"`

	// Modules are the module declarations.
	Modules []Declaration `yaml:"modules" json:"modules"`
}

// PolicySettings configures how policies apply to the stack.
type PolicySettings struct {
	// Enabled turns policy evaluation on. Defaults to true.
	Enabled *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`

	// Mode is advisory or enforcing.
	Mode string `yaml:"mode,omitempty" json:"mode,omitempty"`

	// Paths lists extra policy files or directories to load.
	Paths []string `yaml:"paths,omitempty" json:"paths,omitempty"`
}

// IsEnabled reports whether policy evaluation applies.
func (p PolicySettings) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// Declaration is one module instance in the manifest.
type Declaration struct {
	// Name is the instance name, unique within the manifest.
	Name string `yaml:"name" json:"name"`

	// Kind selects the module type.
	Kind string `yaml:"kind" json:"kind"`

	// Config is the kind-specific input block.
	Config map[string]interface{} `yaml:"config" json:"config"`

	// DependsOn adds explicit ordering edges beyond inferred
	// references.
	DependsOn []string `yaml:"depends_on,omitempty" json:"depends_on,omitempty"`
}

// LoadManifest reads and decodes a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes a manifest from YAML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.Environment = m.Environment.WithDefaults()

	names := make(map[string]bool, len(m.Modules))
	for i, decl := range m.Modules {
		if decl.Name == "" {
			return nil, fmt.Errorf("modules[%d]: name is required", i)
		}
		if decl.Kind == "" {
			return nil, fmt.Errorf("module %s: kind is required", decl.Name)
		}
		if names[decl.Name] {
			return nil, fmt.Errorf("module %s declared more than once", decl.Name)
		}
		names[decl.Name] = true
	}
	for _, decl := range m.Modules {
		for _, dep := range decl.DependsOn {
			if !names[dep] {
				return nil, fmt.Errorf("module %s depends on undeclared module %s", decl.Name, dep)
			}
		}
	}

	return &m, nil
}
