package contract

import (
	"fmt"
	"strings"
)

// Env identifies the target partition, region, and account used to derive
// concrete identifiers (ARNs, endpoints) from module inputs.
type Env struct {
	// Partition is the AWS partition (aws, aws-cn, aws-us-gov).
	Partition string `json:"partition,omitempty" yaml:"partition,omitempty" validate:"omitempty,oneof=aws aws-cn aws-us-gov"`

	// Region is the target region (e.g. "eu-west-1").
	Region string `json:"region" yaml:"region" validate:"required,aws_region"`

	// AccountID is the 12-digit target account.
	AccountID string `json:"account_id" yaml:"account_id" validate:"required,aws_account"`
}

// WithDefaults returns the environment with the default partition applied.
func (e Env) WithDefaults() Env {
	if e.Partition == "" {
		e.Partition = "aws"
	}
	return e
}

// Validate checks the environment fields.
func (e Env) Validate() error {
	return Struct(e).Err()
}

// Resource is a rendered declarative resource block. It is what the policy
// engine evaluates and what the external executor would consume.
type Resource struct {
	// Type is the provider resource type (e.g. "aws_dynamodb_table").
	Type string `json:"type"`

	// Name is the declaration name within the module.
	Name string `json:"name"`

	// Attributes are the rendered resource arguments.
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Address returns the canonical resource address.
func (r Resource) Address() string {
	return r.Type + "." + r.Name
}

// Module is implemented by every service module. A module maps a structured
// input schema to resource declarations, validated by static preconditions,
// and exposes named outputs for composition with other modules.
type Module interface {
	// Kind returns the stable kind identifier (e.g. "aws.dynamodb.table").
	Kind() string

	// Validate evaluates all preconditions over the input configuration.
	// It returns an Issues value (or nil) and never touches the network.
	Validate() error

	// Outputs returns the derived output values. Provider-assigned
	// attributes are rendered as ${type.name.attr} references; values
	// derivable from inputs and env are rendered concrete.
	Outputs(env Env) map[string]string

	// Resources renders the declarative resource blocks for this module.
	Resources(env Env) []Resource
}

// Ref renders a reference to a provider-assigned resource attribute.
func Ref(resourceType, name, attr string) string {
	return fmt.Sprintf("${%s.%s.%s}", resourceType, name, attr)
}

// IsReference reports whether a value is a yet-unresolved placeholder
// rather than a concrete string. Validation of referenced values is
// deferred until the resolver substitutes them.
func IsReference(s string) bool {
	return strings.Contains(s, "${")
}
