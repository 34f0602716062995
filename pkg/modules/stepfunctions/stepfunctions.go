// Package stepfunctions declares the Step Functions state machine module.
// The state machine definition is checked structurally: it must be valid
// JSON and its StartAt state must exist in States.
package stepfunctions

import (
	"encoding/json"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.sfn.state_machine"

// LoggingConfig enables execution history delivery to CloudWatch Logs.
type LoggingConfig struct {
	// Level selects what gets logged.
	Level string `json:"level" validate:"required,oneof=ALL ERROR FATAL OFF"`

	// IncludeExecutionData logs input and output payloads.
	IncludeExecutionData bool `json:"include_execution_data"`

	// DestinationARN is the log group destination, required unless the
	// level is OFF.
	DestinationARN string `json:"destination_arn,omitempty"`
}

// definition is the subset of the states language the module inspects.
type definition struct {
	StartAt string                     `json:"StartAt"`
	States  map[string]json.RawMessage `json:"States"`
}

// Config is the state machine module input schema.
type Config struct {
	// Name is the state machine name.
	Name string `json:"name" validate:"required,min=1,max=80,awsname"`

	// Type selects STANDARD (durable) or EXPRESS (high-volume) workflows.
	Type string `json:"type" validate:"required,oneof=STANDARD EXPRESS"`

	// Definition is the states language document as JSON.
	Definition string `json:"definition" validate:"required"`

	// RoleARN is the role executions assume.
	RoleARN string `json:"role_arn" validate:"required"`

	// Logging configures execution history delivery.
	Logging *LoggingConfig `json:"logging,omitempty"`

	// TracingEnabled turns on X-Ray tracing.
	TracingEnabled bool `json:"tracing_enabled"`

	// Tags are propagated to the state machine.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the state machine preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if !contract.IsReference(c.RoleARN) && !arn.IsService(c.RoleARN, "iam") {
		issues.Invalidf("role_arn", "execution role must be an IAM role ARN")
	}

	if c.Definition != "" && !contract.IsReference(c.Definition) {
		var def definition
		if err := json.Unmarshal([]byte(c.Definition), &def); err != nil {
			issues.Invalidf("definition", "definition is not valid JSON: %v", err)
		} else {
			if def.StartAt == "" {
				issues.Requiredf("definition", "definition must declare StartAt")
			}
			if len(def.States) == 0 {
				issues.Requiredf("definition", "definition must declare States")
			}
			if def.StartAt != "" && len(def.States) > 0 {
				if _, ok := def.States[def.StartAt]; !ok {
					issues.Referencef("definition", "StartAt state %q is not declared in States", def.StartAt)
				}
			}
		}
	}

	if c.Logging != nil {
		if c.Logging.Level != "OFF" && c.Logging.DestinationARN == "" {
			issues.Requiredf("logging.destination_arn", "logging level %s requires a destination", c.Logging.Level)
		}
		if c.Logging.DestinationARN != "" && !contract.IsReference(c.Logging.DestinationARN) {
			if !arn.IsService(c.Logging.DestinationARN, "logs") {
				issues.Invalidf("logging.destination_arn", "logging destination must be a CloudWatch Logs ARN")
			}
		}
	}

	return issues.Err()
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"state_machine_name": c.Name,
		"state_machine_arn":  arn.StateMachine(env, c.Name),
		"role_arn":           c.RoleARN,
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":       c.Name,
		"type":       c.Type,
		"definition": c.Definition,
		"role_arn":   c.RoleARN,
	}
	if c.Logging != nil {
		attrs["logging_configuration"] = c.Logging
	}
	if c.TracingEnabled {
		attrs["tracing_configuration"] = map[string]interface{}{"enabled": true}
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}
	return []contract.Resource{
		{Type: "aws_sfn_state_machine", Name: c.Name, Attributes: attrs},
	}
}
