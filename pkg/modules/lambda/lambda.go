// Package lambda declares the Lambda function module: runtime settings,
// VPC attachment, dead-letter targets, aliases, and environment.
package lambda

import (
	"strconv"

	"github.com/stackform/stackform/pkg/alarm"
	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.lambda.function"

// runtimes is the accepted runtime set.
var runtimes = map[string]bool{
	"nodejs18.x": true, "nodejs20.x": true, "nodejs22.x": true,
	"python3.10": true, "python3.11": true, "python3.12": true, "python3.13": true,
	"java17": true, "java21": true,
	"go1.x": true, "provided.al2": true, "provided.al2023": true,
	"dotnet8": true, "ruby3.3": true,
}

// Alias points a stable name at a published function version.
type Alias struct {
	// Name is the alias name.
	Name string `json:"name" validate:"required,min=1,max=128,awsname"`

	// FunctionVersion pins the alias to a version. Required when the
	// module does not publish a new version on change.
	FunctionVersion string `json:"function_version,omitempty"`

	// Description is optional free text.
	Description string `json:"description,omitempty" validate:"max=256"`
}

// VPCConfig attaches the function to a VPC. Subnets and security groups
// go together or not at all.
type VPCConfig struct {
	// SubnetIDs lists subnet IDs.
	SubnetIDs []string `json:"subnet_ids" validate:"required,min=1"`

	// SecurityGroupIDs lists security group IDs.
	SecurityGroupIDs []string `json:"security_group_ids" validate:"required,min=1,max=5"`
}

// Config is the function module input schema.
type Config struct {
	// Name is the function name.
	Name string `json:"name" validate:"required,min=1,max=64,awsname"`

	// Description is optional free text.
	Description string `json:"description,omitempty" validate:"max=256"`

	// Runtime is the execution runtime.
	Runtime string `json:"runtime" validate:"required"`

	// Handler is the entry point. Required for all non-provided runtimes.
	Handler string `json:"handler,omitempty" validate:"max=128"`

	// MemorySize is the memory allocation in MiB.
	MemorySize int `json:"memory_size" validate:"gte=128,lte=10240"`

	// Timeout is the execution limit in seconds.
	Timeout int `json:"timeout" validate:"gte=1,lte=900"`

	// Publish creates a new version on every change. When false, every
	// alias must pin an explicit function version.
	Publish bool `json:"publish"`

	// Aliases lists stable alias names.
	Aliases []Alias `json:"aliases,omitempty" validate:"dive"`

	// DeadLetterTargetARN routes failed async invocations to an SQS queue
	// or SNS topic.
	DeadLetterTargetARN string `json:"dead_letter_target_arn,omitempty"`

	// Environment holds plain environment variables.
	Environment map[string]string `json:"environment,omitempty"`

	// VPCConfig attaches the function to a VPC.
	VPCConfig *VPCConfig `json:"vpc_config,omitempty"`

	// Layers lists layer version ARNs, at most five.
	Layers []string `json:"layers,omitempty" validate:"max=5"`

	// ReservedConcurrency caps concurrent executions. -1 means unreserved.
	ReservedConcurrency *int `json:"reserved_concurrency,omitempty"`

	// TracingMode selects X-Ray tracing.
	TracingMode string `json:"tracing_mode,omitempty" validate:"omitempty,oneof=Active PassThrough"`

	// Alarms overrides the default error alarm settings.
	Alarms *alarm.Overrides `json:"alarms,omitempty"`

	// Tags are propagated to the function.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the function preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if c.Runtime != "" && !runtimes[c.Runtime] {
		issues.Invalidf("runtime", "unsupported runtime %q", c.Runtime)
	}
	if c.Handler == "" && c.Runtime != "" && !isProvidedRuntime(c.Runtime) {
		issues.Requiredf("handler", "handler is required for runtime %q", c.Runtime)
	}

	c.validateDeadLetter(&issues)
	c.validateAliases(&issues)

	for i, layer := range c.Layers {
		if !contract.IsReference(layer) && !arn.IsService(layer, "lambda") {
			issues.Invalidf("layers["+strconv.Itoa(i)+"]", "must be a Lambda layer version ARN")
		}
	}
	if c.ReservedConcurrency != nil && *c.ReservedConcurrency < -1 {
		issues.Rangef("reserved_concurrency", "must be -1 (unreserved) or >= 0")
	}

	return issues.Err()
}

// validateDeadLetter parses the DLQ target and restricts it to SQS or SNS.
func (c *Config) validateDeadLetter(issues *contract.Issues) {
	if c.DeadLetterTargetARN == "" || contract.IsReference(c.DeadLetterTargetARN) {
		return
	}
	parsed, err := arn.Parse(c.DeadLetterTargetARN)
	if err != nil {
		issues.Patternf("dead_letter_target_arn", "not a valid ARN: %v", err)
		return
	}
	if parsed.Service != "sqs" && parsed.Service != "sns" {
		issues.Invalidf("dead_letter_target_arn", "dead-letter target must be an SQS queue or SNS topic, got service %q", parsed.Service)
	}
}

// validateAliases enforces that unpublished functions pin every alias to
// an explicit version.
func (c *Config) validateAliases(issues *contract.Issues) {
	seen := make(map[string]bool)
	for i, a := range c.Aliases {
		path := "aliases[" + strconv.Itoa(i) + "]"
		if seen[a.Name] {
			issues.Conflictf(path+".name", "alias %q declared more than once", a.Name)
		}
		seen[a.Name] = true
		if !c.Publish && a.FunctionVersion == "" {
			issues.Requiredf(path+".function_version", "function version is required when publish is false")
		}
	}
}

func isProvidedRuntime(runtime string) bool {
	return runtime == "provided.al2" || runtime == "provided.al2023" || runtime == "go1.x"
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	functionARN := arn.LambdaFunction(env, c.Name, "")
	out := map[string]string{
		"function_name": c.Name,
		"function_arn":  functionARN,
		"invoke_arn":    arn.LambdaInvoke(env, functionARN),
	}
	for _, a := range c.Aliases {
		out["alias_arn:"+a.Name] = arn.LambdaFunction(env, c.Name, a.Name)
	}
	if c.Publish {
		out["qualified_arn"] = contract.Ref("aws_lambda_function", c.Name, "qualified_arn")
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"function_name": c.Name,
		"runtime":       c.Runtime,
		"memory_size":   c.MemorySize,
		"timeout":       c.Timeout,
		"publish":       c.Publish,
	}
	if c.Handler != "" {
		attrs["handler"] = c.Handler
	}
	if c.DeadLetterTargetARN != "" {
		attrs["dead_letter_config"] = map[string]interface{}{"target_arn": c.DeadLetterTargetARN}
	}
	if len(c.Environment) > 0 {
		attrs["environment"] = map[string]interface{}{"variables": c.Environment}
	}
	if c.VPCConfig != nil {
		attrs["vpc_config"] = c.VPCConfig
	}
	if len(c.Layers) > 0 {
		attrs["layers"] = c.Layers
	}
	if c.TracingMode != "" {
		attrs["tracing_config"] = map[string]interface{}{"mode": c.TracingMode}
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	resources := []contract.Resource{{
		Type:       "aws_lambda_function",
		Name:       c.Name,
		Attributes: attrs,
	}}

	for _, a := range c.Aliases {
		resources = append(resources, contract.Resource{
			Type: "aws_lambda_alias",
			Name: c.Name + "-" + a.Name,
			Attributes: map[string]interface{}{
				"name":             a.Name,
				"function_name":    c.Name,
				"function_version": a.FunctionVersion,
			},
		})
	}

	settings := alarm.DefaultSettings()
	if c.Alarms != nil {
		settings = settings.Merge(*c.Alarms)
	}
	resources = append(resources, contract.Resource{
		Type: "aws_cloudwatch_metric_alarm",
		Name: c.Name + "-errors",
		Attributes: map[string]interface{}{
			"namespace":   "AWS/Lambda",
			"metric_name": "Errors",
			"dimensions":  alarm.ForLambdaFunction(c.Name),
			"settings":    settings,
		},
	})

	return resources
}
