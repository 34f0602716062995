// Package eventbridge declares the EventBridge rule module: one rule with
// its targets. A rule matches by schedule or by event pattern, never both.
package eventbridge

import (
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.events.rule"

// DefaultBus is the bus schedules must run on.
const DefaultBus = "default"

var (
	ratePattern = regexp.MustCompile(`^rate\(\d+ (minute|minutes|hour|hours|day|days)\)$`)
	cronPattern = regexp.MustCompile(`^cron\([^)]+\)$`)
)

// InputTransformer reshapes the matched event before delivery.
type InputTransformer struct {
	// InputPaths maps placeholder names to JSONPath expressions.
	InputPaths map[string]string `json:"input_paths,omitempty" validate:"max=100"`

	// InputTemplate is the delivery payload template.
	InputTemplate string `json:"input_template" validate:"required"`
}

// Target receives matched events.
type Target struct {
	// ID identifies the target within the rule.
	ID string `json:"id" validate:"required,min=1,max=64,awsname"`

	// ARN is the target resource.
	ARN string `json:"arn" validate:"required"`

	// RoleARN is assumed for delivery when the target needs one.
	RoleARN string `json:"role_arn,omitempty"`

	// Input replaces the event with a constant JSON payload.
	Input string `json:"input,omitempty"`

	// InputPath delivers a JSONPath selection of the event.
	InputPath string `json:"input_path,omitempty"`

	// InputTransformer reshapes the event with a template.
	InputTransformer *InputTransformer `json:"input_transformer,omitempty"`

	// DeadLetterARN is an SQS queue for failed deliveries.
	DeadLetterARN string `json:"dead_letter_arn,omitempty"`

	// RetryAttempts bounds delivery retries.
	RetryAttempts int `json:"retry_attempts,omitempty" validate:"omitempty,gte=0,lte=185"`
}

// Config is the rule module input schema.
type Config struct {
	// Name is the rule name.
	Name string `json:"name" validate:"required,min=1,max=64,awsname"`

	// Description is optional free text.
	Description string `json:"description,omitempty" validate:"max=512"`

	// EventBusName is the bus the rule lives on.
	EventBusName string `json:"event_bus_name,omitempty"`

	// ScheduleExpression matches on a timer, rate(...) or cron(...).
	ScheduleExpression string `json:"schedule_expression,omitempty"`

	// EventPattern matches on event content, as JSON.
	EventPattern string `json:"event_pattern,omitempty"`

	// Enabled controls whether the rule fires.
	Enabled bool `json:"enabled"`

	// Targets receive matched events.
	Targets []Target `json:"targets" validate:"required,min=1,max=5,dive"`

	// Tags are propagated to the rule.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// bus returns the effective event bus name.
func (c *Config) bus() string {
	if c.EventBusName == "" {
		return DefaultBus
	}
	return c.EventBusName
}

// Validate evaluates the rule preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	switch {
	case c.ScheduleExpression == "" && c.EventPattern == "":
		issues.Requiredf("schedule_expression", "a rule needs a schedule_expression or an event_pattern")
	case c.ScheduleExpression != "" && c.EventPattern != "":
		issues.Conflictf("schedule_expression", "schedule_expression and event_pattern are mutually exclusive")
	}

	if c.ScheduleExpression != "" {
		if c.bus() != DefaultBus {
			issues.Invalidf("event_bus_name", "scheduled rules only run on the default bus")
		}
		if !ratePattern.MatchString(c.ScheduleExpression) && !cronPattern.MatchString(c.ScheduleExpression) {
			issues.Patternf("schedule_expression", "%q is not a rate(...) or cron(...) expression", c.ScheduleExpression)
		}
	}

	if c.EventPattern != "" && !json.Valid([]byte(c.EventPattern)) {
		issues.Invalidf("event_pattern", "event pattern is not valid JSON")
	}

	seen := make(map[string]bool)
	for i, t := range c.Targets {
		p := "targets[" + strconv.Itoa(i) + "]"
		if seen[t.ID] {
			issues.Conflictf(p+".id", "target %q declared more than once", t.ID)
		}
		seen[t.ID] = true
		validateTarget(&issues, p, t)
	}

	return issues.Err()
}

func validateTarget(issues *contract.Issues, path string, t Target) {
	if !contract.IsReference(t.ARN) && !arn.IsARN(t.ARN) {
		issues.Invalidf(path+".arn", "target must be an ARN")
	}

	set := 0
	if t.Input != "" {
		set++
		if !json.Valid([]byte(t.Input)) {
			issues.Invalidf(path+".input", "target input is not valid JSON")
		}
	}
	if t.InputPath != "" {
		set++
	}
	if t.InputTransformer != nil {
		set++
	}
	if set > 1 {
		issues.Conflictf(path+".input", "input, input_path, and input_transformer are mutually exclusive")
	}

	if t.DeadLetterARN != "" && !contract.IsReference(t.DeadLetterARN) {
		if !arn.IsService(t.DeadLetterARN, "sqs") {
			issues.Invalidf(path+".dead_letter_arn", "target dead letter queue must be an SQS ARN")
		}
	}
	if t.RoleARN != "" && !contract.IsReference(t.RoleARN) && !arn.IsService(t.RoleARN, "iam") {
		issues.Invalidf(path+".role_arn", "delivery role must be an IAM role ARN")
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"rule_name": c.Name,
		"rule_arn":  arn.EventRule(env, c.bus(), c.Name),
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":       c.Name,
		"is_enabled": c.Enabled,
	}
	if c.Description != "" {
		attrs["description"] = c.Description
	}
	if c.EventBusName != "" {
		attrs["event_bus_name"] = c.EventBusName
	}
	if c.ScheduleExpression != "" {
		attrs["schedule_expression"] = c.ScheduleExpression
	}
	if c.EventPattern != "" {
		attrs["event_pattern"] = c.EventPattern
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	resources := []contract.Resource{
		{Type: "aws_cloudwatch_event_rule", Name: c.Name, Attributes: attrs},
	}
	for _, t := range c.Targets {
		targetAttrs := map[string]interface{}{
			"rule":      c.Name,
			"target_id": t.ID,
			"arn":       t.ARN,
		}
		if t.RoleARN != "" {
			targetAttrs["role_arn"] = t.RoleARN
		}
		if t.Input != "" {
			targetAttrs["input"] = t.Input
		}
		if t.InputPath != "" {
			targetAttrs["input_path"] = t.InputPath
		}
		if t.InputTransformer != nil {
			targetAttrs["input_transformer"] = t.InputTransformer
		}
		if t.DeadLetterARN != "" {
			targetAttrs["dead_letter_config"] = map[string]interface{}{"arn": t.DeadLetterARN}
		}
		resources = append(resources, contract.Resource{
			Type:       "aws_cloudwatch_event_target",
			Name:       c.Name + "-" + t.ID,
			Attributes: targetAttrs,
		})
	}
	return resources
}
