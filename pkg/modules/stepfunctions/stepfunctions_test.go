package stepfunctions

import (
	"testing"

	"github.com/stackform/stackform/pkg/contract"
)

var testEnv = contract.Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"}

const roleARN = "arn:aws:iam::123456789012:role/sfn"

const validDefinition = `{
	"StartAt": "Fetch",
	"States": {
		"Fetch": {"Type": "Task", "Resource": "arn:aws:lambda:eu-west-1:123456789012:function:fetch", "Next": "Done"},
		"Done": {"Type": "Succeed"}
	}
}`

func validConfig() *Config {
	return &Config{
		Name:       "order-flow",
		Type:       "STANDARD",
		Definition: validDefinition,
		RoleARN:    roleARN,
	}
}

func hasIssue(t *testing.T, err error, path string, code contract.Code) {
	t.Helper()
	issues, ok := contract.AsIssues(err)
	if !ok {
		t.Fatalf("Expected issues, got %v", err)
	}
	for _, issue := range issues {
		if issue.Path == path && issue.Code == code {
			return
		}
	}
	t.Errorf("Missing issue %s at %q, got: %v", code, path, issues)
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestValidateDefinition(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		code       contract.Code
	}{
		{
			name:       "not json",
			definition: "{bad",
			code:       contract.CodeInvalid,
		},
		{
			name:       "missing start at",
			definition: `{"States":{"Done":{"Type":"Succeed"}}}`,
			code:       contract.CodeRequired,
		},
		{
			name:       "missing states",
			definition: `{"StartAt":"Done"}`,
			code:       contract.CodeRequired,
		},
		{
			name:       "start at unknown state",
			definition: `{"StartAt":"Missing","States":{"Done":{"Type":"Succeed"}}}`,
			code:       contract.CodeReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Definition = tt.definition
			hasIssue(t, c.Validate(), "definition", tt.code)
		})
	}
}

func TestValidateDefinitionReference(t *testing.T) {
	c := validConfig()
	c.Definition = "${var.definition}"
	if err := c.Validate(); err != nil {
		t.Errorf("Reference placeholder should pass, got %v", err)
	}
}

func TestValidateLogging(t *testing.T) {
	c := validConfig()
	c.Logging = &LoggingConfig{Level: "ALL"}
	hasIssue(t, c.Validate(), "logging.destination_arn", contract.CodeRequired)

	c = validConfig()
	c.Logging = &LoggingConfig{Level: "ERROR", DestinationARN: "arn:aws:s3:::bucket"}
	hasIssue(t, c.Validate(), "logging.destination_arn", contract.CodeInvalid)

	c = validConfig()
	c.Logging = &LoggingConfig{Level: "OFF"}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}

	c = validConfig()
	c.Logging = &LoggingConfig{Level: "ALL", IncludeExecutionData: true, DestinationARN: "arn:aws:logs:eu-west-1:123456789012:log-group:/aws/sfn/order-flow"}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestValidateRole(t *testing.T) {
	c := validConfig()
	c.RoleARN = "arn:aws:lambda:eu-west-1:123456789012:function:x"
	hasIssue(t, c.Validate(), "role_arn", contract.CodeInvalid)
}

func TestOutputs(t *testing.T) {
	c := validConfig()
	out := c.Outputs(testEnv)
	if out["state_machine_arn"] != "arn:aws:states:eu-west-1:123456789012:stateMachine:order-flow" {
		t.Errorf("state_machine_arn = %q", out["state_machine_arn"])
	}
}

func TestResources(t *testing.T) {
	c := validConfig()
	c.TracingEnabled = true

	resources := c.Resources(testEnv)
	if len(resources) != 1 {
		t.Fatalf("Expected one resource, got %d", len(resources))
	}
	if resources[0].Type != "aws_sfn_state_machine" {
		t.Errorf("Resource = %s", resources[0].Address())
	}
	tracing, ok := resources[0].Attributes["tracing_configuration"].(map[string]interface{})
	if !ok || tracing["enabled"] != true {
		t.Errorf("Missing tracing configuration: %v", resources[0].Attributes)
	}
}
