package sns

import (
	"testing"

	"github.com/stackform/stackform/pkg/contract"
)

var testEnv = contract.Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"}

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

func TestValidateFIFO(t *testing.T) {
	c := &Config{Name: "orders", FIFOTopic: true}
	hasIssue(t, c.Validate(), "name", contract.CodePattern)

	c = &Config{Name: "orders.fifo"}
	hasIssue(t, c.Validate(), "name", contract.CodeInvalid)

	c = &Config{Name: "orders", ContentBasedDeduplication: true}
	hasIssue(t, c.Validate(), "content_based_deduplication", contract.CodeForbidden)

	c = &Config{Name: "orders.fifo", FIFOTopic: true, ContentBasedDeduplication: true}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestValidateSubscriptions(t *testing.T) {
	tests := []struct {
		name string
		sub  Subscription
		fifo bool
		path string
		code contract.Code
	}{
		{
			name: "https needs https url",
			sub:  Subscription{Protocol: "https", Endpoint: "http://hooks.example.com"},
			path: "subscriptions[0].endpoint",
			code: contract.CodeInvalid,
		},
		{
			name: "email needs address",
			sub:  Subscription{Protocol: "email", Endpoint: "not-an-address"},
			path: "subscriptions[0].endpoint",
			code: contract.CodeInvalid,
		},
		{
			name: "fifo forbids email",
			sub:  Subscription{Protocol: "email", Endpoint: "team@example.com"},
			fifo: true,
			path: "subscriptions[0].protocol",
			code: contract.CodeInvalid,
		},
		{
			name: "sqs needs queue arn",
			sub:  Subscription{Protocol: "sqs", Endpoint: "arn:aws:sns:eu-west-1:123456789012:other"},
			path: "subscriptions[0].endpoint",
			code: contract.CodeInvalid,
		},
		{
			name: "lambda needs function arn",
			sub:  Subscription{Protocol: "lambda", Endpoint: "bare-name"},
			path: "subscriptions[0].endpoint",
			code: contract.CodeInvalid,
		},
		{
			name: "raw delivery on email",
			sub:  Subscription{Protocol: "email", Endpoint: "team@example.com", RawMessageDelivery: true},
			path: "subscriptions[0].raw_message_delivery",
			code: contract.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "alerts"
			if tt.fifo {
				name = "alerts.fifo"
			}
			c := &Config{Name: name, FIFOTopic: tt.fifo, Subscriptions: []Subscription{tt.sub}}
			hasIssue(t, c.Validate(), tt.path, tt.code)
		})
	}
}

func TestValidateSubscriptionsOK(t *testing.T) {
	c := &Config{Name: "alerts", Subscriptions: []Subscription{
		{Protocol: "sqs", Endpoint: "arn:aws:sqs:eu-west-1:123456789012:ingest", RawMessageDelivery: true},
		{Protocol: "lambda", Endpoint: "${module.handler.function_arn}"},
		{Protocol: "https", Endpoint: "https://hooks.example.com/sns"},
		{Protocol: "email", Endpoint: "team@example.com"},
	}}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestResources(t *testing.T) {
	c := &Config{Name: "alerts", Subscriptions: []Subscription{
		{Protocol: "sqs", Endpoint: "arn:aws:sqs:eu-west-1:123456789012:ingest"},
	}}

	resources := c.Resources(testEnv)
	if len(resources) != 2 {
		t.Fatalf("Expected topic and subscription, got %d resources", len(resources))
	}
	sub := resources[1]
	if sub.Type != "aws_sns_topic_subscription" || sub.Name != "alerts-0" {
		t.Errorf("Subscription resource = %s", sub.Address())
	}
	if sub.Attributes["topic_arn"] != "arn:aws:sns:eu-west-1:123456789012:alerts" {
		t.Errorf("topic_arn = %v", sub.Attributes["topic_arn"])
	}
}

func TestOutputs(t *testing.T) {
	c := &Config{Name: "alerts"}
	out := c.Outputs(testEnv)
	if out["topic_arn"] != "arn:aws:sns:eu-west-1:123456789012:alerts" {
		t.Errorf("topic_arn = %q", out["topic_arn"])
	}
}
