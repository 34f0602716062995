// Package sns declares the SNS topic module: the topic plus its
// subscriptions, with protocol/endpoint consistency checks.
package sns

import (
	"strconv"
	"strings"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.sns.topic"

// Subscription delivers topic messages to an endpoint.
type Subscription struct {
	// Protocol is the delivery protocol.
	Protocol string `json:"protocol" validate:"required,oneof=https email email-json sqs lambda firehose"`

	// Endpoint is the delivery target; its shape depends on the protocol.
	Endpoint string `json:"endpoint" validate:"required"`

	// RawMessageDelivery skips the SNS envelope for sqs and https.
	RawMessageDelivery bool `json:"raw_message_delivery"`

	// FilterPolicy narrows delivery by message attributes, as JSON.
	FilterPolicy string `json:"filter_policy,omitempty"`
}

// Config is the topic module input schema.
type Config struct {
	// Name is the topic name. FIFO topics must end in ".fifo".
	Name string `json:"name" validate:"required,min=1,max=256"`

	// DisplayName is shown in SMS sender IDs.
	DisplayName string `json:"display_name,omitempty" validate:"max=100"`

	// FIFOTopic makes the topic first-in first-out.
	FIFOTopic bool `json:"fifo_topic"`

	// ContentBasedDeduplication derives the dedup ID from the body.
	// FIFO only.
	ContentBasedDeduplication bool `json:"content_based_deduplication"`

	// KMSMasterKeyID encrypts messages at rest when set.
	KMSMasterKeyID string `json:"kms_master_key_id,omitempty"`

	// Subscriptions are created alongside the topic.
	Subscriptions []Subscription `json:"subscriptions,omitempty" validate:"dive"`

	// Tags are propagated to the topic.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the topic preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if c.FIFOTopic && !strings.HasSuffix(c.Name, ".fifo") {
		issues.Patternf("name", "FIFO topic name %q must end in .fifo", c.Name)
	}
	if !c.FIFOTopic && strings.HasSuffix(c.Name, ".fifo") {
		issues.Invalidf("name", "only FIFO topics may use the .fifo suffix")
	}
	if c.ContentBasedDeduplication && !c.FIFOTopic {
		issues.Forbiddenf("content_based_deduplication", "content-based deduplication requires a FIFO topic")
	}

	for i, sub := range c.Subscriptions {
		validateSubscription(&issues, "subscriptions["+strconv.Itoa(i)+"]", sub, c.FIFOTopic)
	}

	return issues.Err()
}

func validateSubscription(issues *contract.Issues, path string, sub Subscription, fifo bool) {
	ref := contract.IsReference(sub.Endpoint)

	switch sub.Protocol {
	case "https":
		if !strings.HasPrefix(sub.Endpoint, "https://") {
			issues.Invalidf(path+".endpoint", "https subscriptions require an https:// URL")
		}
	case "email", "email-json":
		if !strings.Contains(sub.Endpoint, "@") {
			issues.Invalidf(path+".endpoint", "email subscriptions require an email address")
		}
		if fifo {
			issues.Invalidf(path+".protocol", "FIFO topics do not support %s subscriptions", sub.Protocol)
		}
	case "sqs":
		if !ref && !arn.IsService(sub.Endpoint, "sqs") {
			issues.Invalidf(path+".endpoint", "sqs subscriptions require an SQS queue ARN")
		}
	case "lambda":
		if !ref && !arn.IsService(sub.Endpoint, "lambda") {
			issues.Invalidf(path+".endpoint", "lambda subscriptions require a Lambda function ARN")
		}
	case "firehose":
		if !ref && !arn.IsService(sub.Endpoint, "firehose") {
			issues.Invalidf(path+".endpoint", "firehose subscriptions require a delivery stream ARN")
		}
	}

	if sub.RawMessageDelivery && sub.Protocol != "sqs" && sub.Protocol != "https" && sub.Protocol != "firehose" {
		issues.Forbiddenf(path+".raw_message_delivery", "raw message delivery is not supported for %s", sub.Protocol)
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"topic_name": c.Name,
		"topic_arn":  arn.SNSTopic(env, c.Name),
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name": c.Name,
	}
	if c.DisplayName != "" {
		attrs["display_name"] = c.DisplayName
	}
	if c.FIFOTopic {
		attrs["fifo_topic"] = true
		attrs["content_based_deduplication"] = c.ContentBasedDeduplication
	}
	if c.KMSMasterKeyID != "" {
		attrs["kms_master_key_id"] = c.KMSMasterKeyID
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	resources := []contract.Resource{
		{Type: "aws_sns_topic", Name: c.Name, Attributes: attrs},
	}
	for i, sub := range c.Subscriptions {
		resources = append(resources, contract.Resource{
			Type: "aws_sns_topic_subscription",
			Name: c.Name + "-" + strconv.Itoa(i),
			Attributes: map[string]interface{}{
				"topic_arn":            arn.SNSTopic(env, c.Name),
				"protocol":             sub.Protocol,
				"endpoint":             sub.Endpoint,
				"raw_message_delivery": sub.RawMessageDelivery,
			},
		})
	}
	return resources
}
