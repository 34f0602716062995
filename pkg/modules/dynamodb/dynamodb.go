// Package dynamodb declares the DynamoDB table module: key schema,
// billing, secondary indexes, streams, TTL, and encryption, with the
// cross-field preconditions evaluated before any resource is applied.
package dynamodb

import (
	"strconv"

	"github.com/stackform/stackform/pkg/alarm"
	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.dynamodb.table"

// BillingMode selects capacity billing.
type BillingMode string

const (
	// BillingProvisioned bills fixed read/write capacity units.
	BillingProvisioned BillingMode = "PROVISIONED"

	// BillingPayPerRequest bills per request.
	BillingPayPerRequest BillingMode = "PAY_PER_REQUEST"
)

// Attribute declares a key attribute used by the table or an index.
type Attribute struct {
	// Name is the attribute name.
	Name string `json:"name" validate:"required,min=1,max=255"`

	// Type is the attribute type: S (string), N (number), or B (binary).
	Type string `json:"type" validate:"required,oneof=S N B"`
}

// GlobalSecondaryIndex declares a GSI.
type GlobalSecondaryIndex struct {
	// Name is the index name.
	Name string `json:"name" validate:"required,min=3,max=255,awsname"`

	// HashKey is the index partition key attribute.
	HashKey string `json:"hash_key" validate:"required"`

	// RangeKey is the optional index sort key attribute.
	RangeKey string `json:"range_key,omitempty"`

	// ProjectionType controls projected attributes.
	ProjectionType string `json:"projection_type" validate:"required,oneof=ALL KEYS_ONLY INCLUDE"`

	// NonKeyAttributes lists projected attributes for INCLUDE projections.
	NonKeyAttributes []string `json:"non_key_attributes,omitempty"`

	// ReadCapacity is required under PROVISIONED billing.
	ReadCapacity *int `json:"read_capacity,omitempty"`

	// WriteCapacity is required under PROVISIONED billing.
	WriteCapacity *int `json:"write_capacity,omitempty"`
}

// LocalSecondaryIndex declares an LSI. LSIs always share the table hash
// key and require the table to define a range key.
type LocalSecondaryIndex struct {
	// Name is the index name.
	Name string `json:"name" validate:"required,min=3,max=255,awsname"`

	// RangeKey is the index sort key attribute.
	RangeKey string `json:"range_key" validate:"required"`

	// ProjectionType controls projected attributes.
	ProjectionType string `json:"projection_type" validate:"required,oneof=ALL KEYS_ONLY INCLUDE"`

	// NonKeyAttributes lists projected attributes for INCLUDE projections.
	NonKeyAttributes []string `json:"non_key_attributes,omitempty"`
}

// TTL configures item expiry.
type TTL struct {
	// Enabled turns TTL on.
	Enabled bool `json:"enabled"`

	// AttributeName is the epoch-seconds attribute, required when enabled.
	AttributeName string `json:"attribute_name,omitempty"`
}

// ServerSideEncryption configures SSE.
type ServerSideEncryption struct {
	// Enabled turns customer-managed SSE on.
	Enabled bool `json:"enabled"`

	// KMSKeyARN selects a customer-managed key. Only valid when enabled.
	KMSKeyARN string `json:"kms_key_arn,omitempty"`
}

// Config is the table module input schema.
type Config struct {
	// Name is the table name.
	Name string `json:"name" validate:"required,min=3,max=255,awsname"`

	// BillingMode selects PROVISIONED or PAY_PER_REQUEST billing.
	BillingMode BillingMode `json:"billing_mode" validate:"required,oneof=PROVISIONED PAY_PER_REQUEST"`

	// ReadCapacity is required under PROVISIONED billing and forbidden
	// otherwise.
	ReadCapacity *int `json:"read_capacity,omitempty"`

	// WriteCapacity is required under PROVISIONED billing and forbidden
	// otherwise.
	WriteCapacity *int `json:"write_capacity,omitempty"`

	// HashKey is the table partition key attribute.
	HashKey string `json:"hash_key" validate:"required"`

	// RangeKey is the optional table sort key attribute.
	RangeKey string `json:"range_key,omitempty"`

	// Attributes declares every key attribute referenced by the table or
	// its indexes. Unreferenced declarations are rejected.
	Attributes []Attribute `json:"attributes" validate:"required,min=1,dive"`

	// GlobalSecondaryIndexes lists GSIs.
	GlobalSecondaryIndexes []GlobalSecondaryIndex `json:"global_secondary_indexes,omitempty" validate:"dive"`

	// LocalSecondaryIndexes lists LSIs.
	LocalSecondaryIndexes []LocalSecondaryIndex `json:"local_secondary_indexes,omitempty" validate:"dive"`

	// StreamEnabled turns the table stream on.
	StreamEnabled bool `json:"stream_enabled"`

	// StreamViewType is required exactly when StreamEnabled is true.
	StreamViewType string `json:"stream_view_type,omitempty" validate:"omitempty,oneof=KEYS_ONLY NEW_IMAGE OLD_IMAGE NEW_AND_OLD_IMAGES"`

	// TTL configures item expiry.
	TTL *TTL `json:"ttl,omitempty"`

	// ServerSideEncryption configures SSE.
	ServerSideEncryption *ServerSideEncryption `json:"server_side_encryption,omitempty"`

	// PointInTimeRecovery enables continuous backups.
	PointInTimeRecovery bool `json:"point_in_time_recovery"`

	// Alarms overrides the default throttling alarm settings.
	Alarms *alarm.Overrides `json:"alarms,omitempty"`

	// Tags are propagated to the table.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the table preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	c.validateCapacity(&issues)
	c.validateKeySchema(&issues)
	c.validateStream(&issues)

	if c.TTL != nil && c.TTL.Enabled && c.TTL.AttributeName == "" {
		issues.Requiredf("ttl.attribute_name", "attribute name is required when TTL is enabled")
	}
	if c.ServerSideEncryption != nil && !c.ServerSideEncryption.Enabled && c.ServerSideEncryption.KMSKeyARN != "" {
		issues.Forbiddenf("server_side_encryption.kms_key_arn", "KMS key requires server-side encryption to be enabled")
	}
	if c.ServerSideEncryption != nil && c.ServerSideEncryption.KMSKeyARN != "" &&
		!contract.IsReference(c.ServerSideEncryption.KMSKeyARN) && !arn.IsService(c.ServerSideEncryption.KMSKeyARN, "kms") {
		issues.Invalidf("server_side_encryption.kms_key_arn", "must be a KMS key ARN")
	}
	if c.Alarms != nil {
		if err := alarm.DefaultSettings().Merge(*c.Alarms).Validate(); err != nil {
			if sub, ok := contract.AsIssues(err); ok {
				for _, issue := range sub {
					issue.Path = "alarms." + issue.Path
					issues.Add(issue)
				}
			}
		}
	}

	return issues.Err()
}

// validateCapacity enforces the billing-mode / capacity consistency rules
// for the table and every GSI.
func (c *Config) validateCapacity(issues *contract.Issues) {
	switch c.BillingMode {
	case BillingProvisioned:
		if c.ReadCapacity == nil || *c.ReadCapacity < 1 {
			issues.Requiredf("read_capacity", "read capacity >= 1 is required when billing_mode is PROVISIONED")
		}
		if c.WriteCapacity == nil || *c.WriteCapacity < 1 {
			issues.Requiredf("write_capacity", "write capacity >= 1 is required when billing_mode is PROVISIONED")
		}
		for i, gsi := range c.GlobalSecondaryIndexes {
			if gsi.ReadCapacity == nil || gsi.WriteCapacity == nil {
				issues.Requiredf(gsiPath(i)+".read_capacity", "GSI capacity is required when billing_mode is PROVISIONED")
			}
		}
	case BillingPayPerRequest:
		if c.ReadCapacity != nil || c.WriteCapacity != nil {
			issues.Forbiddenf("read_capacity", "capacity must be unset when billing_mode is PAY_PER_REQUEST")
		}
		for i, gsi := range c.GlobalSecondaryIndexes {
			if gsi.ReadCapacity != nil || gsi.WriteCapacity != nil {
				issues.Forbiddenf(gsiPath(i)+".read_capacity", "GSI capacity must be unset when billing_mode is PAY_PER_REQUEST")
			}
		}
	}
}

// validateKeySchema checks that every key reference resolves to a declared
// attribute and that no declared attribute is unused.
func (c *Config) validateKeySchema(issues *contract.Issues) {
	declared := make(map[string]bool, len(c.Attributes))
	for _, a := range c.Attributes {
		if declared[a.Name] {
			issues.Conflictf("attributes", "attribute %q declared more than once", a.Name)
		}
		declared[a.Name] = true
	}

	used := make(map[string]bool)
	ref := func(path, name string) {
		if name == "" {
			return
		}
		used[name] = true
		if !declared[name] {
			issues.Referencef(path, "key attribute %q is not declared in attributes", name)
		}
	}

	ref("hash_key", c.HashKey)
	ref("range_key", c.RangeKey)
	for i, gsi := range c.GlobalSecondaryIndexes {
		ref(gsiPath(i)+".hash_key", gsi.HashKey)
		ref(gsiPath(i)+".range_key", gsi.RangeKey)
		if gsi.ProjectionType != "INCLUDE" && len(gsi.NonKeyAttributes) > 0 {
			issues.Forbiddenf(gsiPath(i)+".non_key_attributes", "non-key attributes require projection_type INCLUDE")
		}
		if gsi.ProjectionType == "INCLUDE" && len(gsi.NonKeyAttributes) == 0 {
			issues.Requiredf(gsiPath(i)+".non_key_attributes", "INCLUDE projections must list at least one non-key attribute")
		}
	}
	for i, lsi := range c.LocalSecondaryIndexes {
		ref(lsiPath(i)+".range_key", lsi.RangeKey)
		if c.RangeKey == "" {
			issues.Requiredf(lsiPath(i), "local secondary indexes require the table to define a range key")
		}
		if lsi.ProjectionType != "INCLUDE" && len(lsi.NonKeyAttributes) > 0 {
			issues.Forbiddenf(lsiPath(i)+".non_key_attributes", "non-key attributes require projection_type INCLUDE")
		}
		if lsi.ProjectionType == "INCLUDE" && len(lsi.NonKeyAttributes) == 0 {
			issues.Requiredf(lsiPath(i)+".non_key_attributes", "INCLUDE projections must list at least one non-key attribute")
		}
	}

	for _, a := range c.Attributes {
		if !used[a.Name] {
			issues.Invalidf("attributes", "attribute %q is declared but used by no key schema", a.Name)
		}
	}
}

// validateStream enforces that a view type is present exactly when the
// stream is enabled.
func (c *Config) validateStream(issues *contract.Issues) {
	if c.StreamEnabled && c.StreamViewType == "" {
		issues.Requiredf("stream_view_type", "stream view type is required when stream_enabled is true")
	}
	if !c.StreamEnabled && c.StreamViewType != "" {
		issues.Forbiddenf("stream_view_type", "stream view type must be unset when stream_enabled is false")
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	out := map[string]string{
		"table_name": c.Name,
		"table_arn":  arn.DynamoDBTable(env, c.Name),
	}
	if c.StreamEnabled {
		out["stream_arn"] = contract.Ref("aws_dynamodb_table", c.Name, "stream_arn")
	}
	for _, gsi := range c.GlobalSecondaryIndexes {
		out["index_arn:"+gsi.Name] = arn.DynamoDBIndex(env, c.Name, gsi.Name)
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":         c.Name,
		"billing_mode": string(c.BillingMode),
		"hash_key":     c.HashKey,
		"attributes":   c.Attributes,
	}
	if c.RangeKey != "" {
		attrs["range_key"] = c.RangeKey
	}
	if c.BillingMode == BillingProvisioned {
		attrs["read_capacity"] = contract.Coalesce(c.ReadCapacity, 0)
		attrs["write_capacity"] = contract.Coalesce(c.WriteCapacity, 0)
	}
	if len(c.GlobalSecondaryIndexes) > 0 {
		attrs["global_secondary_indexes"] = c.GlobalSecondaryIndexes
	}
	if len(c.LocalSecondaryIndexes) > 0 {
		attrs["local_secondary_indexes"] = c.LocalSecondaryIndexes
	}
	if c.StreamEnabled {
		attrs["stream_enabled"] = true
		attrs["stream_view_type"] = c.StreamViewType
	}
	if c.ServerSideEncryption != nil && c.ServerSideEncryption.Enabled {
		attrs["server_side_encryption"] = c.ServerSideEncryption
	}
	if c.PointInTimeRecovery {
		attrs["point_in_time_recovery"] = true
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	resources := []contract.Resource{{
		Type:       "aws_dynamodb_table",
		Name:       c.Name,
		Attributes: attrs,
	}}

	settings := alarm.DefaultSettings()
	if c.Alarms != nil {
		settings = settings.Merge(*c.Alarms)
	}
	resources = append(resources, contract.Resource{
		Type: "aws_cloudwatch_metric_alarm",
		Name: c.Name + "-throttles",
		Attributes: map[string]interface{}{
			"namespace":   "AWS/DynamoDB",
			"metric_name": "ThrottledRequests",
			"dimensions":  alarm.ForDynamoDBTable(c.Name),
			"settings":    settings,
		},
	})

	return resources
}

func gsiPath(i int) string {
	return "global_secondary_indexes[" + strconv.Itoa(i) + "]"
}

func lsiPath(i int) string {
	return "local_secondary_indexes[" + strconv.Itoa(i) + "]"
}
