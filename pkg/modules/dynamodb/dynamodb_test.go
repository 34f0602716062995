package dynamodb

import (
	"strings"
	"testing"

	"github.com/stackform/stackform/pkg/contract"
)

var testEnv = contract.Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"}

func intp(v int) *int { return &v }

func validConfig() *Config {
	return &Config{
		Name:        "orders",
		BillingMode: BillingPayPerRequest,
		HashKey:     "pk",
		RangeKey:    "sk",
		Attributes: []Attribute{
			{Name: "pk", Type: "S"},
			{Name: "sk", Type: "S"},
		},
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

func TestValidateCapacity(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		code   contract.Code
	}{
		{
			name: "provisioned requires read capacity",
			mutate: func(c *Config) {
				c.BillingMode = BillingProvisioned
				c.WriteCapacity = intp(5)
			},
			path: "read_capacity",
			code: contract.CodeRequired,
		},
		{
			name: "provisioned requires write capacity",
			mutate: func(c *Config) {
				c.BillingMode = BillingProvisioned
				c.ReadCapacity = intp(5)
			},
			path: "write_capacity",
			code: contract.CodeRequired,
		},
		{
			name: "pay per request forbids capacity",
			mutate: func(c *Config) {
				c.ReadCapacity = intp(5)
			},
			path: "read_capacity",
			code: contract.CodeForbidden,
		},
		{
			name: "provisioned requires gsi capacity",
			mutate: func(c *Config) {
				c.BillingMode = BillingProvisioned
				c.ReadCapacity = intp(5)
				c.WriteCapacity = intp(5)
				c.Attributes = append(c.Attributes, Attribute{Name: "gsi_pk", Type: "S"})
				c.GlobalSecondaryIndexes = []GlobalSecondaryIndex{
					{Name: "by-customer", HashKey: "gsi_pk", ProjectionType: "ALL"},
				}
			},
			path: "global_secondary_indexes[0].read_capacity",
			code: contract.CodeRequired,
		},
		{
			name: "pay per request forbids gsi capacity",
			mutate: func(c *Config) {
				c.Attributes = append(c.Attributes, Attribute{Name: "gsi_pk", Type: "S"})
				c.GlobalSecondaryIndexes = []GlobalSecondaryIndex{
					{Name: "by-customer", HashKey: "gsi_pk", ProjectionType: "ALL", ReadCapacity: intp(5), WriteCapacity: intp(5)},
				}
			},
			path: "global_secondary_indexes[0].read_capacity",
			code: contract.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			hasIssue(t, c.Validate(), tt.path, tt.code)
		})
	}
}

func TestValidateKeySchema(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		code   contract.Code
	}{
		{
			name: "hash key not declared",
			mutate: func(c *Config) {
				c.HashKey = "missing"
			},
			path: "hash_key",
			code: contract.CodeReference,
		},
		{
			name: "unused attribute",
			mutate: func(c *Config) {
				c.Attributes = append(c.Attributes, Attribute{Name: "orphan", Type: "N"})
			},
			path: "attributes",
			code: contract.CodeInvalid,
		},
		{
			name: "duplicate attribute",
			mutate: func(c *Config) {
				c.Attributes = append(c.Attributes, Attribute{Name: "pk", Type: "S"})
			},
			path: "attributes",
			code: contract.CodeConflict,
		},
		{
			name: "lsi requires table range key",
			mutate: func(c *Config) {
				c.RangeKey = ""
				c.Attributes = []Attribute{{Name: "pk", Type: "S"}, {Name: "score", Type: "N"}}
				c.LocalSecondaryIndexes = []LocalSecondaryIndex{
					{Name: "by-score", RangeKey: "score", ProjectionType: "ALL"},
				}
			},
			path: "local_secondary_indexes[0]",
			code: contract.CodeRequired,
		},
		{
			name: "non key attributes without include projection",
			mutate: func(c *Config) {
				c.Attributes = append(c.Attributes, Attribute{Name: "gsi_pk", Type: "S"})
				c.GlobalSecondaryIndexes = []GlobalSecondaryIndex{
					{Name: "by-customer", HashKey: "gsi_pk", ProjectionType: "ALL", NonKeyAttributes: []string{"total"}},
				}
			},
			path: "global_secondary_indexes[0].non_key_attributes",
			code: contract.CodeForbidden,
		},
		{
			name: "gsi include projection without non key attributes",
			mutate: func(c *Config) {
				c.Attributes = append(c.Attributes, Attribute{Name: "gsi_pk", Type: "S"})
				c.GlobalSecondaryIndexes = []GlobalSecondaryIndex{
					{Name: "by-customer", HashKey: "gsi_pk", ProjectionType: "INCLUDE"},
				}
			},
			path: "global_secondary_indexes[0].non_key_attributes",
			code: contract.CodeRequired,
		},
		{
			name: "lsi include projection without non key attributes",
			mutate: func(c *Config) {
				c.Attributes = append(c.Attributes, Attribute{Name: "score", Type: "N"})
				c.LocalSecondaryIndexes = []LocalSecondaryIndex{
					{Name: "by-score", RangeKey: "score", ProjectionType: "INCLUDE"},
				}
			},
			path: "local_secondary_indexes[0].non_key_attributes",
			code: contract.CodeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			hasIssue(t, c.Validate(), tt.path, tt.code)
		})
	}
}

func TestValidateStream(t *testing.T) {
	c := validConfig()
	c.StreamEnabled = true
	hasIssue(t, c.Validate(), "stream_view_type", contract.CodeRequired)

	c = validConfig()
	c.StreamViewType = "NEW_IMAGE"
	hasIssue(t, c.Validate(), "stream_view_type", contract.CodeForbidden)
}

func TestValidateTTLAndSSE(t *testing.T) {
	c := validConfig()
	c.TTL = &TTL{Enabled: true}
	hasIssue(t, c.Validate(), "ttl.attribute_name", contract.CodeRequired)

	c = validConfig()
	c.ServerSideEncryption = &ServerSideEncryption{Enabled: false, KMSKeyARN: "arn:aws:kms:eu-west-1:123456789012:key/abc"}
	hasIssue(t, c.Validate(), "server_side_encryption.kms_key_arn", contract.CodeForbidden)

	c = validConfig()
	c.ServerSideEncryption = &ServerSideEncryption{Enabled: true, KMSKeyARN: "not-an-arn"}
	hasIssue(t, c.Validate(), "server_side_encryption.kms_key_arn", contract.CodeInvalid)

	// Unresolved references skip the ARN shape check.
	c = validConfig()
	c.ServerSideEncryption = &ServerSideEncryption{Enabled: true, KMSKeyARN: "${module.keys.key_arn}"}
	if err := c.Validate(); err != nil {
		t.Errorf("Reference placeholder should pass, got %v", err)
	}
}

func TestOutputs(t *testing.T) {
	c := validConfig()
	c.StreamEnabled = true
	c.StreamViewType = "NEW_AND_OLD_IMAGES"
	c.Attributes = append(c.Attributes, Attribute{Name: "customer", Type: "S"})
	c.GlobalSecondaryIndexes = []GlobalSecondaryIndex{
		{Name: "by-customer", HashKey: "customer", ProjectionType: "ALL"},
	}

	out := c.Outputs(testEnv)
	if out["table_arn"] != "arn:aws:dynamodb:eu-west-1:123456789012:table/orders" {
		t.Errorf("table_arn = %q", out["table_arn"])
	}
	if out["stream_arn"] != "${aws_dynamodb_table.orders.stream_arn}" {
		t.Errorf("stream_arn must be provider-assigned, got %q", out["stream_arn"])
	}
	if out["index_arn:by-customer"] != "arn:aws:dynamodb:eu-west-1:123456789012:table/orders/index/by-customer" {
		t.Errorf("index_arn = %q", out["index_arn:by-customer"])
	}
}

func TestResources(t *testing.T) {
	c := validConfig()
	resources := c.Resources(testEnv)

	if len(resources) < 2 {
		t.Fatalf("Expected table and alarm resources, got %d", len(resources))
	}
	if resources[0].Type != "aws_dynamodb_table" || resources[0].Name != "orders" {
		t.Errorf("Unexpected first resource: %s", resources[0].Address())
	}
	if _, ok := resources[0].Attributes["read_capacity"]; ok {
		t.Error("PAY_PER_REQUEST table must not render capacity attributes")
	}

	found := false
	for _, r := range resources {
		if r.Type == "aws_cloudwatch_metric_alarm" && strings.HasSuffix(r.Name, "-throttles") {
			found = true
		}
	}
	if !found {
		t.Error("Missing throttling alarm resource")
	}
}
