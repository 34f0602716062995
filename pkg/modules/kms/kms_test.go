package kms

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

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		path   string
		code   contract.Code
	}{
		{
			name:   "sign verify needs asymmetric spec",
			config: Config{KeyUsage: "SIGN_VERIFY"},
			path:   "key_usage",
			code:   contract.CodeConflict,
		},
		{
			name:   "rotation on asymmetric key",
			config: Config{KeySpec: "RSA_2048", KeyUsage: "ENCRYPT_DECRYPT", EnableKeyRotation: true},
			path:   "enable_key_rotation",
			code:   contract.CodeForbidden,
		},
		{
			name:   "rotation on signing key",
			config: Config{KeySpec: "ECC_NIST_P256", KeyUsage: "SIGN_VERIFY", EnableKeyRotation: true},
			path:   "enable_key_rotation",
			code:   contract.CodeForbidden,
		},
		{
			name:   "alias without prefix",
			config: Config{Aliases: []string{"payments"}},
			path:   "aliases[0]",
			code:   contract.CodePattern,
		},
		{
			name:   "reserved alias prefix",
			config: Config{Aliases: []string{"alias/aws/payments"}},
			path:   "aliases[0]",
			code:   contract.CodeInvalid,
		},
		{
			name:   "policy not json",
			config: Config{Policy: "{not json"},
			path:   "policy",
			code:   contract.CodeInvalid,
		},
		{
			name:   "policy without statements",
			config: Config{Policy: `{"Version":"2012-10-17","Statement":[]}`},
			path:   "policy.Statement",
			code:   contract.CodeRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasIssue(t, tt.config.Validate(), tt.path, tt.code)
		})
	}
}

func TestValidateOK(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{name: "defaults", config: Config{}},
		{name: "symmetric with rotation", config: Config{EnableKeyRotation: true}},
		{name: "signing key", config: Config{KeySpec: "RSA_2048", KeyUsage: "SIGN_VERIFY"}},
		{name: "alias", config: Config{Aliases: []string{"alias/payments"}}},
		{
			name:   "full policy",
			config: Config{Policy: `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["kms:*"],"Resource":["*"],"Principal":{"AWS":"arn:aws:iam::123456789012:root"}}]}`},
		},
		{
			// The AWS default key policy writes Action and Resource as
			// plain strings.
			name:   "default key policy string forms",
			config: Config{Policy: `{"Version":"2012-10-17","Statement":[{"Sid":"Enable IAM User Permissions","Effect":"Allow","Principal":{"AWS":"arn:aws:iam::123456789012:root"},"Action":"kms:*","Resource":"*"}]}`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); err != nil {
				t.Errorf("Unexpected issues: %v", err)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	c := &Config{}
	resources := c.Resources(testEnv)
	if resources[0].Attributes["key_spec"] != symmetricSpec {
		t.Errorf("key_spec = %v, want %s", resources[0].Attributes["key_spec"], symmetricSpec)
	}
	if resources[0].Attributes["key_usage"] != "ENCRYPT_DECRYPT" {
		t.Errorf("key_usage = %v", resources[0].Attributes["key_usage"])
	}
}

func TestOutputs(t *testing.T) {
	c := &Config{Aliases: []string{"alias/payments"}}
	out := c.Outputs(testEnv)
	if out["key_arn"] != "${aws_kms_key.this.arn}" {
		t.Errorf("key_arn = %q", out["key_arn"])
	}
	if out["alias_arn_payments"] != "${aws_kms_alias.alias/payments.arn}" {
		t.Errorf("alias_arn_payments = %q", out["alias_arn_payments"])
	}
}

func TestResourcesAliases(t *testing.T) {
	c := &Config{Aliases: []string{"alias/payments", "alias/billing"}}
	resources := c.Resources(testEnv)
	if len(resources) != 3 {
		t.Fatalf("Expected key and two aliases, got %d resources", len(resources))
	}
	if resources[1].Type != "aws_kms_alias" || resources[1].Attributes["name"] != "alias/payments" {
		t.Errorf("Unexpected alias resource: %+v", resources[1])
	}
}
