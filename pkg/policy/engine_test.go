package policy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/stackform/stackform/pkg/contract"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	engine, err := NewEngine(logger)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func taggedBucketBlock(open bool) contract.Resource {
	return contract.Resource{
		Type: "aws_s3_bucket_public_access_block",
		Name: "store",
		Attributes: map[string]interface{}{
			"bucket":                  "store",
			"block_public_acls":       !open,
			"block_public_policy":     true,
			"ignore_public_acls":      true,
			"restrict_public_buckets": true,
		},
	}
}

func TestNewEngine(t *testing.T) {
	engine := newTestEngine(t)

	expected := []string{
		"s3-public-access",
		"dynamodb-encryption",
		"iam-wildcard-actions",
		"required-tags",
		"cloudfront-https",
	}
	for _, name := range expected {
		if _, err := engine.GetPolicy(name); err != nil {
			t.Errorf("Built-in policy %s not loaded: %v", name, err)
		}
	}
	if engine.Mode() != ModeEnforcing {
		t.Errorf("Default mode = %s, want enforcing", engine.Mode())
	}
}

func TestEvaluateS3PublicAccess(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.EvaluateResources(ctx, []contract.Resource{taggedBucketBlock(true)}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if result.Allowed {
		t.Error("Open public access block should be denied in enforcing mode")
	}

	found := false
	for _, v := range result.Violations {
		if v.Policy == "s3-public-access" {
			found = true
			if v.Resource != "aws_s3_bucket_public_access_block.store" {
				t.Errorf("Violation resource = %q", v.Resource)
			}
		}
	}
	if !found {
		t.Errorf("Missing s3-public-access violation, got %v", result.Violations)
	}

	result, err = engine.EvaluateResources(ctx, []contract.Resource{taggedBucketBlock(false)}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Fully blocked bucket should pass, got %v", result.Violations)
	}
}

func TestEvaluateDynamoDBEncryption(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	table := contract.Resource{
		Type: "aws_dynamodb_table",
		Name: "orders",
		Attributes: map[string]interface{}{
			"name":         "orders",
			"billing_mode": "PAY_PER_REQUEST",
			"tags":         map[string]string{"team": "orders"},
		},
	}

	// Unencrypted tables only violate in production.
	result, err := engine.EvaluateResources(ctx, []contract.Resource{table}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	for _, v := range result.Violations {
		if v.Policy == "dynamodb-encryption" {
			t.Error("Encryption policy should not fire outside production")
		}
	}

	result, err = engine.EvaluateResources(ctx, []contract.Resource{table}, "production")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	found := false
	for _, v := range result.Violations {
		if v.Policy == "dynamodb-encryption" {
			found = true
		}
	}
	if !found {
		t.Errorf("Missing dynamodb-encryption violation in production, got %v", result.Violations)
	}

	table.Attributes["server_side_encryption"] = map[string]interface{}{"enabled": true}
	result, err = engine.EvaluateResources(ctx, []contract.Resource{table}, "production")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Encrypted table should pass, got %v", result.Violations)
	}
}

func TestEvaluateIAMWildcard(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	rolePolicy := contract.Resource{
		Type: "aws_iam_role_policy",
		Name: "builder",
		Attributes: map[string]interface{}{
			"role":   "builder",
			"policy": `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["s3:*"],"Resource":["*"]}]}`,
		},
	}

	result, err := engine.EvaluateResources(ctx, []contract.Resource{rolePolicy}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	found := false
	for _, v := range result.Violations {
		if v.Policy == "iam-wildcard-actions" {
			found = true
		}
	}
	if !found {
		t.Errorf("Missing iam-wildcard-actions violation, got %v", result.Violations)
	}

	rolePolicy.Attributes["policy"] = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Action":["s3:GetObject"],"Resource":["*"]}]}`
	result, err = engine.EvaluateResources(ctx, []contract.Resource{rolePolicy}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Scoped actions should pass, got %v", result.Violations)
	}
}

func TestEvaluateRequiredTagsIsWarning(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	topic := contract.Resource{
		Type:       "aws_sns_topic",
		Name:       "alerts",
		Attributes: map[string]interface{}{"name": "alerts"},
	}

	result, err := engine.EvaluateResources(ctx, []contract.Resource{topic}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("Warnings must not block, got violations %v", result.Violations)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Policy == "required-tags" {
			found = true
		}
	}
	if !found {
		t.Errorf("Missing required-tags warning, got %v", result.Warnings)
	}
}

func TestEvaluateCloudFrontHTTPS(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	dist := contract.Resource{
		Type: "aws_cloudfront_distribution",
		Name: "cdn",
		Attributes: map[string]interface{}{
			"default_cache_behavior": map[string]interface{}{"viewer_protocol_policy": "allow-all"},
			"tags":                   map[string]string{"team": "web"},
		},
	}

	result, err := engine.EvaluateResources(ctx, []contract.Resource{dist}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	found := false
	for _, v := range result.Violations {
		if v.Policy == "cloudfront-https" {
			found = true
		}
	}
	if !found {
		t.Errorf("Missing cloudfront-https violation, got %v", result.Violations)
	}
}

func TestAdvisoryMode(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	engine.SetMode(ModeAdvisory)
	result, err := engine.EvaluateResources(ctx, []contract.Resource{taggedBucketBlock(true)}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if !result.Allowed {
		t.Error("Advisory mode should not block on error violations")
	}
	if len(result.Violations) == 0 {
		t.Error("Advisory mode should still report violations")
	}
}

func TestAdvisoryModeBlocksCritical(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	engine.SetMode(ModeAdvisory)

	critical := Policy{
		Name:     "no-force-destroy",
		Severity: SeverityCritical,
		Enabled:  true,
		Rego: `package stackform.policies.no_force_destroy

import rego.v1

deny contains msg if {
	input.resource.attributes.force_destroy == true
	msg := "force_destroy is never allowed"
}`,
	}
	if err := engine.ReplacePolicies([]Policy{critical}); err != nil {
		t.Fatalf("ReplacePolicies failed: %v", err)
	}

	bucket := contract.Resource{
		Type: "aws_s3_bucket",
		Name: "store",
		Attributes: map[string]interface{}{
			"bucket":        "store",
			"force_destroy": true,
			"versioning":    false,
			"tags":          map[string]string{"team": "data"},
		},
	}

	result, err := engine.EvaluateResources(ctx, []contract.Resource{bucket}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if result.Allowed {
		t.Error("Critical violations must block even in advisory mode")
	}
}

func TestEnableDisablePolicy(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	if err := engine.DisablePolicy("s3-public-access"); err != nil {
		t.Fatalf("DisablePolicy failed: %v", err)
	}
	result, err := engine.EvaluateResources(ctx, []contract.Resource{taggedBucketBlock(true)}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	for _, v := range result.Violations {
		if v.Policy == "s3-public-access" {
			t.Error("Disabled policy still evaluated")
		}
	}

	if err := engine.EnablePolicy("s3-public-access"); err != nil {
		t.Fatalf("EnablePolicy failed: %v", err)
	}
	result, err = engine.EvaluateResources(ctx, []contract.Resource{taggedBucketBlock(true)}, "staging")
	if err != nil {
		t.Fatalf("EvaluateResources failed: %v", err)
	}
	if result.Allowed {
		t.Error("Re-enabled policy should fire again")
	}

	if err := engine.DisablePolicy("no-such-policy"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestListPolicies(t *testing.T) {
	engine := newTestEngine(t)
	if got := len(engine.ListPolicies()); got != 5 {
		t.Errorf("Expected 5 built-in policies, got %d", got)
	}
}
