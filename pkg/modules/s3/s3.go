// Package s3 declares the S3 bucket module: naming, versioning,
// encryption, public access, website hosting, lifecycle, and logging.
package s3

import (
	"regexp"
	"strconv"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.s3.bucket"

// bucketNamePattern covers the DNS-compatible bucket naming rules.
var bucketNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

var ipLikePattern = regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`)

// Encryption configures default bucket encryption.
type Encryption struct {
	// Algorithm is AES256 or aws:kms.
	Algorithm string `json:"algorithm" validate:"required,oneof=AES256 aws:kms"`

	// KMSKeyARN selects the key for aws:kms; forbidden for AES256.
	KMSKeyARN string `json:"kms_key_arn,omitempty"`

	// BucketKeyEnabled reduces KMS request costs. Only valid with aws:kms.
	BucketKeyEnabled bool `json:"bucket_key_enabled,omitempty"`
}

// PublicAccessBlock mirrors the four account-level toggles.
type PublicAccessBlock struct {
	BlockPublicACLs       bool `json:"block_public_acls"`
	BlockPublicPolicy     bool `json:"block_public_policy"`
	IgnorePublicACLs      bool `json:"ignore_public_acls"`
	RestrictPublicBuckets bool `json:"restrict_public_buckets"`
}

// FullyBlocked reports whether all four toggles are on.
func (p PublicAccessBlock) FullyBlocked() bool {
	return p.BlockPublicACLs && p.BlockPublicPolicy && p.IgnorePublicACLs && p.RestrictPublicBuckets
}

// Website configures static website hosting.
type Website struct {
	// IndexDocument is the index object key.
	IndexDocument string `json:"index_document" validate:"required"`

	// ErrorDocument is the optional error object key.
	ErrorDocument string `json:"error_document,omitempty"`
}

// Transition moves objects to another storage class after a delay.
type Transition struct {
	// Days is the delay before transition.
	Days int `json:"days" validate:"gte=1"`

	// StorageClass is the destination class.
	StorageClass string `json:"storage_class" validate:"required,oneof=STANDARD_IA ONEZONE_IA INTELLIGENT_TIERING GLACIER GLACIER_IR DEEP_ARCHIVE"`
}

// LifecycleRule expires and transitions objects by prefix.
type LifecycleRule struct {
	// ID names the rule.
	ID string `json:"id" validate:"required"`

	// Enabled toggles the rule.
	Enabled bool `json:"enabled"`

	// Prefix scopes the rule; empty means the whole bucket.
	Prefix string `json:"prefix,omitempty"`

	// ExpirationDays deletes objects after the given delay.
	ExpirationDays *int `json:"expiration_days,omitempty"`

	// Transitions move objects across storage classes.
	Transitions []Transition `json:"transitions,omitempty" validate:"dive"`
}

// Logging writes server access logs to another bucket.
type Logging struct {
	// TargetBucket receives the access logs.
	TargetBucket string `json:"target_bucket" validate:"required"`

	// TargetPrefix prefixes the log object keys.
	TargetPrefix string `json:"target_prefix,omitempty"`
}

// Config is the bucket module input schema.
type Config struct {
	// Bucket is the bucket name.
	Bucket string `json:"bucket" validate:"required"`

	// ForceDestroy allows deleting a non-empty bucket.
	ForceDestroy bool `json:"force_destroy"`

	// Versioning enables object versioning.
	Versioning bool `json:"versioning"`

	// Encryption configures default encryption.
	Encryption *Encryption `json:"encryption,omitempty"`

	// PublicAccessBlock configures the public access toggles. When nil,
	// the module declares a fully blocked configuration.
	PublicAccessBlock *PublicAccessBlock `json:"public_access_block,omitempty"`

	// Website enables static website hosting.
	Website *Website `json:"website,omitempty"`

	// LifecycleRules lists lifecycle rules.
	LifecycleRules []LifecycleRule `json:"lifecycle_rules,omitempty" validate:"dive"`

	// Logging writes access logs to another bucket.
	Logging *Logging `json:"logging,omitempty"`

	// Tags are propagated to the bucket.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// effectiveBlock returns the public access block, defaulting to fully
// blocked.
func (c *Config) effectiveBlock() PublicAccessBlock {
	if c.PublicAccessBlock != nil {
		return *c.PublicAccessBlock
	}
	return PublicAccessBlock{
		BlockPublicACLs:       true,
		BlockPublicPolicy:     true,
		IgnorePublicACLs:      true,
		RestrictPublicBuckets: true,
	}
}

// Validate evaluates the bucket preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if c.Bucket != "" {
		if !bucketNamePattern.MatchString(c.Bucket) {
			issues.Patternf("bucket", "bucket names must be 3-63 lowercase alphanumerics, dots, or hyphens")
		}
		if ipLikePattern.MatchString(c.Bucket) {
			issues.Patternf("bucket", "bucket names must not look like IP addresses")
		}
	}

	if c.Encryption != nil {
		switch c.Encryption.Algorithm {
		case "aws:kms":
			if c.Encryption.KMSKeyARN != "" && !contract.IsReference(c.Encryption.KMSKeyARN) && !arn.IsService(c.Encryption.KMSKeyARN, "kms") {
				issues.Invalidf("encryption.kms_key_arn", "must be a KMS key ARN")
			}
		case "AES256":
			if c.Encryption.KMSKeyARN != "" {
				issues.Forbiddenf("encryption.kms_key_arn", "KMS key must be unset for AES256")
			}
			if c.Encryption.BucketKeyEnabled {
				issues.Forbiddenf("encryption.bucket_key_enabled", "bucket keys require aws:kms")
			}
		}
	}

	if c.Website != nil && c.effectiveBlock().FullyBlocked() {
		issues.Warnf("website", "website hosting on a fully blocked bucket is only reachable through a private origin")
	}

	c.validateLifecycle(&issues)

	if c.Logging != nil && c.Logging.TargetBucket == c.Bucket {
		issues.Conflictf("logging.target_bucket", "access logs must target a different bucket")
	}

	return issues.Err()
}

// validateLifecycle checks per-rule day counts and transition ordering.
func (c *Config) validateLifecycle(issues *contract.Issues) {
	seen := make(map[string]bool)
	for i, rule := range c.LifecycleRules {
		path := "lifecycle_rules[" + strconv.Itoa(i) + "]"
		if seen[rule.ID] {
			issues.Conflictf(path+".id", "lifecycle rule %q declared more than once", rule.ID)
		}
		seen[rule.ID] = true

		if rule.ExpirationDays == nil && len(rule.Transitions) == 0 {
			issues.Requiredf(path, "rule must set expiration_days or transitions")
		}
		if rule.ExpirationDays != nil && *rule.ExpirationDays < 1 {
			issues.Rangef(path+".expiration_days", "must be >= 1")
		}

		prev := 0
		for j, t := range rule.Transitions {
			if t.Days <= prev {
				issues.Rangef(path+".transitions["+strconv.Itoa(j)+"].days", "transition days must strictly increase")
			}
			prev = t.Days
			if rule.ExpirationDays != nil && t.Days >= *rule.ExpirationDays {
				issues.Conflictf(path+".transitions["+strconv.Itoa(j)+"].days", "transition must happen before expiration")
			}
		}
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	env = env.WithDefaults()
	out := map[string]string{
		"bucket":                 c.Bucket,
		"bucket_arn":             arn.S3Bucket(c.Bucket),
		"bucket_domain_name":     c.Bucket + ".s3.amazonaws.com",
		"bucket_regional_domain": c.Bucket + ".s3." + env.Region + ".amazonaws.com",
	}
	if c.Website != nil {
		out["website_endpoint"] = c.Bucket + ".s3-website." + env.Region + ".amazonaws.com"
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"bucket":        c.Bucket,
		"force_destroy": c.ForceDestroy,
		"versioning":    c.Versioning,
	}
	if c.Encryption != nil {
		attrs["server_side_encryption"] = c.Encryption
	}
	if c.Website != nil {
		attrs["website"] = c.Website
	}
	if len(c.LifecycleRules) > 0 {
		attrs["lifecycle_rules"] = c.LifecycleRules
	}
	if c.Logging != nil {
		attrs["logging"] = c.Logging
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	block := c.effectiveBlock()
	return []contract.Resource{
		{
			Type:       "aws_s3_bucket",
			Name:       c.Bucket,
			Attributes: attrs,
		},
		{
			Type: "aws_s3_bucket_public_access_block",
			Name: c.Bucket,
			Attributes: map[string]interface{}{
				"bucket":                  c.Bucket,
				"block_public_acls":       block.BlockPublicACLs,
				"block_public_policy":     block.BlockPublicPolicy,
				"ignore_public_acls":      block.IgnorePublicACLs,
				"restrict_public_buckets": block.RestrictPublicBuckets,
			},
		},
	}
}
