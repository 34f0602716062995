// Package kms declares the KMS key module with the spec/usage consistency
// rules: rotation only applies to symmetric encryption keys, and signing
// keys need an asymmetric spec.
package kms

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stackform/stackform/pkg/contract"
	"github.com/stackform/stackform/pkg/iam"
)

// Kind is the module kind identifier.
const Kind = "aws.kms.key"

// symmetricSpec is the only key spec that supports automatic rotation.
const symmetricSpec = "SYMMETRIC_DEFAULT"

// Config is the key module input schema.
type Config struct {
	// Description is shown in the console key listing.
	Description string `json:"description,omitempty" validate:"max=8192"`

	// KeySpec selects the key material type.
	KeySpec string `json:"key_spec,omitempty" validate:"omitempty,oneof=SYMMETRIC_DEFAULT RSA_2048 RSA_3072 RSA_4096 ECC_NIST_P256 ECC_NIST_P384 ECC_NIST_P521"`

	// KeyUsage selects what the key is for.
	KeyUsage string `json:"key_usage,omitempty" validate:"omitempty,oneof=ENCRYPT_DECRYPT SIGN_VERIFY"`

	// EnableKeyRotation turns on yearly automatic rotation.
	EnableKeyRotation bool `json:"enable_key_rotation"`

	// DeletionWindowDays delays key deletion.
	DeletionWindowDays int `json:"deletion_window_days,omitempty" validate:"omitempty,gte=7,lte=30"`

	// Policy is the key policy document as JSON. Empty keeps the
	// account default policy.
	Policy string `json:"policy,omitempty"`

	// Aliases are created pointing at the key. Each must start with
	// "alias/" and must not use the reserved "alias/aws/" prefix.
	Aliases []string `json:"aliases,omitempty"`

	// Tags are propagated to the key.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// effectiveSpec returns the key spec with the service default applied.
func (c *Config) effectiveSpec() string {
	if c.KeySpec == "" {
		return symmetricSpec
	}
	return c.KeySpec
}

// effectiveUsage returns the key usage with the service default applied.
func (c *Config) effectiveUsage() string {
	if c.KeyUsage == "" {
		return "ENCRYPT_DECRYPT"
	}
	return c.KeyUsage
}

// Validate evaluates the key preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	spec := c.effectiveSpec()
	usage := c.effectiveUsage()

	if usage == "SIGN_VERIFY" && spec == symmetricSpec {
		issues.Conflictf("key_usage", "SIGN_VERIFY requires an asymmetric key spec")
	}
	if c.EnableKeyRotation && (spec != symmetricSpec || usage != "ENCRYPT_DECRYPT") {
		issues.Forbiddenf("enable_key_rotation", "automatic rotation only applies to symmetric encryption keys")
	}

	for i, alias := range c.Aliases {
		p := "aliases[" + strconv.Itoa(i) + "]"
		if !strings.HasPrefix(alias, "alias/") {
			issues.Patternf(p, "alias %q must start with alias/", alias)
		} else if strings.HasPrefix(alias, "alias/aws/") {
			issues.Invalidf(p, "the alias/aws/ prefix is reserved for AWS managed keys")
		}
	}

	if c.Policy != "" && !contract.IsReference(c.Policy) {
		var doc iam.PolicyDocument
		if err := json.Unmarshal([]byte(c.Policy), &doc); err != nil {
			issues.Invalidf("policy", "key policy is not valid JSON: %v", err)
		} else if err := doc.Validate(); err != nil {
			if nested, ok := contract.AsIssues(err); ok {
				for _, issue := range nested {
					issue.Path = "policy." + issue.Path
					issues.Add(issue)
				}
			} else {
				issues.Invalidf("policy", "key policy is invalid: %v", err)
			}
		}
	}

	return issues.Err()
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	out := map[string]string{
		"key_id":  contract.Ref("aws_kms_key", "this", "key_id"),
		"key_arn": contract.Ref("aws_kms_key", "this", "arn"),
	}
	for _, alias := range c.Aliases {
		out["alias_arn_"+strings.TrimPrefix(alias, "alias/")] = contract.Ref("aws_kms_alias", alias, "arn")
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"key_spec":  c.effectiveSpec(),
		"key_usage": c.effectiveUsage(),
	}
	if c.Description != "" {
		attrs["description"] = c.Description
	}
	if c.EnableKeyRotation {
		attrs["enable_key_rotation"] = true
	}
	if c.DeletionWindowDays > 0 {
		attrs["deletion_window_in_days"] = c.DeletionWindowDays
	}
	if c.Policy != "" {
		attrs["policy"] = c.Policy
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	resources := []contract.Resource{
		{Type: "aws_kms_key", Name: "this", Attributes: attrs},
	}
	for _, alias := range c.Aliases {
		resources = append(resources, contract.Resource{
			Type: "aws_kms_alias",
			Name: alias,
			Attributes: map[string]interface{}{
				"name":          alias,
				"target_key_id": contract.Ref("aws_kms_key", "this", "key_id"),
			},
		})
	}
	return resources
}
