// Package ssm declares the SSM parameter module with the naming, tier, and
// data-type rules parameters are subject to.
package ssm

import (
	"regexp"
	"strings"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.ssm.parameter"

// Tier value size limits in bytes.
const (
	standardValueLimit = 4096
	advancedValueLimit = 8192
)

var (
	namePattern = regexp.MustCompile(`^(/[a-zA-Z0-9_.-]+)+$|^[a-zA-Z0-9_.-]+$`)
	amiPattern  = regexp.MustCompile(`^ami-[0-9a-f]{8,17}$`)
)

// Config is the parameter module input schema.
type Config struct {
	// Name is the parameter name, flat or fully-pathed.
	Name string `json:"name" validate:"required,min=1,max=2048"`

	// Description is optional free text.
	Description string `json:"description,omitempty" validate:"max=1024"`

	// Type is the parameter type.
	Type string `json:"type" validate:"required,oneof=String StringList SecureString"`

	// Value is the parameter value. StringList values are
	// comma-separated.
	Value string `json:"value" validate:"required"`

	// Tier selects the parameter tier.
	Tier string `json:"tier,omitempty" validate:"omitempty,oneof=Standard Advanced Intelligent-Tiering"`

	// KMSKeyID encrypts SecureString parameters with a customer key.
	KMSKeyID string `json:"kms_key_id,omitempty"`

	// DataType validates the value shape, e.g. aws:ec2:image for AMIs.
	DataType string `json:"data_type,omitempty" validate:"omitempty,oneof=text aws:ec2:image"`

	// AllowedPattern rejects non-matching values at write time.
	AllowedPattern string `json:"allowed_pattern,omitempty" validate:"max=1024"`

	// Tags are propagated to the parameter.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the parameter preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if c.Name != "" && !namePattern.MatchString(c.Name) {
		issues.Patternf("name", "parameter name %q must be a path of /-separated segments or a flat name", c.Name)
	}
	// "aws" and "ssm" are reserved as leading path segments.
	lower := strings.ToLower(strings.TrimPrefix(c.Name, "/"))
	if lower == "aws" || lower == "ssm" || strings.HasPrefix(lower, "aws/") || strings.HasPrefix(lower, "ssm/") {
		issues.Invalidf("name", "parameter names cannot begin with a reserved aws or ssm segment")
	}

	if c.KMSKeyID != "" {
		if c.Type != "SecureString" {
			issues.Forbiddenf("kms_key_id", "a KMS key only applies to SecureString parameters")
		} else if arn.IsARN(c.KMSKeyID) && !contract.IsReference(c.KMSKeyID) && !arn.IsService(c.KMSKeyID, "kms") {
			issues.Invalidf("kms_key_id", "kms_key_id must be a KMS key ID, alias, or ARN")
		}
	}

	limit := standardValueLimit
	if c.Tier == "Advanced" || c.Tier == "Intelligent-Tiering" {
		limit = advancedValueLimit
	}
	if len(c.Value) > limit {
		issues.Rangef("value", "value is %d bytes, over the %d byte limit for the %s tier",
			len(c.Value), limit, c.effectiveTier())
	}

	if c.Type == "StringList" {
		// Interpolated values are checked after resolution.
		if !contract.IsReference(c.Value) {
			for _, item := range strings.Split(c.Value, ",") {
				if item == "" {
					issues.Invalidf("value", "StringList items must be non-empty")
					break
				}
			}
		}
		if c.DataType == "aws:ec2:image" {
			issues.Conflictf("data_type", "aws:ec2:image only applies to String parameters")
		}
	}

	if c.DataType == "aws:ec2:image" && c.Type == "String" {
		if !contract.IsReference(c.Value) && !amiPattern.MatchString(c.Value) {
			issues.Patternf("value", "aws:ec2:image values must be an AMI ID, got %q", c.Value)
		}
	}

	return issues.Err()
}

// effectiveTier returns the tier with the service default applied.
func (c *Config) effectiveTier() string {
	if c.Tier == "" {
		return "Standard"
	}
	return c.Tier
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"parameter_name": c.Name,
		"parameter_arn":  arn.SSMParameter(env, c.Name),
		"version":        contract.Ref("aws_ssm_parameter", c.Name, "version"),
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":  c.Name,
		"type":  c.Type,
		"value": c.Value,
	}
	if c.Description != "" {
		attrs["description"] = c.Description
	}
	if c.Tier != "" {
		attrs["tier"] = c.Tier
	}
	if c.KMSKeyID != "" {
		attrs["key_id"] = c.KMSKeyID
	}
	if c.DataType != "" {
		attrs["data_type"] = c.DataType
	}
	if c.AllowedPattern != "" {
		attrs["allowed_pattern"] = c.AllowedPattern
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}
	return []contract.Resource{
		{Type: "aws_ssm_parameter", Name: c.Name, Attributes: attrs},
	}
}
