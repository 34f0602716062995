// Package codebuild declares the CodeBuild project module. Besides input
// validation, the module derives the project role's IAM policy from the
// feature flags in use: statements are added only for the providers the
// configuration actually touches.
package codebuild

import (
	"strconv"
	"strings"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
	"github.com/stackform/stackform/pkg/iam"
)

// Kind is the module kind identifier.
const Kind = "aws.codebuild.project"

// SourceConfig selects where the build input comes from.
type SourceConfig struct {
	// Type is the source provider.
	Type string `json:"type" validate:"required,oneof=CODECOMMIT S3 GITHUB CODEPIPELINE NO_SOURCE"`

	// Location identifies the source: repository name for CODECOMMIT,
	// bucket/key for S3, clone URL for GITHUB. Forbidden for
	// CODEPIPELINE and NO_SOURCE.
	Location string `json:"location,omitempty"`

	// Buildspec overrides the in-repo buildspec.
	Buildspec string `json:"buildspec,omitempty"`
}

// EnvironmentVariable passes configuration into the build.
type EnvironmentVariable struct {
	// Name is the variable name.
	Name string `json:"name" validate:"required"`

	// Value is the literal value, parameter name, or secret ID.
	Value string `json:"value" validate:"required"`

	// Type selects where the value is resolved from.
	Type string `json:"type,omitempty" validate:"omitempty,oneof=PLAINTEXT PARAMETER_STORE SECRETS_MANAGER"`
}

// Environment configures the build container.
type Environment struct {
	// ComputeType sizes the build fleet.
	ComputeType string `json:"compute_type" validate:"required,oneof=BUILD_GENERAL1_SMALL BUILD_GENERAL1_MEDIUM BUILD_GENERAL1_LARGE BUILD_GENERAL1_2XLARGE"`

	// Image is the container image.
	Image string `json:"image" validate:"required"`

	// Type is the environment type.
	Type string `json:"type" validate:"required,oneof=LINUX_CONTAINER ARM_CONTAINER WINDOWS_SERVER_2022_CONTAINER LINUX_GPU_CONTAINER"`

	// PrivilegedMode enables Docker-in-Docker builds.
	PrivilegedMode bool `json:"privileged_mode"`

	// EnvironmentVariables are passed to every build.
	EnvironmentVariables []EnvironmentVariable `json:"environment_variables,omitempty" validate:"dive"`
}

// ArtifactsConfig selects where build output goes.
type ArtifactsConfig struct {
	// Type is the artifact destination.
	Type string `json:"type" validate:"required,oneof=S3 CODEPIPELINE NO_ARTIFACTS"`

	// Location is the destination bucket, required for S3.
	Location string `json:"location,omitempty"`

	// Path prefixes the artifact keys.
	Path string `json:"path,omitempty"`
}

// CacheConfig selects build caching.
type CacheConfig struct {
	// Type is the cache backend.
	Type string `json:"type" validate:"required,oneof=S3 LOCAL NO_CACHE"`

	// Location is the cache bucket (and optional prefix), required for S3.
	Location string `json:"location,omitempty"`

	// Modes are required for LOCAL caches.
	Modes []string `json:"modes,omitempty" validate:"dive,oneof=LOCAL_SOURCE_CACHE LOCAL_DOCKER_LAYER_CACHE LOCAL_CUSTOM_CACHE"`
}

// Config is the project module input schema.
type Config struct {
	// Name is the project name.
	Name string `json:"name" validate:"required,min=2,max=150,awsname"`

	// Description is optional free text.
	Description string `json:"description,omitempty" validate:"max=255"`

	// ServiceRoleName is the role the derived policy attaches to.
	ServiceRoleName string `json:"service_role_name" validate:"required,awsname"`

	// Source selects the build input.
	Source SourceConfig `json:"source"`

	// Environment configures the build container.
	Environment Environment `json:"environment"`

	// Artifacts selects the build output destination.
	Artifacts ArtifactsConfig `json:"artifacts"`

	// Cache selects build caching.
	Cache *CacheConfig `json:"cache,omitempty"`

	// LogGroupName overrides the CloudWatch Logs group.
	LogGroupName string `json:"log_group_name,omitempty"`

	// BuildTimeout bounds a build in minutes.
	BuildTimeout int `json:"build_timeout,omitempty" validate:"omitempty,gte=5,lte=480"`

	// Tags are propagated to the project.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the project preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	switch c.Source.Type {
	case "CODECOMMIT", "S3", "GITHUB":
		if c.Source.Location == "" {
			issues.Requiredf("source.location", "source type %s requires a location", c.Source.Type)
		}
	case "CODEPIPELINE", "NO_SOURCE":
		if c.Source.Location != "" {
			issues.Forbiddenf("source.location", "source type %s must not set a location", c.Source.Type)
		}
	}

	if c.Artifacts.Type == "S3" && c.Artifacts.Location == "" {
		issues.Requiredf("artifacts.location", "S3 artifacts require a bucket")
	}
	if c.Artifacts.Type != "S3" && c.Artifacts.Location != "" {
		issues.Forbiddenf("artifacts.location", "artifact location is only valid for S3 artifacts")
	}
	// CodePipeline-managed projects must hand both ends to the pipeline.
	if (c.Source.Type == "CODEPIPELINE") != (c.Artifacts.Type == "CODEPIPELINE") {
		issues.Conflictf("artifacts.type", "CODEPIPELINE source and artifacts must be used together")
	}

	if c.Cache != nil {
		switch c.Cache.Type {
		case "S3":
			if c.Cache.Location == "" {
				issues.Requiredf("cache.location", "S3 caches require a bucket")
			}
			if len(c.Cache.Modes) > 0 {
				issues.Forbiddenf("cache.modes", "cache modes are only valid for LOCAL caches")
			}
		case "LOCAL":
			if len(c.Cache.Modes) == 0 {
				issues.Requiredf("cache.modes", "LOCAL caches require at least one mode")
			}
			if c.Cache.Location != "" {
				issues.Forbiddenf("cache.location", "cache location is only valid for S3 caches")
			}
		case "NO_CACHE":
			if c.Cache.Location != "" || len(c.Cache.Modes) > 0 {
				issues.Forbiddenf("cache", "NO_CACHE must not configure a location or modes")
			}
		}
	}

	seen := make(map[string]bool)
	for i, ev := range c.Environment.EnvironmentVariables {
		if seen[ev.Name] {
			issues.Conflictf("environment.environment_variables["+strconv.Itoa(i)+"].name", "variable %q declared more than once", ev.Name)
		}
		seen[ev.Name] = true
	}

	return issues.Err()
}

// usesECRImage reports whether the build image is pulled from a private
// ECR registry.
func (c *Config) usesECRImage() bool {
	return strings.Contains(c.Environment.Image, ".dkr.ecr.")
}

// hasEnvVarType reports whether any environment variable resolves through
// the given provider type.
func (c *Config) hasEnvVarType(t string) bool {
	for _, ev := range c.Environment.EnvironmentVariables {
		if ev.Type == t {
			return true
		}
	}
	return false
}

// logGroup returns the effective CloudWatch Logs group name.
func (c *Config) logGroup() string {
	if c.LogGroupName != "" {
		return c.LogGroupName
	}
	return "/aws/codebuild/" + c.Name
}

// DerivePolicy assembles the project role policy from the features the
// configuration uses. Providers not in use contribute no statements.
func (c *Config) DerivePolicy(env contract.Env) *iam.PolicyDocument {
	doc := iam.NewDocument()

	doc.Allow("Logs",
		[]string{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
		[]string{arn.LogGroup(env, c.logGroup()), arn.LogGroupStreams(env, c.logGroup())},
	)

	var s3Resources []string
	if c.Artifacts.Type == "S3" {
		s3Resources = append(s3Resources, bucketARNs(c.Artifacts.Location)...)
	}
	if c.Cache != nil && c.Cache.Type == "S3" {
		s3Resources = append(s3Resources, bucketARNs(c.Cache.Location)...)
	}
	if c.Source.Type == "S3" {
		s3Resources = append(s3Resources, bucketARNs(c.Source.Location)...)
	}
	if len(s3Resources) > 0 {
		doc.Allow("Artifacts",
			[]string{"s3:GetObject", "s3:GetObjectVersion", "s3:PutObject", "s3:GetBucketLocation"},
			dedupe(s3Resources),
		)
	}

	if c.Source.Type == "CODECOMMIT" {
		doc.Allow("Source",
			[]string{"codecommit:GitPull"},
			[]string{arn.CodeCommitRepo(env, c.Source.Location)},
		)
	}

	if c.Environment.PrivilegedMode || c.usesECRImage() {
		doc.Allow("Registry",
			[]string{"ecr:GetAuthorizationToken", "ecr:BatchCheckLayerAvailability", "ecr:GetDownloadUrlForLayer", "ecr:BatchGetImage"},
			[]string{"*"},
		)
	}

	if c.hasEnvVarType("PARAMETER_STORE") {
		doc.Allow("Parameters",
			[]string{"ssm:GetParameters"},
			[]string{arn.SSMParameter(env, "/*")},
		)
	}
	if c.hasEnvVarType("SECRETS_MANAGER") {
		doc.Allow("Secrets",
			[]string{"secretsmanager:GetSecretValue"},
			[]string{arn.Secret(env, "*")},
		)
	}

	return doc
}

// bucketARNs expands an S3 location ("bucket" or "bucket/prefix") into
// the bucket and object ARNs a build needs.
func bucketARNs(location string) []string {
	bucket, prefix, _ := strings.Cut(location, "/")
	return []string{
		arn.S3Bucket(bucket),
		arn.S3Objects(bucket, prefix+"/*"),
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	out := map[string]string{
		"project_name":     c.Name,
		"project_arn":      arn.CodeBuildProject(env, c.Name),
		"service_role_arn": arn.IAMRole(env, c.ServiceRoleName),
	}
	if policy, err := c.DerivePolicy(env).JSON(); err == nil {
		out["role_policy_json"] = policy
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":        c.Name,
		"source":      c.Source,
		"environment": c.Environment,
		"artifacts":   c.Artifacts,
	}
	if c.Description != "" {
		attrs["description"] = c.Description
	}
	if c.Cache != nil {
		attrs["cache"] = c.Cache
	}
	if c.BuildTimeout > 0 {
		attrs["build_timeout"] = c.BuildTimeout
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	policy := c.DerivePolicy(env)
	policyJSON, _ := policy.JSON()

	return []contract.Resource{
		{Type: "aws_codebuild_project", Name: c.Name, Attributes: attrs},
		{Type: "aws_iam_role_policy", Name: c.ServiceRoleName, Attributes: map[string]interface{}{
			"role":   c.ServiceRoleName,
			"policy": policyJSON,
		}},
	}
}
