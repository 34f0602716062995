// Package codepipeline declares the CodePipeline module. The interesting
// checks are structural: stage ordering, and the rule that every input
// artifact must have been produced by an earlier stage.
package codepipeline

import (
	"strconv"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.codepipeline.pipeline"

// Action is a single pipeline action.
type Action struct {
	// Name is the action name, unique within its stage.
	Name string `json:"name" validate:"required,min=1,max=100,awsname"`

	// Category is the action category.
	Category string `json:"category" validate:"required,oneof=Source Build Test Deploy Approval Invoke"`

	// Provider is the action provider, e.g. CodeBuild or S3.
	Provider string `json:"provider" validate:"required"`

	// Version is the provider version.
	Version string `json:"version,omitempty"`

	// Configuration holds provider-specific settings.
	Configuration map[string]string `json:"configuration,omitempty"`

	// InputArtifacts name artifacts consumed by the action.
	InputArtifacts []string `json:"input_artifacts,omitempty"`

	// OutputArtifacts name artifacts produced by the action.
	OutputArtifacts []string `json:"output_artifacts,omitempty"`

	// RunOrder sequences actions within the stage.
	RunOrder int `json:"run_order,omitempty" validate:"omitempty,gte=1,lte=999"`
}

// Stage is an ordered group of actions.
type Stage struct {
	// Name is the stage name, unique within the pipeline.
	Name string `json:"name" validate:"required,min=1,max=100,awsname"`

	// Actions run within the stage.
	Actions []Action `json:"actions" validate:"required,min=1,dive"`
}

// ArtifactStore is the S3 location pipeline artifacts pass through.
type ArtifactStore struct {
	// Bucket is the artifact bucket name.
	Bucket string `json:"bucket" validate:"required"`

	// KMSKeyARN encrypts artifacts with a customer key when set.
	KMSKeyARN string `json:"kms_key_arn,omitempty"`
}

// Config is the pipeline module input schema.
type Config struct {
	// Name is the pipeline name.
	Name string `json:"name" validate:"required,min=1,max=100,awsname"`

	// RoleARN is the role the pipeline assumes.
	RoleARN string `json:"role_arn" validate:"required"`

	// ArtifactStore holds intermediate artifacts.
	ArtifactStore ArtifactStore `json:"artifact_store"`

	// Stages run in order. A pipeline needs a source and at least one
	// stage acting on it.
	Stages []Stage `json:"stages" validate:"required,min=2,dive"`

	// Tags are propagated to the pipeline.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the pipeline preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if !contract.IsReference(c.RoleARN) && !arn.IsService(c.RoleARN, "iam") {
		issues.Invalidf("role_arn", "pipeline role must be an IAM role ARN")
	}
	if c.ArtifactStore.KMSKeyARN != "" && !contract.IsReference(c.ArtifactStore.KMSKeyARN) {
		if !arn.IsService(c.ArtifactStore.KMSKeyARN, "kms") {
			issues.Invalidf("artifact_store.kms_key_arn", "artifact store key must be a KMS ARN")
		}
	}

	c.validateStages(&issues)

	return issues.Err()
}

// validateStages walks the stages in order, tracking produced artifacts so
// consumers can be checked against them.
func (c *Config) validateStages(issues *contract.Issues) {
	stageNames := make(map[string]bool)
	produced := make(map[string]bool)

	for i, stage := range c.Stages {
		sp := "stages[" + strconv.Itoa(i) + "]"

		if stageNames[stage.Name] {
			issues.Conflictf(sp+".name", "stage %q declared more than once", stage.Name)
		}
		stageNames[stage.Name] = true

		actionNames := make(map[string]bool)
		// Outputs of this stage are visible to later stages only, so
		// collect them separately and merge after the walk.
		stageOutputs := make(map[string]bool)

		for j, action := range stage.Actions {
			ap := sp + ".actions[" + strconv.Itoa(j) + "]"

			if actionNames[action.Name] {
				issues.Conflictf(ap+".name", "action %q declared more than once in stage %q", action.Name, stage.Name)
			}
			actionNames[action.Name] = true

			if i == 0 && action.Category != "Source" {
				issues.Invalidf(ap+".category", "first stage may only contain Source actions")
			}
			if i > 0 && action.Category == "Source" {
				issues.Invalidf(ap+".category", "Source actions are only allowed in the first stage")
			}

			for _, in := range action.InputArtifacts {
				if !produced[in] {
					issues.Referencef(ap+".input_artifacts", "artifact %q is not produced by any earlier stage", in)
				}
			}
			for _, out := range action.OutputArtifacts {
				if produced[out] || stageOutputs[out] {
					issues.Conflictf(ap+".output_artifacts", "artifact %q produced more than once", out)
				}
				stageOutputs[out] = true
			}
		}

		for out := range stageOutputs {
			produced[out] = true
		}
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"pipeline_name":   c.Name,
		"pipeline_arn":    contract.Ref("aws_codepipeline", c.Name, "arn"),
		"artifact_bucket": c.ArtifactStore.Bucket,
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":           c.Name,
		"role_arn":       c.RoleARN,
		"artifact_store": c.ArtifactStore,
		"stages":         c.Stages,
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}
	return []contract.Resource{
		{Type: "aws_codepipeline", Name: c.Name, Attributes: attrs},
	}
}
