// Package codedeploy declares the CodeDeploy application module: an
// application plus one deployment group, with the deployment style rules
// that differ per compute platform.
package codedeploy

import (
	"strings"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.codedeploy.app"

// configPrefix maps a compute platform to the family its deployment
// configuration names must come from.
var configPrefix = map[string]string{
	"Lambda": "CodeDeployDefault.Lambda",
	"ECS":    "CodeDeployDefault.ECS",
	"Server": "CodeDeployDefault.",
}

// BlueGreenConfig controls traffic shifting for blue/green deployments.
type BlueGreenConfig struct {
	// TerminationWaitMinutes delays teardown of the original fleet.
	TerminationWaitMinutes int `json:"termination_wait_minutes,omitempty" validate:"gte=0,lte=2880"`

	// ProductionTrafficRoute names the listener carrying live traffic,
	// required for ECS deployments.
	ProductionTrafficRoute string `json:"production_traffic_route,omitempty"`
}

// AutoRollback re-deploys the previous revision on failure or alarm.
type AutoRollback struct {
	// Enabled turns automatic rollback on.
	Enabled bool `json:"enabled"`

	// Events lists what triggers a rollback.
	Events []string `json:"events,omitempty" validate:"dive,oneof=DEPLOYMENT_FAILURE DEPLOYMENT_STOP_ON_ALARM DEPLOYMENT_STOP_ON_REQUEST"`
}

// DeploymentGroup targets a fleet or service for the application.
type DeploymentGroup struct {
	// Name is the deployment group name.
	Name string `json:"name" validate:"required,min=1,max=100,awsname"`

	// ServiceRoleARN is the role CodeDeploy assumes.
	ServiceRoleARN string `json:"service_role_arn" validate:"required"`

	// DeploymentConfigName selects the traffic shifting schedule.
	DeploymentConfigName string `json:"deployment_config_name,omitempty"`

	// DeploymentType is IN_PLACE or BLUE_GREEN.
	DeploymentType string `json:"deployment_type" validate:"required,oneof=IN_PLACE BLUE_GREEN"`

	// BlueGreen configures traffic shifting, required for BLUE_GREEN.
	BlueGreen *BlueGreenConfig `json:"blue_green,omitempty"`

	// AutoRollback configures rollback on failure.
	AutoRollback *AutoRollback `json:"auto_rollback,omitempty"`

	// AlarmNames stop the deployment when in ALARM state.
	AlarmNames []string `json:"alarm_names,omitempty" validate:"max=10"`
}

// Config is the application module input schema.
type Config struct {
	// Name is the application name.
	Name string `json:"name" validate:"required,min=1,max=100,awsname"`

	// ComputePlatform selects what is being deployed.
	ComputePlatform string `json:"compute_platform" validate:"required,oneof=Server Lambda ECS"`

	// DeploymentGroup is the group created alongside the application.
	DeploymentGroup DeploymentGroup `json:"deployment_group"`

	// Tags are propagated to both resources.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the application preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	g := c.DeploymentGroup

	// Lambda and ECS deployments shift traffic between versions, so only
	// blue/green applies. In-place is a Server concept.
	switch c.ComputePlatform {
	case "Lambda", "ECS":
		if g.DeploymentType != "BLUE_GREEN" {
			issues.Invalidf("deployment_group.deployment_type", "%s deployments must use BLUE_GREEN", c.ComputePlatform)
		}
		if g.BlueGreen == nil {
			issues.Requiredf("deployment_group.blue_green", "%s deployments require a blue_green block", c.ComputePlatform)
		}
	}
	if c.ComputePlatform == "ECS" && g.BlueGreen != nil && g.BlueGreen.ProductionTrafficRoute == "" {
		issues.Requiredf("deployment_group.blue_green.production_traffic_route", "ECS deployments require a production traffic route")
	}
	if g.DeploymentType == "IN_PLACE" && g.BlueGreen != nil {
		issues.Forbiddenf("deployment_group.blue_green", "blue_green is only valid for BLUE_GREEN deployments")
	}

	if g.DeploymentConfigName != "" {
		if prefix := configPrefix[c.ComputePlatform]; !strings.HasPrefix(g.DeploymentConfigName, prefix) {
			issues.Invalidf("deployment_group.deployment_config_name",
				"config %q does not match compute platform %s", g.DeploymentConfigName, c.ComputePlatform)
		}
		// Server configs share the bare prefix; reject the other families.
		if c.ComputePlatform == "Server" &&
			(strings.HasPrefix(g.DeploymentConfigName, "CodeDeployDefault.Lambda") ||
				strings.HasPrefix(g.DeploymentConfigName, "CodeDeployDefault.ECS")) {
			issues.Invalidf("deployment_group.deployment_config_name",
				"config %q does not match compute platform Server", g.DeploymentConfigName)
		}
	}

	if !contract.IsReference(g.ServiceRoleARN) {
		if !arn.IsService(g.ServiceRoleARN, "iam") {
			issues.Invalidf("deployment_group.service_role_arn", "service role must be an IAM role ARN")
		}
	}

	if g.AutoRollback != nil && g.AutoRollback.Enabled && len(g.AutoRollback.Events) == 0 {
		issues.Requiredf("deployment_group.auto_rollback.events", "enabled auto rollback requires at least one event")
	}
	if len(g.AlarmNames) == 0 && g.AutoRollback != nil {
		for _, ev := range g.AutoRollback.Events {
			if ev == "DEPLOYMENT_STOP_ON_ALARM" {
				issues.Requiredf("deployment_group.alarm_names", "DEPLOYMENT_STOP_ON_ALARM requires alarm_names")
			}
		}
	}

	return issues.Err()
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"app_name":              c.Name,
		"app_arn":               contract.Ref("aws_codedeploy_app", c.Name, "arn"),
		"deployment_group_name": c.DeploymentGroup.Name,
		"deployment_group_arn":  contract.Ref("aws_codedeploy_deployment_group", c.DeploymentGroup.Name, "arn"),
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	appAttrs := map[string]interface{}{
		"name":             c.Name,
		"compute_platform": c.ComputePlatform,
	}
	if len(c.Tags) > 0 {
		appAttrs["tags"] = c.Tags
	}

	g := c.DeploymentGroup
	groupAttrs := map[string]interface{}{
		"app_name":              c.Name,
		"deployment_group_name": g.Name,
		"service_role_arn":      g.ServiceRoleARN,
		"deployment_type":       g.DeploymentType,
	}
	if g.DeploymentConfigName != "" {
		groupAttrs["deployment_config_name"] = g.DeploymentConfigName
	}
	if g.BlueGreen != nil {
		groupAttrs["blue_green"] = g.BlueGreen
	}
	if g.AutoRollback != nil {
		groupAttrs["auto_rollback"] = g.AutoRollback
	}
	if len(g.AlarmNames) > 0 {
		groupAttrs["alarm_names"] = g.AlarmNames
	}
	if len(c.Tags) > 0 {
		groupAttrs["tags"] = c.Tags
	}

	return []contract.Resource{
		{Type: "aws_codedeploy_app", Name: c.Name, Attributes: appAttrs},
		{Type: "aws_codedeploy_deployment_group", Name: g.Name, Attributes: groupAttrs},
	}
}
