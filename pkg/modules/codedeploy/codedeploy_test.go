package codedeploy

import (
	"testing"

	"github.com/stackform/stackform/pkg/contract"
)

var testEnv = contract.Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"}

const roleARN = "arn:aws:iam::123456789012:role/codedeploy"

func validConfig() *Config {
	return &Config{
		Name:            "orders",
		ComputePlatform: "Lambda",
		DeploymentGroup: DeploymentGroup{
			Name:           "orders-group",
			ServiceRoleARN: roleARN,
			DeploymentType: "BLUE_GREEN",
			BlueGreen:      &BlueGreenConfig{},
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

func TestValidatePlatformRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		code   contract.Code
	}{
		{
			name: "lambda in place",
			mutate: func(c *Config) {
				c.DeploymentGroup.DeploymentType = "IN_PLACE"
				c.DeploymentGroup.BlueGreen = nil
			},
			path: "deployment_group.deployment_type",
			code: contract.CodeInvalid,
		},
		{
			name: "lambda without blue green block",
			mutate: func(c *Config) {
				c.DeploymentGroup.BlueGreen = nil
			},
			path: "deployment_group.blue_green",
			code: contract.CodeRequired,
		},
		{
			name: "ecs without traffic route",
			mutate: func(c *Config) {
				c.ComputePlatform = "ECS"
			},
			path: "deployment_group.blue_green.production_traffic_route",
			code: contract.CodeRequired,
		},
		{
			name: "server in place with blue green block",
			mutate: func(c *Config) {
				c.ComputePlatform = "Server"
				c.DeploymentGroup.DeploymentType = "IN_PLACE"
			},
			path: "deployment_group.blue_green",
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

func TestValidateConfigName(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		config   string
		ok       bool
	}{
		{"lambda config", "Lambda", "CodeDeployDefault.LambdaCanary10Percent5Minutes", true},
		{"lambda with ecs config", "Lambda", "CodeDeployDefault.ECSLinear10PercentEvery1Minutes", false},
		{"server config", "Server", "CodeDeployDefault.OneAtATime", true},
		{"server with lambda config", "Server", "CodeDeployDefault.LambdaAllAtOnce", false},
		{"server with ecs config", "Server", "CodeDeployDefault.ECSAllAtOnce", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.ComputePlatform = tt.platform
			if tt.platform == "Server" {
				c.DeploymentGroup.DeploymentType = "IN_PLACE"
				c.DeploymentGroup.BlueGreen = nil
			}
			c.DeploymentGroup.DeploymentConfigName = tt.config

			err := c.Validate()
			if tt.ok && err != nil {
				t.Errorf("Unexpected issues: %v", err)
			}
			if !tt.ok {
				hasIssue(t, err, "deployment_group.deployment_config_name", contract.CodeInvalid)
			}
		})
	}
}

func TestValidateServiceRole(t *testing.T) {
	c := validConfig()
	c.DeploymentGroup.ServiceRoleARN = "arn:aws:s3:::bucket"
	hasIssue(t, c.Validate(), "deployment_group.service_role_arn", contract.CodeInvalid)

	c = validConfig()
	c.DeploymentGroup.ServiceRoleARN = "${module.roles.codedeploy_arn}"
	if err := c.Validate(); err != nil {
		t.Errorf("Reference placeholder should pass, got %v", err)
	}
}

func TestValidateRollback(t *testing.T) {
	c := validConfig()
	c.DeploymentGroup.AutoRollback = &AutoRollback{Enabled: true}
	hasIssue(t, c.Validate(), "deployment_group.auto_rollback.events", contract.CodeRequired)

	c = validConfig()
	c.DeploymentGroup.AutoRollback = &AutoRollback{Enabled: true, Events: []string{"DEPLOYMENT_STOP_ON_ALARM"}}
	hasIssue(t, c.Validate(), "deployment_group.alarm_names", contract.CodeRequired)

	c = validConfig()
	c.DeploymentGroup.AutoRollback = &AutoRollback{Enabled: true, Events: []string{"DEPLOYMENT_STOP_ON_ALARM"}}
	c.DeploymentGroup.AlarmNames = []string{"orders-errors"}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestResources(t *testing.T) {
	c := validConfig()
	resources := c.Resources(testEnv)
	if len(resources) != 2 {
		t.Fatalf("Expected app and deployment group, got %d resources", len(resources))
	}
	if resources[0].Type != "aws_codedeploy_app" {
		t.Errorf("First resource = %s", resources[0].Address())
	}
	if resources[1].Attributes["app_name"] != "orders" {
		t.Errorf("Group must reference the application, got %v", resources[1].Attributes["app_name"])
	}
}
