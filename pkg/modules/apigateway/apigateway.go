// Package apigateway declares the REST API module: endpoint configuration,
// stage settings, method integrations, and authorizers. Lambda proxy
// integrations consume a function ARN produced by the lambda module.
package apigateway

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.apigateway.rest_api"

// Stage configures a deployment stage.
type Stage struct {
	// Name is the stage name.
	Name string `json:"name" validate:"required,awsname"`

	// ThrottlingRateLimit is the steady-state request rate.
	ThrottlingRateLimit *float64 `json:"throttling_rate_limit,omitempty"`

	// ThrottlingBurstLimit is the burst request allowance.
	ThrottlingBurstLimit *int `json:"throttling_burst_limit,omitempty"`

	// MetricsEnabled turns on detailed CloudWatch metrics.
	MetricsEnabled bool `json:"metrics_enabled"`

	// LoggingLevel is the execution log level.
	LoggingLevel string `json:"logging_level,omitempty" validate:"omitempty,oneof=OFF ERROR INFO"`

	// AccessLogGroupARN receives access logs; required when an access
	// log format is set.
	AccessLogGroupARN string `json:"access_log_group_arn,omitempty"`

	// AccessLogFormat is the access log line format.
	AccessLogFormat string `json:"access_log_format,omitempty"`

	// CacheClusterSize enables stage caching when set.
	CacheClusterSize string `json:"cache_cluster_size,omitempty" validate:"omitempty,oneof=0.5 1.6 6.1 13.5 28.4 58.2 118 237"`
}

// Integration maps a method on a path to a backend.
type Integration struct {
	// Path is the resource path (e.g. "/orders/{id}").
	Path string `json:"path" validate:"required,startswith=/"`

	// Method is the HTTP method or ANY.
	Method string `json:"method" validate:"required,oneof=GET POST PUT PATCH DELETE HEAD OPTIONS ANY"`

	// Type is the integration type.
	Type string `json:"type" validate:"required,oneof=AWS_PROXY HTTP HTTP_PROXY MOCK"`

	// FunctionARN is the Lambda target, required for AWS_PROXY.
	FunctionARN string `json:"function_arn,omitempty"`

	// URI is the HTTP backend, required for HTTP and HTTP_PROXY.
	URI string `json:"uri,omitempty"`

	// TimeoutMillis bounds the backend call.
	TimeoutMillis int `json:"timeout_millis,omitempty" validate:"omitempty,gte=50,lte=29000"`

	// AuthorizationType selects per-method auth.
	AuthorizationType string `json:"authorization_type,omitempty" validate:"omitempty,oneof=NONE AWS_IAM COGNITO_USER_POOLS CUSTOM"`

	// APIKeyRequired requires a usage-plan API key.
	APIKeyRequired bool `json:"api_key_required"`
}

// Authorizer configures a Cognito or token authorizer.
type Authorizer struct {
	// Name is the authorizer name.
	Name string `json:"name" validate:"required,awsname"`

	// Type is COGNITO_USER_POOLS or TOKEN.
	Type string `json:"type" validate:"required,oneof=COGNITO_USER_POOLS TOKEN"`

	// ProviderARNs lists user pool ARNs; required for Cognito.
	ProviderARNs []string `json:"provider_arns,omitempty"`

	// AuthorizerFunctionARN backs a TOKEN authorizer.
	AuthorizerFunctionARN string `json:"authorizer_function_arn,omitempty"`
}

// Config is the REST API module input schema.
type Config struct {
	// Name is the API name.
	Name string `json:"name" validate:"required,min=1,max=128"`

	// Description is optional free text.
	Description string `json:"description,omitempty" validate:"max=1024"`

	// EndpointType selects the endpoint configuration.
	EndpointType string `json:"endpoint_type" validate:"required,oneof=EDGE REGIONAL PRIVATE"`

	// VPCEndpointIDs are required for PRIVATE endpoints.
	VPCEndpointIDs []string `json:"vpc_endpoint_ids,omitempty"`

	// Stage is the deployment stage.
	Stage Stage `json:"stage"`

	// Integrations map methods to backends.
	Integrations []Integration `json:"integrations" validate:"required,min=1,dive"`

	// Authorizer is the optional API authorizer.
	Authorizer *Authorizer `json:"authorizer,omitempty"`

	// BinaryMediaTypes lists binary content types passed through as-is.
	BinaryMediaTypes []string `json:"binary_media_types,omitempty"`

	// Tags are propagated to the API.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the REST API preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if c.EndpointType == "PRIVATE" && len(c.VPCEndpointIDs) == 0 {
		issues.Requiredf("vpc_endpoint_ids", "PRIVATE endpoints require at least one VPC endpoint")
	}
	if c.EndpointType != "PRIVATE" && len(c.VPCEndpointIDs) > 0 {
		issues.Forbiddenf("vpc_endpoint_ids", "VPC endpoints are only valid for PRIVATE APIs")
	}

	c.validateStage(&issues)
	c.validateIntegrations(&issues)
	c.validateAuthorizer(&issues)

	return issues.Err()
}

func (c *Config) validateStage(issues *contract.Issues) {
	s := c.Stage
	if s.ThrottlingBurstLimit != nil && s.ThrottlingRateLimit != nil &&
		float64(*s.ThrottlingBurstLimit) < *s.ThrottlingRateLimit {
		issues.Rangef("stage.throttling_burst_limit", "burst limit must be >= rate limit")
	}
	if s.AccessLogFormat != "" && s.AccessLogGroupARN == "" {
		issues.Requiredf("stage.access_log_group_arn", "an access log format requires a destination log group")
	}
	if s.AccessLogGroupARN != "" && !contract.IsReference(s.AccessLogGroupARN) && !arn.IsService(s.AccessLogGroupARN, "logs") {
		issues.Invalidf("stage.access_log_group_arn", "must be a CloudWatch Logs group ARN")
	}
}

func (c *Config) validateIntegrations(issues *contract.Issues) {
	seen := make(map[string]bool)
	for i, in := range c.Integrations {
		path := "integrations[" + strconv.Itoa(i) + "]"
		key := in.Method + " " + in.Path
		if seen[key] {
			issues.Conflictf(path, "integration %q declared more than once", key)
		}
		seen[key] = true

		switch in.Type {
		case "AWS_PROXY":
			if in.FunctionARN == "" {
				issues.Requiredf(path+".function_arn", "AWS_PROXY integrations require a Lambda function ARN")
			} else if !contract.IsReference(in.FunctionARN) && !arn.IsService(in.FunctionARN, "lambda") {
				issues.Invalidf(path+".function_arn", "must be a Lambda function ARN")
			}
			if in.URI != "" {
				issues.Forbiddenf(path+".uri", "AWS_PROXY integrations must not set a URI")
			}
		case "HTTP", "HTTP_PROXY":
			if in.URI == "" {
				issues.Requiredf(path+".uri", "%s integrations require a backend URI", in.Type)
			} else if u, err := url.Parse(in.URI); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				issues.Invalidf(path+".uri", "must be an http(s) URI")
			}
			if in.FunctionARN != "" {
				issues.Forbiddenf(path+".function_arn", "%s integrations must not set a function ARN", in.Type)
			}
		case "MOCK":
			if in.FunctionARN != "" || in.URI != "" {
				issues.Forbiddenf(path, "MOCK integrations must not set a backend")
			}
		}
	}
}

func (c *Config) validateAuthorizer(issues *contract.Issues) {
	a := c.Authorizer
	if a == nil {
		return
	}
	switch a.Type {
	case "COGNITO_USER_POOLS":
		if len(a.ProviderARNs) == 0 {
			issues.Requiredf("authorizer.provider_arns", "Cognito authorizers require at least one user pool ARN")
		}
		for i, p := range a.ProviderARNs {
			if !contract.IsReference(p) && !arn.IsService(p, "cognito-idp") {
				issues.Invalidf("authorizer.provider_arns["+strconv.Itoa(i)+"]", "must be a Cognito user pool ARN")
			}
		}
		if a.AuthorizerFunctionARN != "" {
			issues.Forbiddenf("authorizer.authorizer_function_arn", "Cognito authorizers must not set a function")
		}
	case "TOKEN":
		if a.AuthorizerFunctionARN == "" {
			issues.Requiredf("authorizer.authorizer_function_arn", "TOKEN authorizers require a Lambda function ARN")
		}
		if len(a.ProviderARNs) > 0 {
			issues.Forbiddenf("authorizer.provider_arns", "TOKEN authorizers must not set provider ARNs")
		}
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	env = env.WithDefaults()
	apiID := contract.Ref("aws_api_gateway_rest_api", c.Name, "id")
	return map[string]string{
		"rest_api_id":   apiID,
		"stage_name":    c.Stage.Name,
		"execution_arn": contract.Ref("aws_api_gateway_rest_api", c.Name, "execution_arn"),
		"invoke_url":    "https://" + apiID + ".execute-api." + env.Region + ".amazonaws.com/" + c.Stage.Name,
		"root_resource": contract.Ref("aws_api_gateway_rest_api", c.Name, "root_resource_id"),
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	apiAttrs := map[string]interface{}{
		"name":          c.Name,
		"endpoint_type": c.EndpointType,
	}
	if c.Description != "" {
		apiAttrs["description"] = c.Description
	}
	if len(c.VPCEndpointIDs) > 0 {
		apiAttrs["vpc_endpoint_ids"] = c.VPCEndpointIDs
	}
	if len(c.BinaryMediaTypes) > 0 {
		apiAttrs["binary_media_types"] = c.BinaryMediaTypes
	}
	if len(c.Tags) > 0 {
		apiAttrs["tags"] = c.Tags
	}

	resources := []contract.Resource{
		{Type: "aws_api_gateway_rest_api", Name: c.Name, Attributes: apiAttrs},
		{Type: "aws_api_gateway_stage", Name: c.Name + "-" + c.Stage.Name, Attributes: map[string]interface{}{
			"stage_name": c.Stage.Name,
			"settings":   c.Stage,
		}},
	}
	for _, in := range c.Integrations {
		resources = append(resources, contract.Resource{
			Type: "aws_api_gateway_integration",
			Name: c.Name + "-" + strings.ToLower(in.Method) + strings.ReplaceAll(in.Path, "/", "-"),
			Attributes: map[string]interface{}{
				"path":         in.Path,
				"http_method":  in.Method,
				"type":         in.Type,
				"function_arn": in.FunctionARN,
				"uri":          in.URI,
			},
		})
	}
	if c.Authorizer != nil {
		resources = append(resources, contract.Resource{
			Type:       "aws_api_gateway_authorizer",
			Name:       c.Name + "-" + c.Authorizer.Name,
			Attributes: map[string]interface{}{"authorizer": c.Authorizer},
		})
	}
	return resources
}
