package policy

import (
	"time"
)

// BuiltinPolicies returns all built-in policies.
func BuiltinPolicies() []Policy {
	return []Policy{
		s3PublicAccessPolicy(),
		dynamodbEncryptionPolicy(),
		iamWildcardPolicy(),
		requiredTagsPolicy(),
		cloudfrontHTTPSPolicy(),
	}
}

// s3PublicAccessPolicy denies buckets whose public access block leaves
// any toggle open.
func s3PublicAccessPolicy() Policy {
	return Policy{
		Name:        "s3-public-access",
		Description: "Denies S3 public access blocks that leave any public access toggle open",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"s3", "security"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stackform.policies.s3_public_access

import rego.v1

toggles := ["block_public_acls", "block_public_policy", "ignore_public_acls", "restrict_public_buckets"]

deny contains violation if {
	resource := input.resource
	resource.type == "aws_s3_bucket_public_access_block"

	some toggle in toggles
	resource.attributes[toggle] == false

	violation := {
		"message": sprintf("Bucket %s leaves %s disabled", [resource.name, toggle]),
		"severity": "error",
		"resource": sprintf("%s.%s", [resource.type, resource.name]),
	}
}`,
	}
}

// dynamodbEncryptionPolicy requires customer-managed encryption on
// production tables.
func dynamodbEncryptionPolicy() Policy {
	return Policy{
		Name:        "dynamodb-encryption",
		Description: "Requires server-side encryption on DynamoDB tables in production",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"dynamodb", "encryption"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stackform.policies.dynamodb_encryption

import rego.v1

deny contains violation if {
	input.context.environment == "production"
	resource := input.resource
	resource.type == "aws_dynamodb_table"

	not resource.attributes.server_side_encryption.enabled

	violation := {
		"message": sprintf("Table %s must enable server-side encryption in production", [resource.name]),
		"severity": "error",
		"resource": sprintf("%s.%s", [resource.type, resource.name]),
	}
}`,
	}
}

// iamWildcardPolicy denies wildcard actions in derived role policies.
func iamWildcardPolicy() Policy {
	return Policy{
		Name:        "iam-wildcard-actions",
		Description: "Denies Allow statements granting * or service:* actions in role policies",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"iam", "security"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stackform.policies.iam_wildcard

import rego.v1

deny contains violation if {
	resource := input.resource
	resource.type == "aws_iam_role_policy"

	doc := json.unmarshal(resource.attributes.policy)
	some statement in doc.Statement
	statement.Effect == "Allow"
	some action in statement.Action
	is_wildcard(action)

	violation := {
		"message": sprintf("Role policy %s grants wildcard action %s", [resource.name, action]),
		"severity": "error",
		"resource": sprintf("%s.%s", [resource.type, resource.name]),
	}
}

is_wildcard(action) if action == "*"

is_wildcard(action) if endswith(action, ":*")`,
	}
}

// requiredTagsPolicy warns when taggable declarations carry no tags.
func requiredTagsPolicy() Policy {
	return Policy{
		Name:        "required-tags",
		Description: "Warns when taggable resources are declared without tags",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"tags", "metadata"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stackform.policies.required_tags

import rego.v1

taggable := {
	"aws_dynamodb_table",
	"aws_lambda_function",
	"aws_s3_bucket",
	"aws_cloudfront_distribution",
	"aws_sns_topic",
	"aws_kms_key",
	"aws_codebuild_project",
	"aws_codepipeline",
	"aws_sfn_state_machine",
	"aws_ssm_parameter",
}

deny contains violation if {
	resource := input.resource
	resource.type in taggable

	not resource.attributes.tags

	violation := {
		"message": sprintf("Resource %s is declared without tags", [resource.name]),
		"severity": "warning",
		"resource": sprintf("%s.%s", [resource.type, resource.name]),
	}
}`,
	}
}

// cloudfrontHTTPSPolicy denies cache behaviors that allow plain HTTP.
func cloudfrontHTTPSPolicy() Policy {
	return Policy{
		Name:        "cloudfront-https",
		Description: "Denies CloudFront cache behaviors with an allow-all viewer protocol policy",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"cloudfront", "security"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package stackform.policies.cloudfront_https

import rego.v1

deny contains violation if {
	resource := input.resource
	resource.type == "aws_cloudfront_distribution"

	resource.attributes.default_cache_behavior.viewer_protocol_policy == "allow-all"

	violation := {
		"message": sprintf("Distribution %s allows plain HTTP on the default cache behavior", [resource.name]),
		"severity": "error",
		"resource": sprintf("%s.%s", [resource.type, resource.name]),
	}
}

deny contains violation if {
	resource := input.resource
	resource.type == "aws_cloudfront_distribution"

	some behavior in resource.attributes.ordered_cache_behaviors
	behavior.viewer_protocol_policy == "allow-all"

	violation := {
		"message": sprintf("Distribution %s allows plain HTTP on path %s", [resource.name, behavior.path_pattern]),
		"severity": "error",
		"resource": sprintf("%s.%s", [resource.type, resource.name]),
	}
}`,
	}
}
