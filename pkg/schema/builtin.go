package schema

// Built-in schema definitions. Kind schemas are deliberately structural:
// they pin field names, types, and simple patterns, leaving cross-field
// rules to the typed module Validate methods.

const manifestSchema = `
#Manifest: {
	// Environment the declarations are rendered for
	environment: {
		partition?: "aws" | "aws-cn" | "aws-us-gov"
		region:     string & =~"^[a-z]{2}(-[a-z]+)+-\\d$"
		account_id: string & =~"^\\d{12}$"
	}

	// Plain variables available as ${var.name}
	variables?: {[string]: _}

	// Computed variables: Starlark expressions over plain variables
	computed?: {[string]: string}

	// Policy evaluation settings
	policy?: {
		enabled?: bool
		mode?:    "advisory" | "enforcing"
		paths?: [...string]
	}

	// Module declarations
	modules: [...#Module]
}

#Module: {
	// Name is unique within the manifest
	name: string & =~"^[a-zA-Z0-9][a-zA-Z0-9_-]*$"

	// Kind selects the module type
	kind: string & =~"^aws\\.[a-z0-9_]+\\.[a-z0-9_]+$"

	// Config is the kind-specific input block
	config: {...}

	// Explicit dependencies in addition to inferred references
	depends_on?: [...string]
}
`

var kindSchemas = map[string]string{
	"aws.dynamodb.table": `
#Config: {
	name:         string & =~"^[a-zA-Z0-9_.-]{3,255}$"
	billing_mode: "PROVISIONED" | "PAY_PER_REQUEST"
	hash_key:     string
	range_key?:   string
	attributes: [...{
		name: string
		type: "S" | "N" | "B"
	}]
	...
}
`,
	"aws.lambda.function": `
#Config: {
	name:         string
	runtime:      string
	memory_size?: int & >=128 & <=10240
	timeout?:     int & >=1 & <=900
	...
}
`,
	"aws.s3.bucket": `
#Config: {
	bucket: string & =~"^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$"
	...
}
`,
	"aws.cloudfront.distribution": `
#Config: {
	origins: [...{
		id:          string
		origin_type: "s3" | "custom"
		domain_name: string
		...
	}]
	...
}
`,
	"aws.apigateway.rest_api": `
#Config: {
	name:          string
	endpoint_type: "EDGE" | "REGIONAL" | "PRIVATE"
	...
}
`,
	"aws.route53.zone": `
#Config: {
	name: string
	...
}
`,
	"aws.route53.record": `
#Config: {
	zone_id: string
	name:    string
	type:    string
	...
}
`,
	"aws.codebuild.project": `
#Config: {
	name: string
	source: {
		type: "CODECOMMIT" | "S3" | "GITHUB" | "CODEPIPELINE" | "NO_SOURCE"
		...
	}
	...
}
`,
	"aws.codedeploy.app": `
#Config: {
	name:             string
	compute_platform: "Server" | "Lambda" | "ECS"
	...
}
`,
	"aws.codepipeline.pipeline": `
#Config: {
	name: string
	stages: [...{
		name: string
		...
	}]
	...
}
`,
	"aws.sfn.state_machine": `
#Config: {
	name:       string
	type:       "STANDARD" | "EXPRESS"
	definition: string
	...
}
`,
	"aws.cognito.user_pool": `
#Config: {
	name: string
	...
}
`,
	"aws.sns.topic": `
#Config: {
	name: string
	...
}
`,
	"aws.ses.domain_identity": `
#Config: {
	domain: string
	...
}
`,
	"aws.kms.key": `
#Config: {
	key_spec?:  string
	key_usage?: "ENCRYPT_DECRYPT" | "SIGN_VERIFY"
	...
}
`,
	"aws.events.rule": `
#Config: {
	name: string
	targets: [...{
		id:  string
		arn: string
		...
	}]
	...
}
`,
	"aws.ssm.parameter": `
#Config: {
	name:  string
	type:  "String" | "StringList" | "SecureString"
	value: string
	...
}
`,
}
