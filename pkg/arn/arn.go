// Package arn derives and classifies Amazon Resource Names from module
// inputs. Builders render concrete ARNs from an Env; Parse-based helpers
// classify user-supplied ARNs (e.g. Lambda dead-letter targets).
package arn

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"

	"github.com/stackform/stackform/pkg/contract"
)

// Parse parses an ARN string into its components.
func Parse(s string) (arn.ARN, error) {
	return arn.Parse(s)
}

// IsARN reports whether s looks like an ARN.
func IsARN(s string) bool {
	return arn.IsARN(s)
}

// Service extracts the service component of an ARN, or "" when s is not
// a parseable ARN.
func Service(s string) string {
	parsed, err := arn.Parse(s)
	if err != nil {
		return ""
	}
	return parsed.Service
}

// IsService reports whether s is an ARN of the given service.
func IsService(s, service string) bool {
	return Service(s) == service
}

func build(env contract.Env, service, resource string) string {
	env = env.WithDefaults()
	return arn.ARN{
		Partition: env.Partition,
		Service:   service,
		Region:    env.Region,
		AccountID: env.AccountID,
		Resource:  resource,
	}.String()
}

func buildGlobal(env contract.Env, service, resource string) string {
	env = env.WithDefaults()
	return arn.ARN{
		Partition: env.Partition,
		Service:   service,
		Resource:  resource,
	}.String()
}

// LambdaFunction returns the ARN of a Lambda function, optionally qualified
// by a version or alias.
func LambdaFunction(env contract.Env, name, qualifier string) string {
	resource := "function:" + name
	if qualifier != "" {
		resource += ":" + qualifier
	}
	return build(env, "lambda", resource)
}

// LambdaInvoke returns the API Gateway invocation ARN for a function ARN.
func LambdaInvoke(env contract.Env, functionARN string) string {
	env = env.WithDefaults()
	return fmt.Sprintf("arn:%s:apigateway:%s:lambda:path/2015-03-31/functions/%s/invocations",
		env.Partition, env.Region, functionARN)
}

// DynamoDBTable returns the ARN of a DynamoDB table.
func DynamoDBTable(env contract.Env, name string) string {
	return build(env, "dynamodb", "table/"+name)
}

// DynamoDBIndex returns the ARN of a secondary index on a table.
func DynamoDBIndex(env contract.Env, table, index string) string {
	return build(env, "dynamodb", "table/"+table+"/index/"+index)
}

// S3Bucket returns the ARN of an S3 bucket. Bucket ARNs carry neither
// region nor account.
func S3Bucket(bucket string) string {
	return buildGlobal(contract.Env{}, "s3", bucket)
}

// S3Objects returns the ARN matching all objects under a prefix.
func S3Objects(bucket, prefix string) string {
	p := strings.TrimPrefix(prefix, "/")
	if p == "" {
		p = "*"
	}
	return buildGlobal(contract.Env{}, "s3", bucket+"/"+p)
}

// SNSTopic returns the ARN of an SNS topic.
func SNSTopic(env contract.Env, name string) string {
	return build(env, "sns", name)
}

// SQSQueue returns the ARN of an SQS queue.
func SQSQueue(env contract.Env, name string) string {
	return build(env, "sqs", name)
}

// KMSKey returns the ARN of a KMS key.
func KMSKey(env contract.Env, keyID string) string {
	return build(env, "kms", "key/"+keyID)
}

// KMSAlias returns the ARN of a KMS alias.
func KMSAlias(env contract.Env, alias string) string {
	return build(env, "kms", alias)
}

// Secret returns the ARN pattern of a Secrets Manager secret. Secrets
// Manager appends a random suffix, so name may carry a trailing wildcard.
func Secret(env contract.Env, name string) string {
	return build(env, "secretsmanager", "secret:"+name)
}

// StateMachine returns the ARN of a Step Functions state machine.
func StateMachine(env contract.Env, name string) string {
	return build(env, "states", "stateMachine:"+name)
}

// EventRule returns the ARN of an EventBridge rule on a bus. The default
// bus omits the bus segment.
func EventRule(env contract.Env, bus, rule string) string {
	if bus == "" || bus == "default" {
		return build(env, "events", "rule/"+rule)
	}
	return build(env, "events", "rule/"+bus+"/"+rule)
}

// SSMParameter returns the ARN of an SSM parameter.
func SSMParameter(env contract.Env, name string) string {
	return build(env, "ssm", "parameter"+ensureLeadingSlash(name))
}

// LogGroup returns the ARN of a CloudWatch Logs group.
func LogGroup(env contract.Env, name string) string {
	return build(env, "logs", "log-group:"+name)
}

// LogGroupStreams returns the ARN matching all streams of a log group.
func LogGroupStreams(env contract.Env, name string) string {
	return build(env, "logs", "log-group:"+name+":*")
}

// CodeBuildProject returns the ARN of a CodeBuild project.
func CodeBuildProject(env contract.Env, name string) string {
	return build(env, "codebuild", "project/"+name)
}

// CodeCommitRepo returns the ARN of a CodeCommit repository.
func CodeCommitRepo(env contract.Env, name string) string {
	return build(env, "codecommit", name)
}

// SESIdentity returns the ARN of an SES identity.
func SESIdentity(env contract.Env, identity string) string {
	return build(env, "ses", "identity/"+identity)
}

// CognitoUserPool returns the ARN of a Cognito user pool.
func CognitoUserPool(env contract.Env, poolID string) string {
	return build(env, "cognito-idp", "userpool/"+poolID)
}

// IAMRole returns the ARN of an IAM role. IAM is a global service.
func IAMRole(env contract.Env, name string) string {
	env = env.WithDefaults()
	return arn.ARN{
		Partition: env.Partition,
		Service:   "iam",
		AccountID: env.AccountID,
		Resource:  "role/" + name,
	}.String()
}

func ensureLeadingSlash(s string) string {
	if strings.HasPrefix(s, "/") {
		return s
	}
	return "/" + s
}
