// Package alarm carries the CloudWatch alarm defaults shared by the
// service modules, the override-merge idiom, and per-service dimension
// derivation.
package alarm

import (
	"github.com/stackform/stackform/pkg/contract"
)

// ComparisonOperator is a CloudWatch alarm comparison operator.
type ComparisonOperator string

const (
	GreaterThanThreshold          ComparisonOperator = "GreaterThanThreshold"
	GreaterThanOrEqualToThreshold ComparisonOperator = "GreaterThanOrEqualToThreshold"
	LessThanThreshold             ComparisonOperator = "LessThanThreshold"
	LessThanOrEqualToThreshold    ComparisonOperator = "LessThanOrEqualToThreshold"
)

// Settings are the evaluated alarm knobs after defaults and overrides are
// merged.
type Settings struct {
	// Period is the evaluation period in seconds.
	Period int `json:"period" validate:"gte=10"`

	// EvaluationPeriods is the number of periods to evaluate.
	EvaluationPeriods int `json:"evaluation_periods" validate:"gte=1"`

	// Threshold is the alarm threshold.
	Threshold float64 `json:"threshold"`

	// ComparisonOperator compares the statistic to the threshold.
	ComparisonOperator ComparisonOperator `json:"comparison_operator" validate:"required,oneof=GreaterThanThreshold GreaterThanOrEqualToThreshold LessThanThreshold LessThanOrEqualToThreshold"`

	// TreatMissingData controls missing-datapoint behavior.
	TreatMissingData string `json:"treat_missing_data" validate:"omitempty,oneof=missing ignore breaching notBreaching"`

	// AlarmActions are the ARNs notified on state change.
	AlarmActions []string `json:"alarm_actions,omitempty"`
}

// Overrides are sparse per-module alarm settings layered over defaults.
// Pointer fields distinguish "unset" from an explicit zero.
type Overrides struct {
	Period             *int                `json:"period,omitempty"`
	EvaluationPeriods  *int                `json:"evaluation_periods,omitempty"`
	Threshold          *float64            `json:"threshold,omitempty"`
	ComparisonOperator *ComparisonOperator `json:"comparison_operator,omitempty"`
	TreatMissingData   *string             `json:"treat_missing_data,omitempty"`
	AlarmActions       []string            `json:"alarm_actions,omitempty"`
}

// DefaultSettings returns the stack-wide alarm defaults.
func DefaultSettings() Settings {
	return Settings{
		Period:             300,
		EvaluationPeriods:  2,
		Threshold:          1,
		ComparisonOperator: GreaterThanOrEqualToThreshold,
		TreatMissingData:   "notBreaching",
	}
}

// Merge applies overrides on top of the settings and returns the result.
func (s Settings) Merge(o Overrides) Settings {
	s.Period = contract.Coalesce(o.Period, s.Period)
	s.EvaluationPeriods = contract.Coalesce(o.EvaluationPeriods, s.EvaluationPeriods)
	s.Threshold = contract.Coalesce(o.Threshold, s.Threshold)
	s.ComparisonOperator = contract.Coalesce(o.ComparisonOperator, s.ComparisonOperator)
	s.TreatMissingData = contract.Coalesce(o.TreatMissingData, s.TreatMissingData)
	if len(o.AlarmActions) > 0 {
		s.AlarmActions = o.AlarmActions
	}
	return s
}

// Validate checks the merged settings.
func (s Settings) Validate() error {
	return contract.Struct(s).Err()
}

// Alarm is a fully-derived metric alarm declaration.
type Alarm struct {
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace"`
	MetricName string            `json:"metric_name"`
	Statistic  string            `json:"statistic"`
	Dimensions map[string]string `json:"dimensions,omitempty"`
	Settings
}

// Dimension derivation per service. Names match the CloudWatch metric
// dimension keys for each namespace.

// ForLambdaFunction returns the dimensions of AWS/Lambda metrics.
func ForLambdaFunction(functionName string) map[string]string {
	return map[string]string{"FunctionName": functionName}
}

// ForDynamoDBTable returns the dimensions of AWS/DynamoDB table metrics.
func ForDynamoDBTable(tableName string) map[string]string {
	return map[string]string{"TableName": tableName}
}

// ForDynamoDBIndex returns the dimensions of AWS/DynamoDB GSI metrics.
func ForDynamoDBIndex(tableName, indexName string) map[string]string {
	return map[string]string{"TableName": tableName, "GlobalSecondaryIndexName": indexName}
}

// ForDistribution returns the dimensions of AWS/CloudFront metrics.
// CloudFront metrics live in us-east-1 with a fixed Region dimension.
func ForDistribution(distributionID string) map[string]string {
	return map[string]string{"DistributionId": distributionID, "Region": "Global"}
}

// ForAPIStage returns the dimensions of AWS/ApiGateway stage metrics.
func ForAPIStage(apiName, stage string) map[string]string {
	return map[string]string{"ApiName": apiName, "Stage": stage}
}

// ForStateMachine returns the dimensions of AWS/States metrics.
func ForStateMachine(stateMachineARN string) map[string]string {
	return map[string]string{"StateMachineArn": stateMachineARN}
}

// ForTopic returns the dimensions of AWS/SNS metrics.
func ForTopic(topicName string) map[string]string {
	return map[string]string{"TopicName": topicName}
}
