package contract

import (
	"testing"
)

func TestEnvWithDefaults(t *testing.T) {
	env := Env{Region: "eu-west-1", AccountID: "123456789012"}.WithDefaults()
	if env.Partition != "aws" {
		t.Errorf("Expected default partition aws, got %q", env.Partition)
	}

	env = Env{Partition: "aws-cn", Region: "cn-north-1", AccountID: "123456789012"}.WithDefaults()
	if env.Partition != "aws-cn" {
		t.Errorf("Partition should not be overwritten, got %q", env.Partition)
	}
}

func TestEnvValidation(t *testing.T) {
	tests := []struct {
		name    string
		env     Env
		wantErr bool
	}{
		{
			name: "valid",
			env:  Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"},
		},
		{
			name:    "bad region",
			env:     Env{Partition: "aws", Region: "europe", AccountID: "123456789012"},
			wantErr: true,
		},
		{
			name:    "short account",
			env:     Env{Partition: "aws", Region: "eu-west-1", AccountID: "1234"},
			wantErr: true,
		},
		{
			name:    "bad partition",
			env:     Env{Partition: "gcp", Region: "eu-west-1", AccountID: "123456789012"},
			wantErr: true,
		},
		{
			name:    "missing region",
			env:     Env{Partition: "aws", AccountID: "123456789012"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := Struct(&tt.env)
			if tt.wantErr && !issues.HasErrors() {
				t.Error("Expected validation errors, got none")
			}
			if !tt.wantErr && issues.HasErrors() {
				t.Errorf("Unexpected validation errors: %v", issues)
			}
		})
	}
}

func TestRef(t *testing.T) {
	ref := Ref("aws_dynamodb_table", "orders", "stream_arn")
	want := "${aws_dynamodb_table.orders.stream_arn}"
	if ref != want {
		t.Errorf("Ref = %q, want %q", ref, want)
	}
}

func TestIsReference(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"${aws_kms_key.this.arn}", true},
		{"prefix-${module.db.table_arn}", true},
		{"arn:aws:kms:eu-west-1:123456789012:key/abc", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsReference(tt.value); got != tt.want {
			t.Errorf("IsReference(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestIssuesSeverity(t *testing.T) {
	var issues Issues

	issues.Warnf("field", "suspicious but legal")
	if issues.HasErrors() {
		t.Error("Warnings alone should not count as errors")
	}
	if issues.Err() == nil {
		t.Error("Non-empty issues should still surface as an error value")
	}

	issues.Requiredf("other", "missing")
	if !issues.HasErrors() {
		t.Error("Expected HasErrors after adding an error finding")
	}
	if len(issues) != 2 {
		t.Errorf("Expected 2 issues, got %d", len(issues))
	}
}

func TestIssuesErrNilWhenEmpty(t *testing.T) {
	var issues Issues
	if issues.Err() != nil {
		t.Error("Empty issues must return a nil error")
	}
}

func TestAsIssues(t *testing.T) {
	var issues Issues
	issues.Invalidf("x", "bad value")

	got, ok := AsIssues(issues.Err())
	if !ok {
		t.Fatal("AsIssues failed to extract Issues")
	}
	if len(got) != 1 || got[0].Code != CodeInvalid {
		t.Errorf("Unexpected extracted issues: %v", got)
	}
}

func TestIssueError(t *testing.T) {
	issue := Issue{Path: "stream_view_type", Code: CodeRequired, Message: "required when streaming"}
	want := "[REQUIRED] stream_view_type: required when streaming"
	if issue.Error() != want {
		t.Errorf("Error() = %q, want %q", issue.Error(), want)
	}
}

func TestCoalesce(t *testing.T) {
	override := 600
	if got := Coalesce(&override, 300); got != 600 {
		t.Errorf("Coalesce with override = %d, want 600", got)
	}
	if got := Coalesce[int](nil, 300); got != 300 {
		t.Errorf("Coalesce with nil = %d, want 300", got)
	}
}

func TestMergeTags(t *testing.T) {
	base := map[string]string{"env": "prod", "owner": "platform"}
	extra := map[string]string{"owner": "data", "team": "orders"}

	merged := MergeTags(base, extra)
	if merged["owner"] != "data" {
		t.Errorf("Override should win, got %q", merged["owner"])
	}
	if merged["env"] != "prod" || merged["team"] != "orders" {
		t.Errorf("Unexpected merge result: %v", merged)
	}
	if base["owner"] != "platform" {
		t.Error("MergeTags must not mutate its input")
	}
}
