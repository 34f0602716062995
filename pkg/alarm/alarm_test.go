package alarm

import (
	"reflect"
	"testing"
)

func TestMerge(t *testing.T) {
	period := 60
	threshold := 5.0
	op := LessThanThreshold

	merged := DefaultSettings().Merge(Overrides{
		Period:             &period,
		Threshold:          &threshold,
		ComparisonOperator: &op,
		AlarmActions:       []string{"arn:aws:sns:eu-west-1:123456789012:alerts"},
	})

	if merged.Period != 60 {
		t.Errorf("Period = %d, want 60", merged.Period)
	}
	if merged.Threshold != 5.0 {
		t.Errorf("Threshold = %v, want 5", merged.Threshold)
	}
	if merged.ComparisonOperator != LessThanThreshold {
		t.Errorf("ComparisonOperator = %q, want LessThanThreshold", merged.ComparisonOperator)
	}
	// Fields without overrides keep their defaults.
	if merged.EvaluationPeriods != 2 {
		t.Errorf("EvaluationPeriods = %d, want default 2", merged.EvaluationPeriods)
	}
	if merged.TreatMissingData != "notBreaching" {
		t.Errorf("TreatMissingData = %q, want default notBreaching", merged.TreatMissingData)
	}
	if len(merged.AlarmActions) != 1 {
		t.Errorf("AlarmActions not applied: %v", merged.AlarmActions)
	}
}

func TestMergeEmptyOverrides(t *testing.T) {
	merged := DefaultSettings().Merge(Overrides{})
	if !reflect.DeepEqual(merged, DefaultSettings()) {
		t.Errorf("Empty overrides must preserve defaults, got %+v", merged)
	}
}

func TestMergeExplicitZero(t *testing.T) {
	threshold := 0.0
	merged := DefaultSettings().Merge(Overrides{Threshold: &threshold})
	if merged.Threshold != 0 {
		t.Errorf("Explicit zero override lost, got %v", merged.Threshold)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		wantErr  bool
	}{
		{
			name:     "defaults are valid",
			settings: DefaultSettings(),
		},
		{
			name: "period too small",
			settings: func() Settings {
				s := DefaultSettings()
				s.Period = 5
				return s
			}(),
			wantErr: true,
		},
		{
			name: "bad operator",
			settings: func() Settings {
				s := DefaultSettings()
				s.ComparisonOperator = "Equals"
				return s
			}(),
			wantErr: true,
		},
		{
			name: "bad missing data mode",
			settings: func() Settings {
				s := DefaultSettings()
				s.TreatMissingData = "panic"
				return s
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.settings.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestDimensions(t *testing.T) {
	if d := ForDynamoDBIndex("orders", "by-customer"); d["TableName"] != "orders" || d["GlobalSecondaryIndexName"] != "by-customer" {
		t.Errorf("ForDynamoDBIndex = %v", d)
	}
	if d := ForDistribution("E123"); d["Region"] != "Global" {
		t.Errorf("ForDistribution must pin the Global region dimension, got %v", d)
	}
}
