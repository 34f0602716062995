package route53

import (
	"testing"

	"github.com/stackform/stackform/pkg/contract"
)

var testEnv = contract.Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"}

func intp(v int) *int { return &v }

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

func TestZoneValidate(t *testing.T) {
	c := &ZoneConfig{Name: "example.com"}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}

	c = &ZoneConfig{Name: "example.com", VPCAssociations: []VPCAssociation{
		{VPCID: "vpc-123"},
		{VPCID: "vpc-123"},
	}}
	hasIssue(t, c.Validate(), "vpc_associations[1].vpc_id", contract.CodeConflict)
}

func TestZoneOutputs(t *testing.T) {
	c := &ZoneConfig{Name: "example.com"}
	out := c.Outputs(testEnv)
	if out["zone_id"] != "${aws_route53_zone.example.com.zone_id}" {
		t.Errorf("zone_id = %q", out["zone_id"])
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name   string
		config RecordConfig
		path   string
		code   contract.Code
	}{
		{
			name:   "unsupported type",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "SPF", TTL: intp(300), Records: []string{"x"}},
			path:   "type",
			code:   contract.CodeInvalid,
		},
		{
			name: "alias with ttl",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", TTL: intp(300),
				Alias: &Alias{Name: "d123.cloudfront.net", ZoneID: "Z2FDTNDATAQYW2"}},
			path: "ttl",
			code: contract.CodeConflict,
		},
		{
			name: "alias with values",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", Records: []string{"1.2.3.4"},
				Alias: &Alias{Name: "d123.cloudfront.net", ZoneID: "Z2FDTNDATAQYW2"}},
			path: "records",
			code: contract.CodeConflict,
		},
		{
			name: "cname alias",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "CNAME",
				Alias: &Alias{Name: "d123.cloudfront.net", ZoneID: "Z2FDTNDATAQYW2"}},
			path: "type",
			code: contract.CodeInvalid,
		},
		{
			name:   "plain record without ttl",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", Records: []string{"1.2.3.4"}},
			path:   "ttl",
			code:   contract.CodeRequired,
		},
		{
			name:   "plain record without values",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", TTL: intp(300)},
			path:   "records",
			code:   contract.CodeRequired,
		},
		{
			name: "weight without identifier",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", TTL: intp(300),
				Records: []string{"1.2.3.4"}, Weight: intp(10)},
			path: "set_identifier",
			code: contract.CodeRequired,
		},
		{
			name: "weight out of range",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", TTL: intp(300),
				Records: []string{"1.2.3.4"}, SetIdentifier: "eu", Weight: intp(300)},
			path: "weight",
			code: contract.CodeRange,
		},
		{
			name: "cloudfront alias with wrong hosted zone",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A",
				Alias: &Alias{Name: "d123.cloudfront.net", ZoneID: "Z0000000000000"}},
			path: "alias.zone_id",
			code: contract.CodeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hasIssue(t, tt.config.Validate(), tt.path, tt.code)
		})
	}
}

func TestRecordValidateOK(t *testing.T) {
	tests := []struct {
		name   string
		config RecordConfig
	}{
		{
			name:   "plain A record",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", TTL: intp(300), Records: []string{"1.2.3.4"}},
		},
		{
			name: "alias A record",
			config: RecordConfig{ZoneID: "${module.zone.zone_id}", Name: "www.example.com", Type: "A",
				Alias: &Alias{Name: "d123.cloudfront.net", ZoneID: "Z2FDTNDATAQYW2", EvaluateTargetHealth: true}},
		},
		{
			name: "weighted record",
			config: RecordConfig{ZoneID: "Z1", Name: "api.example.com", Type: "A", TTL: intp(60),
				Records: []string{"1.2.3.4"}, SetIdentifier: "eu", Weight: intp(100)},
		},
		{
			name: "cloudfront alias with trailing dot",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A",
				Alias: &Alias{Name: "d123.cloudfront.net.", ZoneID: "Z2FDTNDATAQYW2"}},
		},
		{
			name: "cloudfront alias with referenced hosted zone",
			config: RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A",
				Alias: &Alias{Name: "${module.cdn.domain_name}.cloudfront.net", ZoneID: "${module.cdn.hosted_zone_id}"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); err != nil {
				t.Errorf("Unexpected issues: %v", err)
			}
		})
	}
}

func TestRecordResources(t *testing.T) {
	c := &RecordConfig{ZoneID: "Z1", Name: "www.example.com", Type: "A", TTL: intp(60), Records: []string{"1.2.3.4"}}
	resources := c.Resources(testEnv)
	if resources[0].Name != "www.example.com-A" {
		t.Errorf("Resource name = %q", resources[0].Name)
	}
	if resources[0].Attributes["ttl"] != 60 {
		t.Errorf("ttl = %v", resources[0].Attributes["ttl"])
	}
}
