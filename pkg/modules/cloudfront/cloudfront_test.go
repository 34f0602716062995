package cloudfront

import (
	"testing"

	"github.com/stackform/stackform/pkg/contract"
)

var testEnv = contract.Env{Partition: "aws", Region: "eu-west-1", AccountID: "123456789012"}

func validBehavior(origin string) CacheBehavior {
	return CacheBehavior{
		TargetOriginID:       origin,
		ViewerProtocolPolicy: "redirect-to-https",
		AllowedMethods:       []string{"GET", "HEAD"},
		CachedMethods:        []string{"GET", "HEAD"},
		MinTTL:               0,
		DefaultTTL:           3600,
		MaxTTL:               86400,
	}
}

func validConfig() *Config {
	return &Config{
		Enabled: true,
		Origins: []Origin{
			{ID: "assets", DomainName: "assets.s3.eu-west-1.amazonaws.com", OriginType: "s3", IsPrivateOrigin: true},
		},
		DefaultCacheBehavior: validBehavior("assets"),
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

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestValidateOrigins(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		code   contract.Code
	}{
		{
			name: "private custom origin",
			mutate: func(c *Config) {
				c.Origins[0].OriginType = "custom"
				c.Origins[0].CustomOriginConfig = &CustomOriginConfig{HTTPPort: 80, HTTPSPort: 443, ProtocolPolicy: "https-only"}
			},
			path: "origins[0].is_private_origin",
			code: contract.CodeInvalid,
		},
		{
			name: "custom origin without config",
			mutate: func(c *Config) {
				c.Origins[0].OriginType = "custom"
				c.Origins[0].IsPrivateOrigin = false
			},
			path: "origins[0].custom_origin_config",
			code: contract.CodeRequired,
		},
		{
			name: "s3 origin with custom config",
			mutate: func(c *Config) {
				c.Origins[0].CustomOriginConfig = &CustomOriginConfig{HTTPPort: 80, HTTPSPort: 443, ProtocolPolicy: "https-only"}
			},
			path: "origins[0].custom_origin_config",
			code: contract.CodeForbidden,
		},
		{
			name: "duplicate origin id",
			mutate: func(c *Config) {
				c.Origins = append(c.Origins, c.Origins[0])
			},
			path: "origins[1].id",
			code: contract.CodeConflict,
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

func TestValidateBehaviors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
		code   contract.Code
	}{
		{
			name: "undeclared target origin",
			mutate: func(c *Config) {
				c.DefaultCacheBehavior.TargetOriginID = "missing"
			},
			path: "default_cache_behavior.target_origin_id",
			code: contract.CodeReference,
		},
		{
			name: "default behavior with path pattern",
			mutate: func(c *Config) {
				c.DefaultCacheBehavior.PathPattern = "/api/*"
			},
			path: "default_cache_behavior.path_pattern",
			code: contract.CodeForbidden,
		},
		{
			name: "ordered behavior without path pattern",
			mutate: func(c *Config) {
				c.OrderedCacheBehaviors = []CacheBehavior{validBehavior("assets")}
			},
			path: "ordered_cache_behaviors[0].path_pattern",
			code: contract.CodeRequired,
		},
		{
			name: "cached method not allowed",
			mutate: func(c *Config) {
				c.DefaultCacheBehavior.AllowedMethods = []string{"GET"}
				c.DefaultCacheBehavior.CachedMethods = []string{"GET", "HEAD"}
			},
			path: "default_cache_behavior.cached_methods",
			code: contract.CodeInvalid,
		},
		{
			name: "ttl ordering",
			mutate: func(c *Config) {
				c.DefaultCacheBehavior.MinTTL = 7200
				c.DefaultCacheBehavior.DefaultTTL = 3600
			},
			path: "default_cache_behavior.default_ttl",
			code: contract.CodeRange,
		},
		{
			name: "duplicate path pattern",
			mutate: func(c *Config) {
				b := validBehavior("assets")
				b.PathPattern = "/api/*"
				c.OrderedCacheBehaviors = []CacheBehavior{b, b}
			},
			path: "ordered_cache_behaviors[1].path_pattern",
			code: contract.CodeConflict,
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

func TestValidateCertificate(t *testing.T) {
	c := validConfig()
	c.Aliases = []string{"cdn.example.com"}
	hasIssue(t, c.Validate(), "viewer_certificate.acm_certificate_arn", contract.CodeRequired)

	c = validConfig()
	c.ViewerCertificate = &ViewerCertificate{ACMCertificateARN: "arn:aws:acm:eu-west-1:123456789012:certificate/abc"}
	hasIssue(t, c.Validate(), "viewer_certificate.acm_certificate_arn", contract.CodeInvalid)

	c = validConfig()
	c.Aliases = []string{"cdn.example.com"}
	c.ViewerCertificate = &ViewerCertificate{ACMCertificateARN: "arn:aws:acm:us-east-1:123456789012:certificate/abc"}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestValidateGeoRestriction(t *testing.T) {
	c := validConfig()
	c.GeoRestrictionType = "whitelist"
	hasIssue(t, c.Validate(), "geo_locations", contract.CodeRequired)

	c = validConfig()
	c.GeoRestrictionType = "whitelist"
	c.GeoLocations = []string{"DE", "FR"}
	if err := c.Validate(); err != nil {
		t.Errorf("Unexpected issues: %v", err)
	}
}

func TestOutputs(t *testing.T) {
	c := validConfig()

	out := c.Outputs(testEnv)
	if out["distribution_id"] != "${aws_cloudfront_distribution.assets.id}" {
		t.Errorf("distribution_id = %q", out["distribution_id"])
	}
	if out["hosted_zone_id"] != HostedZoneID {
		t.Errorf("hosted_zone_id = %q", out["hosted_zone_id"])
	}

	c.Aliases = []string{"cdn.example.com"}
	out = c.Outputs(testEnv)
	if out["domain_name"] != "${aws_cloudfront_distribution.cdn.example.com.domain_name}" {
		t.Errorf("Alias-named distribution, got %q", out["domain_name"])
	}
}
