// Package cloudfront declares the CloudFront distribution module. The
// heavy lifting is cross-referencing: every cache behavior must target a
// declared origin, and private origins are constrained to S3.
package cloudfront

import (
	"strconv"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.cloudfront.distribution"

// HostedZoneID is the fixed Route53 hosted zone for all CloudFront
// distributions.
const HostedZoneID = "Z2FDTNDATAQYW2"

// CustomOriginConfig configures a non-S3 origin.
type CustomOriginConfig struct {
	// HTTPPort is the origin HTTP port.
	HTTPPort int `json:"http_port" validate:"gte=1,lte=65535"`

	// HTTPSPort is the origin HTTPS port.
	HTTPSPort int `json:"https_port" validate:"gte=1,lte=65535"`

	// ProtocolPolicy selects how CloudFront connects to the origin.
	ProtocolPolicy string `json:"protocol_policy" validate:"required,oneof=http-only https-only match-viewer"`
}

// Origin declares a content origin.
type Origin struct {
	// ID is the origin identifier referenced by cache behaviors.
	ID string `json:"id" validate:"required,awsname"`

	// DomainName is the origin hostname.
	DomainName string `json:"domain_name" validate:"required,fqdn"`

	// OriginType is "s3" or "custom".
	OriginType string `json:"origin_type" validate:"required,oneof=s3 custom"`

	// IsPrivateOrigin restricts access through origin access control.
	// Private origins must be S3 origins.
	IsPrivateOrigin bool `json:"is_private_origin"`

	// OriginPath prefixes all origin requests.
	OriginPath string `json:"origin_path,omitempty" validate:"omitempty,startswith=/"`

	// CustomOriginConfig is required for custom origins and forbidden
	// for S3 origins.
	CustomOriginConfig *CustomOriginConfig `json:"custom_origin_config,omitempty"`
}

// CacheBehavior maps a path pattern onto an origin.
type CacheBehavior struct {
	// PathPattern scopes the behavior; empty only for the default
	// behavior.
	PathPattern string `json:"path_pattern,omitempty"`

	// TargetOriginID references a declared origin.
	TargetOriginID string `json:"target_origin_id" validate:"required"`

	// ViewerProtocolPolicy controls viewer-side protocol handling.
	ViewerProtocolPolicy string `json:"viewer_protocol_policy" validate:"required,oneof=allow-all redirect-to-https https-only"`

	// AllowedMethods lists the HTTP methods CloudFront forwards.
	AllowedMethods []string `json:"allowed_methods" validate:"required,min=1,dive,oneof=GET HEAD OPTIONS PUT POST PATCH DELETE"`

	// CachedMethods must be a subset of AllowedMethods.
	CachedMethods []string `json:"cached_methods" validate:"required,min=1,dive,oneof=GET HEAD OPTIONS"`

	// MinTTL, DefaultTTL, MaxTTL order the cache windows.
	MinTTL     int `json:"min_ttl" validate:"gte=0"`
	DefaultTTL int `json:"default_ttl" validate:"gte=0"`
	MaxTTL     int `json:"max_ttl" validate:"gte=0"`

	// Compress enables automatic compression.
	Compress bool `json:"compress"`
}

// ViewerCertificate configures TLS for the distribution.
type ViewerCertificate struct {
	// ACMCertificateARN is the us-east-1 certificate for aliases.
	ACMCertificateARN string `json:"acm_certificate_arn,omitempty"`

	// MinimumProtocolVersion sets the TLS floor.
	MinimumProtocolVersion string `json:"minimum_protocol_version,omitempty" validate:"omitempty,oneof=TLSv1.2_2018 TLSv1.2_2019 TLSv1.2_2021"`
}

// Config is the distribution module input schema.
type Config struct {
	// Enabled toggles the distribution.
	Enabled bool `json:"enabled"`

	// Comment is optional free text.
	Comment string `json:"comment,omitempty" validate:"max=128"`

	// Aliases are alternate domain names; they require an ACM
	// certificate.
	Aliases []string `json:"aliases,omitempty" validate:"dive,fqdn"`

	// DefaultRootObject serves when the viewer requests the root URL.
	DefaultRootObject string `json:"default_root_object,omitempty"`

	// Origins lists content origins.
	Origins []Origin `json:"origins" validate:"required,min=1,dive"`

	// DefaultCacheBehavior handles requests matching no ordered behavior.
	DefaultCacheBehavior CacheBehavior `json:"default_cache_behavior"`

	// OrderedCacheBehaviors handle path-scoped requests in order.
	OrderedCacheBehaviors []CacheBehavior `json:"ordered_cache_behaviors,omitempty" validate:"dive"`

	// ViewerCertificate configures TLS.
	ViewerCertificate *ViewerCertificate `json:"viewer_certificate,omitempty"`

	// PriceClass selects the edge location set.
	PriceClass string `json:"price_class,omitempty" validate:"omitempty,oneof=PriceClass_100 PriceClass_200 PriceClass_All"`

	// GeoRestrictionType with GeoLocations restricts viewer countries.
	GeoRestrictionType string   `json:"geo_restriction_type,omitempty" validate:"omitempty,oneof=none whitelist blacklist"`
	GeoLocations       []string `json:"geo_locations,omitempty" validate:"dive,len=2"`

	// Tags are propagated to the distribution.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the distribution preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	originIDs := make(map[string]bool, len(c.Origins))
	for i, o := range c.Origins {
		path := "origins[" + strconv.Itoa(i) + "]"
		if originIDs[o.ID] {
			issues.Conflictf(path+".id", "origin %q declared more than once", o.ID)
		}
		originIDs[o.ID] = true

		if o.IsPrivateOrigin && o.OriginType != "s3" {
			issues.Invalidf(path+".is_private_origin", "private origins must have origin_type \"s3\"")
		}
		switch o.OriginType {
		case "custom":
			if o.CustomOriginConfig == nil {
				issues.Requiredf(path+".custom_origin_config", "custom origins require a custom origin config")
			}
		case "s3":
			if o.CustomOriginConfig != nil {
				issues.Forbiddenf(path+".custom_origin_config", "S3 origins must not set a custom origin config")
			}
		}
	}

	c.validateBehavior(&issues, "default_cache_behavior", c.DefaultCacheBehavior, originIDs, false)
	seenPatterns := make(map[string]bool)
	for i, b := range c.OrderedCacheBehaviors {
		path := "ordered_cache_behaviors[" + strconv.Itoa(i) + "]"
		c.validateBehavior(&issues, path, b, originIDs, true)
		if seenPatterns[b.PathPattern] {
			issues.Conflictf(path+".path_pattern", "path pattern %q declared more than once", b.PathPattern)
		}
		seenPatterns[b.PathPattern] = true
	}

	if len(c.Aliases) > 0 {
		if c.ViewerCertificate == nil || c.ViewerCertificate.ACMCertificateARN == "" {
			issues.Requiredf("viewer_certificate.acm_certificate_arn", "aliases require an ACM certificate")
		}
	}
	if c.ViewerCertificate != nil && c.ViewerCertificate.ACMCertificateARN != "" && !contract.IsReference(c.ViewerCertificate.ACMCertificateARN) {
		parsed, err := arn.Parse(c.ViewerCertificate.ACMCertificateARN)
		if err != nil || parsed.Service != "acm" {
			issues.Invalidf("viewer_certificate.acm_certificate_arn", "must be an ACM certificate ARN")
		} else if parsed.Region != "us-east-1" {
			issues.Invalidf("viewer_certificate.acm_certificate_arn", "CloudFront certificates must live in us-east-1")
		}
	}

	if c.GeoRestrictionType != "" && c.GeoRestrictionType != "none" && len(c.GeoLocations) == 0 {
		issues.Requiredf("geo_locations", "geo restriction %q requires at least one location", c.GeoRestrictionType)
	}

	return issues.Err()
}

// validateBehavior checks a single cache behavior against the origin set.
func (c *Config) validateBehavior(issues *contract.Issues, path string, b CacheBehavior, originIDs map[string]bool, ordered bool) {
	if b.TargetOriginID != "" && !originIDs[b.TargetOriginID] {
		issues.Referencef(path+".target_origin_id", "cache behavior references undeclared origin %q", b.TargetOriginID)
	}
	if ordered && b.PathPattern == "" {
		issues.Requiredf(path+".path_pattern", "ordered cache behaviors require a path pattern")
	}
	if !ordered && b.PathPattern != "" {
		issues.Forbiddenf(path+".path_pattern", "the default cache behavior must not set a path pattern")
	}

	allowed := make(map[string]bool, len(b.AllowedMethods))
	for _, m := range b.AllowedMethods {
		allowed[m] = true
	}
	for _, m := range b.CachedMethods {
		if !allowed[m] {
			issues.Invalidf(path+".cached_methods", "cached method %q is not in allowed_methods", m)
		}
	}

	if b.MinTTL > b.DefaultTTL || b.DefaultTTL > b.MaxTTL {
		issues.Rangef(path+".default_ttl", "TTLs must satisfy min_ttl <= default_ttl <= max_ttl")
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	name := c.name()
	return map[string]string{
		"distribution_id": contract.Ref("aws_cloudfront_distribution", name, "id"),
		"domain_name":     contract.Ref("aws_cloudfront_distribution", name, "domain_name"),
		"hosted_zone_id":  HostedZoneID,
	}
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"enabled":                c.Enabled,
		"origins":                c.Origins,
		"default_cache_behavior": c.DefaultCacheBehavior,
	}
	if len(c.Aliases) > 0 {
		attrs["aliases"] = c.Aliases
	}
	if c.DefaultRootObject != "" {
		attrs["default_root_object"] = c.DefaultRootObject
	}
	if len(c.OrderedCacheBehaviors) > 0 {
		attrs["ordered_cache_behaviors"] = c.OrderedCacheBehaviors
	}
	if c.ViewerCertificate != nil {
		attrs["viewer_certificate"] = c.ViewerCertificate
	}
	if c.PriceClass != "" {
		attrs["price_class"] = c.PriceClass
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}
	return []contract.Resource{{
		Type:       "aws_cloudfront_distribution",
		Name:       c.name(),
		Attributes: attrs,
	}}
}

// name derives a stable declaration name from the first alias or origin.
func (c *Config) name() string {
	if len(c.Aliases) > 0 {
		return c.Aliases[0]
	}
	if len(c.Origins) > 0 {
		return c.Origins[0].ID
	}
	return "distribution"
}
