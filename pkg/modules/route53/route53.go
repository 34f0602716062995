// Package route53 declares the hosted zone and record set modules. Zone
// and record creation are deliberately split so record modules can depend
// on resources that themselves depend on the zone without creating a
// reference cycle.
package route53

import (
	"strconv"
	"strings"

	"github.com/stackform/stackform/pkg/contract"
	"github.com/stackform/stackform/pkg/modules/cloudfront"
)

// Module kind identifiers.
const (
	ZoneKind   = "aws.route53.zone"
	RecordKind = "aws.route53.record"
)

// recordTypes is the accepted record type set.
var recordTypes = map[string]bool{
	"A": true, "AAAA": true, "CNAME": true, "MX": true, "TXT": true,
	"NS": true, "SOA": true, "SRV": true, "PTR": true, "CAA": true,
}

// VPCAssociation associates a private zone with a VPC.
type VPCAssociation struct {
	// VPCID is the VPC to associate.
	VPCID string `json:"vpc_id" validate:"required"`

	// VPCRegion defaults to the stack region.
	VPCRegion string `json:"vpc_region,omitempty" validate:"omitempty,aws_region"`
}

// ZoneConfig is the hosted zone module input schema.
type ZoneConfig struct {
	// Name is the zone apex domain.
	Name string `json:"name" validate:"required,fqdn"`

	// Comment is optional free text.
	Comment string `json:"comment,omitempty" validate:"max=256"`

	// ForceDestroy deletes all records on zone destruction.
	ForceDestroy bool `json:"force_destroy"`

	// VPCAssociations makes the zone private when non-empty.
	VPCAssociations []VPCAssociation `json:"vpc_associations,omitempty" validate:"dive"`

	// Tags are propagated to the zone.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *ZoneConfig) Kind() string { return ZoneKind }

// Validate evaluates the zone preconditions.
func (c *ZoneConfig) Validate() error {
	issues := contract.Struct(c)

	seen := make(map[string]bool)
	for i, assoc := range c.VPCAssociations {
		if seen[assoc.VPCID] {
			issues.Conflictf("vpc_associations["+strconv.Itoa(i)+"].vpc_id", "VPC %q associated more than once", assoc.VPCID)
		}
		seen[assoc.VPCID] = true
	}

	return issues.Err()
}

// Outputs implements contract.Module.
func (c *ZoneConfig) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"zone_id":      contract.Ref("aws_route53_zone", c.Name, "zone_id"),
		"name":         c.Name,
		"name_servers": contract.Ref("aws_route53_zone", c.Name, "name_servers"),
	}
}

// Resources implements contract.Module.
func (c *ZoneConfig) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":          c.Name,
		"force_destroy": c.ForceDestroy,
	}
	if c.Comment != "" {
		attrs["comment"] = c.Comment
	}
	if len(c.VPCAssociations) > 0 {
		attrs["vpc"] = c.VPCAssociations
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}
	return []contract.Resource{{
		Type:       "aws_route53_zone",
		Name:       c.Name,
		Attributes: attrs,
	}}
}

// Alias targets another AWS resource by hostname and hosted zone.
type Alias struct {
	// Name is the alias target DNS name.
	Name string `json:"name" validate:"required"`

	// ZoneID is the alias target hosted zone ID.
	ZoneID string `json:"zone_id" validate:"required"`

	// EvaluateTargetHealth propagates target health to the record.
	EvaluateTargetHealth bool `json:"evaluate_target_health"`
}

// RecordConfig is the record set module input schema. A record is either
// an alias or a plain set of values with a TTL; never both.
type RecordConfig struct {
	// ZoneID is the hosted zone reference, typically wired from the zone
	// module's zone_id output.
	ZoneID string `json:"zone_id" validate:"required"`

	// Name is the record name.
	Name string `json:"name" validate:"required"`

	// Type is the record type.
	Type string `json:"type" validate:"required"`

	// TTL is required for non-alias records.
	TTL *int `json:"ttl,omitempty"`

	// Records lists the record values for non-alias records.
	Records []string `json:"records,omitempty"`

	// Alias targets another resource instead of literal values.
	Alias *Alias `json:"alias,omitempty"`

	// SetIdentifier distinguishes records sharing name and type.
	SetIdentifier string `json:"set_identifier,omitempty"`

	// Weight enables weighted routing. Requires a set identifier.
	Weight *int `json:"weight,omitempty"`
}

// Kind implements contract.Module.
func (c *RecordConfig) Kind() string { return RecordKind }

// Validate evaluates the record preconditions.
func (c *RecordConfig) Validate() error {
	issues := contract.Struct(c)

	if c.Type != "" && !recordTypes[c.Type] {
		issues.Invalidf("type", "unsupported record type %q", c.Type)
	}

	if c.Alias != nil {
		if c.TTL != nil {
			issues.Conflictf("ttl", "alias records must not set a TTL")
		}
		if len(c.Records) > 0 {
			issues.Conflictf("records", "alias records must not list values")
		}
		if c.Type != "" && c.Type != "A" && c.Type != "AAAA" {
			issues.Invalidf("type", "alias records must be type A or AAAA")
		}
		// All CloudFront distributions share one fixed hosted zone.
		target := strings.TrimSuffix(c.Alias.Name, ".")
		if strings.HasSuffix(target, ".cloudfront.net") &&
			!contract.IsReference(c.Alias.ZoneID) && c.Alias.ZoneID != cloudfront.HostedZoneID {
			issues.Invalidf("alias.zone_id", "CloudFront alias targets use the fixed hosted zone %s", cloudfront.HostedZoneID)
		}
	} else {
		if c.TTL == nil {
			issues.Requiredf("ttl", "TTL is required for non-alias records")
		} else if *c.TTL < 0 {
			issues.Rangef("ttl", "must be >= 0")
		}
		if len(c.Records) == 0 {
			issues.Requiredf("records", "at least one value is required for non-alias records")
		}
	}

	if c.Weight != nil {
		if c.SetIdentifier == "" {
			issues.Requiredf("set_identifier", "weighted records require a set identifier")
		}
		if *c.Weight < 0 || *c.Weight > 255 {
			issues.Rangef("weight", "must be between 0 and 255")
		}
	}

	return issues.Err()
}

// Outputs implements contract.Module.
func (c *RecordConfig) Outputs(env contract.Env) map[string]string {
	return map[string]string{
		"fqdn": strings.TrimSuffix(c.Name, "."),
	}
}

// Resources implements contract.Module.
func (c *RecordConfig) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"zone_id": c.ZoneID,
		"name":    c.Name,
		"type":    c.Type,
	}
	if c.Alias != nil {
		attrs["alias"] = c.Alias
	} else {
		attrs["ttl"] = contract.Coalesce(c.TTL, 300)
		attrs["records"] = c.Records
	}
	if c.SetIdentifier != "" {
		attrs["set_identifier"] = c.SetIdentifier
	}
	if c.Weight != nil {
		attrs["weighted_routing_policy"] = map[string]interface{}{"weight": *c.Weight}
	}
	return []contract.Resource{{
		Type:       "aws_route53_record",
		Name:       c.Name + "-" + c.Type,
		Attributes: attrs,
	}}
}
