// Package ses declares the SES domain identity module: the identity, DKIM
// signing, an optional custom MAIL FROM domain, and a configuration set.
package ses

import (
	"strings"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.ses.domain_identity"

// Config is the identity module input schema.
type Config struct {
	// Domain is the domain to verify.
	Domain string `json:"domain" validate:"required,fqdn"`

	// EnableDKIM provisions Easy DKIM signing tokens.
	EnableDKIM bool `json:"enable_dkim"`

	// MailFromDomain is a custom MAIL FROM domain. It must be a proper
	// subdomain of the identity so bounce handling stays in-domain.
	MailFromDomain string `json:"mail_from_domain,omitempty" validate:"omitempty,fqdn"`

	// BehaviorOnMXFailure selects what SES does when the MAIL FROM MX
	// record is missing.
	BehaviorOnMXFailure string `json:"behavior_on_mx_failure,omitempty" validate:"omitempty,oneof=UseDefaultValue RejectMessage"`

	// ConfigurationSetName creates a configuration set for the identity.
	ConfigurationSetName string `json:"configuration_set_name,omitempty" validate:"omitempty,awsname"`

	// Tags are propagated where SES supports them.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the identity preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	if c.MailFromDomain != "" {
		if c.MailFromDomain == c.Domain {
			issues.Invalidf("mail_from_domain", "MAIL FROM domain must differ from the identity domain")
		} else if !strings.HasSuffix(c.MailFromDomain, "."+c.Domain) {
			issues.Invalidf("mail_from_domain", "MAIL FROM domain %q must be a subdomain of %q", c.MailFromDomain, c.Domain)
		}
	}
	if c.BehaviorOnMXFailure != "" && c.MailFromDomain == "" {
		issues.Forbiddenf("behavior_on_mx_failure", "MX failure behavior requires a MAIL FROM domain")
	}

	return issues.Err()
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	out := map[string]string{
		"domain":             c.Domain,
		"identity_arn":       arn.SESIdentity(env, c.Domain),
		"verification_token": contract.Ref("aws_ses_domain_identity", c.Domain, "verification_token"),
	}
	if c.EnableDKIM {
		out["dkim_tokens"] = contract.Ref("aws_ses_domain_dkim", c.Domain, "dkim_tokens")
	}
	if c.MailFromDomain != "" {
		out["mail_from_domain"] = c.MailFromDomain
	}
	if c.ConfigurationSetName != "" {
		out["configuration_set"] = c.ConfigurationSetName
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	resources := []contract.Resource{
		{Type: "aws_ses_domain_identity", Name: c.Domain, Attributes: map[string]interface{}{
			"domain": c.Domain,
		}},
	}
	if c.EnableDKIM {
		resources = append(resources, contract.Resource{
			Type: "aws_ses_domain_dkim",
			Name: c.Domain,
			Attributes: map[string]interface{}{
				"domain": c.Domain,
			},
		})
	}
	if c.MailFromDomain != "" {
		attrs := map[string]interface{}{
			"domain":           c.Domain,
			"mail_from_domain": c.MailFromDomain,
		}
		if c.BehaviorOnMXFailure != "" {
			attrs["behavior_on_mx_failure"] = c.BehaviorOnMXFailure
		}
		resources = append(resources, contract.Resource{
			Type:       "aws_ses_domain_mail_from",
			Name:       c.Domain,
			Attributes: attrs,
		})
	}
	if c.ConfigurationSetName != "" {
		resources = append(resources, contract.Resource{
			Type: "aws_ses_configuration_set",
			Name: c.ConfigurationSetName,
			Attributes: map[string]interface{}{
				"name": c.ConfigurationSetName,
			},
		})
	}
	return resources
}
