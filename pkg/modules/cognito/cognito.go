// Package cognito declares the Cognito user pool module: the pool itself,
// app clients with their OAuth settings, and an optional hosted domain.
package cognito

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/stackform/stackform/pkg/arn"
	"github.com/stackform/stackform/pkg/contract"
)

// Kind is the module kind identifier.
const Kind = "aws.cognito.user_pool"

// domainPrefixPattern is the shape Cognito accepts for hosted domain
// prefixes: lowercase alphanumerics and hyphens, no leading or trailing
// hyphen.
var domainPrefixPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)

// PasswordPolicy constrains user passwords.
type PasswordPolicy struct {
	// MinimumLength is the shortest allowed password.
	MinimumLength int `json:"minimum_length" validate:"gte=6,lte=99"`

	// RequireLowercase requires a lowercase character.
	RequireLowercase bool `json:"require_lowercase"`

	// RequireUppercase requires an uppercase character.
	RequireUppercase bool `json:"require_uppercase"`

	// RequireNumbers requires a digit.
	RequireNumbers bool `json:"require_numbers"`

	// RequireSymbols requires a symbol.
	RequireSymbols bool `json:"require_symbols"`

	// TemporaryPasswordValidityDays bounds admin-created passwords.
	TemporaryPasswordValidityDays int `json:"temporary_password_validity_days,omitempty" validate:"omitempty,gte=1,lte=365"`
}

// Client is an app client on the pool.
type Client struct {
	// Name is the client name, unique within the pool.
	Name string `json:"name" validate:"required,min=1,max=128"`

	// GenerateSecret creates a client secret for confidential clients.
	GenerateSecret bool `json:"generate_secret"`

	// AllowedOAuthFlows lists the enabled OAuth grant types.
	AllowedOAuthFlows []string `json:"allowed_oauth_flows,omitempty" validate:"dive,oneof=code implicit client_credentials"`

	// AllowedOAuthScopes lists the grantable scopes.
	AllowedOAuthScopes []string `json:"allowed_oauth_scopes,omitempty"`

	// CallbackURLs are the allowed sign-in redirect targets.
	CallbackURLs []string `json:"callback_urls,omitempty" validate:"max=100"`

	// LogoutURLs are the allowed sign-out redirect targets.
	LogoutURLs []string `json:"logout_urls,omitempty" validate:"max=100"`

	// AccessTokenValidityMinutes bounds issued access tokens.
	AccessTokenValidityMinutes int `json:"access_token_validity_minutes,omitempty" validate:"omitempty,gte=5,lte=1440"`

	// RefreshTokenValidityDays bounds issued refresh tokens.
	RefreshTokenValidityDays int `json:"refresh_token_validity_days,omitempty" validate:"omitempty,gte=1,lte=3650"`
}

// DomainConfig is the hosted UI domain for the pool.
type DomainConfig struct {
	// CreateDomain provisions the hosted domain.
	CreateDomain bool `json:"create_domain"`

	// DomainPrefix is the Cognito-hosted prefix, required when the
	// domain is created without a custom domain.
	DomainPrefix string `json:"domain_prefix,omitempty"`

	// CustomDomain serves the hosted UI on an owned domain.
	CustomDomain string `json:"custom_domain,omitempty" validate:"omitempty,fqdn"`

	// CertificateARN is the ACM certificate for the custom domain.
	CertificateARN string `json:"certificate_arn,omitempty"`
}

// Config is the user pool module input schema.
type Config struct {
	// Name is the pool name.
	Name string `json:"name" validate:"required,min=1,max=128"`

	// PasswordPolicy constrains user passwords.
	PasswordPolicy PasswordPolicy `json:"password_policy"`

	// MFAConfiguration enables multi-factor authentication.
	MFAConfiguration string `json:"mfa_configuration,omitempty" validate:"omitempty,oneof=OFF ON OPTIONAL"`

	// AutoVerifiedAttributes are verified at sign-up.
	AutoVerifiedAttributes []string `json:"auto_verified_attributes,omitempty" validate:"dive,oneof=email phone_number"`

	// UsernameAttributes allow signing in with email or phone.
	UsernameAttributes []string `json:"username_attributes,omitempty" validate:"dive,oneof=email phone_number"`

	// Clients are the app clients on the pool.
	Clients []Client `json:"clients,omitempty" validate:"dive"`

	// Domain configures the hosted UI domain.
	Domain *DomainConfig `json:"domain,omitempty"`

	// DeletionProtection guards against accidental pool deletion.
	DeletionProtection bool `json:"deletion_protection"`

	// Tags are propagated to the pool.
	Tags map[string]string `json:"tags,omitempty"`
}

// Kind implements contract.Module.
func (c *Config) Kind() string { return Kind }

// Validate evaluates the user pool preconditions.
func (c *Config) Validate() error {
	issues := contract.Struct(c)

	seen := make(map[string]bool)
	for i, client := range c.Clients {
		p := "clients[" + strconv.Itoa(i) + "]"
		if seen[client.Name] {
			issues.Conflictf(p+".name", "client %q declared more than once", client.Name)
		}
		seen[client.Name] = true
		validateClient(&issues, p, client)
	}

	if c.Domain != nil {
		c.validateDomain(&issues)
	}

	return issues.Err()
}

func validateClient(issues *contract.Issues, path string, client Client) {
	hasCredentials := false
	hasUserFlow := false
	for _, flow := range client.AllowedOAuthFlows {
		switch flow {
		case "client_credentials":
			hasCredentials = true
		case "code", "implicit":
			hasUserFlow = true
		}
	}

	// client_credentials is machine-to-machine; it cannot share a client
	// with browser redirect flows.
	if hasCredentials && hasUserFlow {
		issues.Conflictf(path+".allowed_oauth_flows", "client_credentials cannot be combined with code or implicit flows")
	}
	if len(client.AllowedOAuthFlows) > 0 && len(client.AllowedOAuthScopes) == 0 {
		issues.Requiredf(path+".allowed_oauth_scopes", "OAuth flows require at least one scope")
	}
	if hasUserFlow && len(client.CallbackURLs) == 0 {
		issues.Requiredf(path+".callback_urls", "code and implicit flows require a callback URL")
	}
	if hasCredentials && !client.GenerateSecret {
		issues.Requiredf(path+".generate_secret", "client_credentials requires a client secret")
	}

	for j, u := range client.CallbackURLs {
		validateRedirectURL(issues, path+".callback_urls["+strconv.Itoa(j)+"]", u)
	}
	for j, u := range client.LogoutURLs {
		validateRedirectURL(issues, path+".logout_urls["+strconv.Itoa(j)+"]", u)
	}
}

// validateRedirectURL enforces Cognito's redirect target rules: an absolute
// URI with no fragment, https except for the localhost development carve-out
// and custom app schemes.
func validateRedirectURL(issues *contract.Issues, path, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		issues.Invalidf(path, "redirect URL %q must be an absolute URI", raw)
		return
	}
	if u.Fragment != "" {
		issues.Invalidf(path, "redirect URL %q must not contain a fragment", raw)
	}
	if u.Scheme == "http" && u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		issues.Invalidf(path, "redirect URL %q must use https outside localhost", raw)
	}
}

func (c *Config) validateDomain(issues *contract.Issues) {
	d := c.Domain

	if d.CreateDomain && d.CustomDomain == "" {
		if d.DomainPrefix == "" {
			issues.Requiredf("domain.domain_prefix", "creating a hosted domain requires a domain_prefix")
		} else if !domainPrefixPattern.MatchString(d.DomainPrefix) {
			issues.Patternf("domain.domain_prefix", "domain prefix %q must be lowercase alphanumerics and hyphens", d.DomainPrefix)
		}
	}
	if !d.CreateDomain && (d.DomainPrefix != "" || d.CustomDomain != "") {
		issues.Forbiddenf("domain", "domain settings require create_domain")
	}
	if d.CustomDomain != "" {
		if d.CertificateARN == "" {
			issues.Requiredf("domain.certificate_arn", "a custom domain requires an ACM certificate")
		} else if !contract.IsReference(d.CertificateARN) && !arn.IsService(d.CertificateARN, "acm") {
			issues.Invalidf("domain.certificate_arn", "certificate must be an ACM certificate ARN")
		}
	}
	if d.CustomDomain != "" && d.DomainPrefix != "" {
		issues.Conflictf("domain.domain_prefix", "domain_prefix and custom_domain are mutually exclusive")
	}
}

// Outputs implements contract.Module.
func (c *Config) Outputs(env contract.Env) map[string]string {
	out := map[string]string{
		"user_pool_id":  contract.Ref("aws_cognito_user_pool", c.Name, "id"),
		"user_pool_arn": contract.Ref("aws_cognito_user_pool", c.Name, "arn"),
		"endpoint":      contract.Ref("aws_cognito_user_pool", c.Name, "endpoint"),
	}
	for _, client := range c.Clients {
		out["client_id_"+client.Name] = contract.Ref("aws_cognito_user_pool_client", client.Name, "id")
	}
	if c.Domain != nil && c.Domain.CreateDomain {
		if c.Domain.CustomDomain != "" {
			out["domain"] = c.Domain.CustomDomain
		} else if c.Domain.DomainPrefix != "" {
			out["domain"] = c.Domain.DomainPrefix + ".auth." + env.Region + ".amazoncognito.com"
		}
	}
	return out
}

// Resources implements contract.Module.
func (c *Config) Resources(env contract.Env) []contract.Resource {
	attrs := map[string]interface{}{
		"name":            c.Name,
		"password_policy": c.PasswordPolicy,
	}
	if c.MFAConfiguration != "" {
		attrs["mfa_configuration"] = c.MFAConfiguration
	}
	if len(c.AutoVerifiedAttributes) > 0 {
		attrs["auto_verified_attributes"] = c.AutoVerifiedAttributes
	}
	if len(c.UsernameAttributes) > 0 {
		attrs["username_attributes"] = c.UsernameAttributes
	}
	if c.DeletionProtection {
		attrs["deletion_protection"] = "ACTIVE"
	}
	if len(c.Tags) > 0 {
		attrs["tags"] = c.Tags
	}

	resources := []contract.Resource{
		{Type: "aws_cognito_user_pool", Name: c.Name, Attributes: attrs},
	}
	for _, client := range c.Clients {
		resources = append(resources, contract.Resource{
			Type: "aws_cognito_user_pool_client",
			Name: client.Name,
			Attributes: map[string]interface{}{
				"name":                 client.Name,
				"user_pool_id":         contract.Ref("aws_cognito_user_pool", c.Name, "id"),
				"generate_secret":      client.GenerateSecret,
				"allowed_oauth_flows":  client.AllowedOAuthFlows,
				"allowed_oauth_scopes": client.AllowedOAuthScopes,
				"callback_urls":        client.CallbackURLs,
				"logout_urls":          client.LogoutURLs,
			},
		})
	}
	if c.Domain != nil && c.Domain.CreateDomain {
		domainAttrs := map[string]interface{}{
			"user_pool_id": contract.Ref("aws_cognito_user_pool", c.Name, "id"),
		}
		if c.Domain.CustomDomain != "" {
			domainAttrs["domain"] = c.Domain.CustomDomain
			domainAttrs["certificate_arn"] = c.Domain.CertificateARN
		} else {
			domainAttrs["domain"] = c.Domain.DomainPrefix
		}
		resources = append(resources, contract.Resource{
			Type:       "aws_cognito_user_pool_domain",
			Name:       c.Name,
			Attributes: domainAttrs,
		})
	}
	return resources
}
