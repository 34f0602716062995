// Package iam models IAM policy documents as typed values that modules can
// assemble, validate, and marshal to the provider's JSON wire format.
package iam

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/stackform/stackform/pkg/contract"
)

// PolicyVersion is the only policy language version the modules emit.
const PolicyVersion = "2012-10-17"

// Effect is a statement effect.
type Effect string

const (
	// EffectAllow grants the listed actions.
	EffectAllow Effect = "Allow"

	// EffectDeny denies the listed actions.
	EffectDeny Effect = "Deny"
)

// StringList is a policy value that AWS writes either as a JSON string or
// as an array of strings. Unmarshalling accepts both forms; marshalling
// always emits the array form.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	}
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// Statement is a single policy statement.
type Statement struct {
	// Sid is the optional statement identifier.
	Sid string `json:"Sid,omitempty"`

	// Effect is Allow or Deny.
	Effect Effect `json:"Effect"`

	// Action lists the permitted or denied actions.
	Action StringList `json:"Action"`

	// Resource lists the resource ARNs the statement applies to.
	Resource StringList `json:"Resource,omitempty"`

	// Principal identifies who the statement applies to (resource
	// policies only).
	Principal map[string]interface{} `json:"Principal,omitempty"`

	// Condition holds the optional condition block.
	Condition map[string]map[string]interface{} `json:"Condition,omitempty"`
}

// PolicyDocument is a complete IAM policy document.
type PolicyDocument struct {
	// Version is the policy language version.
	Version string `json:"Version"`

	// Statement lists the policy statements.
	Statement []Statement `json:"Statement"`
}

// NewDocument returns an empty document at the current policy version.
func NewDocument() *PolicyDocument {
	return &PolicyDocument{Version: PolicyVersion}
}

// Allow appends an Allow statement.
func (d *PolicyDocument) Allow(sid string, actions, resources []string) *PolicyDocument {
	d.Statement = append(d.Statement, Statement{
		Sid:      sid,
		Effect:   EffectAllow,
		Action:   actions,
		Resource: resources,
	})
	return d
}

// Deny appends a Deny statement.
func (d *PolicyDocument) Deny(sid string, actions, resources []string) *PolicyDocument {
	d.Statement = append(d.Statement, Statement{
		Sid:      sid,
		Effect:   EffectDeny,
		Action:   actions,
		Resource: resources,
	})
	return d
}

// Add appends an arbitrary statement.
func (d *PolicyDocument) Add(s Statement) *PolicyDocument {
	d.Statement = append(d.Statement, s)
	return d
}

// JSON marshals the document to the provider wire format.
func (d *PolicyDocument) JSON() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Validate checks structural invariants of the document.
func (d *PolicyDocument) Validate() error {
	var issues contract.Issues

	if d.Version != PolicyVersion {
		issues.Invalidf("Version", "policy version must be %q", PolicyVersion)
	}
	if len(d.Statement) == 0 {
		issues.Requiredf("Statement", "policy must contain at least one statement")
	}
	for i, s := range d.Statement {
		path := statementPath(i)
		if s.Effect != EffectAllow && s.Effect != EffectDeny {
			issues.Invalidf(path+".Effect", "effect must be Allow or Deny")
		}
		if len(s.Action) == 0 {
			issues.Requiredf(path+".Action", "statement must list at least one action")
		}
		if len(s.Resource) == 0 && len(s.Principal) == 0 {
			issues.Requiredf(path+".Resource", "statement must target a resource or principal")
		}
	}

	return issues.Err()
}

// HasWildcardActions reports whether any Allow statement grants "*" or a
// bare "service:*" action. Used by the built-in policy checks over derived
// role policies.
func (d *PolicyDocument) HasWildcardActions() bool {
	for _, s := range d.Statement {
		if s.Effect != EffectAllow {
			continue
		}
		for _, a := range s.Action {
			if a == "*" || strings.HasSuffix(a, ":*") {
				return true
			}
		}
	}
	return false
}

// Actions returns the deduplicated set of actions across all statements.
func (d *PolicyDocument) Actions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range d.Statement {
		for _, a := range s.Action {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

func statementPath(i int) string {
	return "Statement[" + strconv.Itoa(i) + "]"
}
