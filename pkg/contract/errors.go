// Package contract defines the module contract shared by all service
// modules: the Module interface, the deployment Env, rendered Resource
// declarations, and the Issue model for static validation findings.
package contract

import (
	"errors"
	"fmt"
	"strings"
)

// Severity classifies a validation finding.
type Severity string

const (
	// SeverityWarning flags configuration that is legal but suspect.
	SeverityWarning Severity = "warning"

	// SeverityError flags configuration the executor must reject.
	SeverityError Severity = "error"
)

// Code identifies the precondition category a finding belongs to.
type Code string

const (
	// CodeRequired marks a field that must be set in this configuration.
	CodeRequired Code = "REQUIRED"

	// CodeForbidden marks a field that must not be set in this configuration.
	CodeForbidden Code = "FORBIDDEN"

	// CodeInvalid marks a value outside its allowed domain.
	CodeInvalid Code = "INVALID"

	// CodeConflict marks mutually exclusive fields set together.
	CodeConflict Code = "CONFLICT"

	// CodeRange marks a numeric value outside its allowed range.
	CodeRange Code = "OUT_OF_RANGE"

	// CodePattern marks a string that fails its syntax pattern.
	CodePattern Code = "PATTERN_MISMATCH"

	// CodeReference marks a cross-reference to something not declared.
	CodeReference Code = "UNRESOLVED_REFERENCE"
)

// Issue is a single validation finding located by field path.
type Issue struct {
	// Path is the JSON path of the offending field (e.g.
	// "origins[2].custom_origin_config").
	Path string `json:"path"`

	// Code is the precondition category.
	Code Code `json:"code"`

	// Message is the human-readable finding.
	Message string `json:"message"`

	// Severity is error unless explicitly downgraded.
	Severity Severity `json:"severity"`
}

// Error implements the error interface.
func (i Issue) Error() string {
	if i.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", i.Code, i.Path, i.Message)
	}
	return fmt.Sprintf("[%s] %s", i.Code, i.Message)
}

// Issues aggregates validation findings for one module configuration.
type Issues []Issue

// Error implements the error interface.
func (is Issues) Error() string {
	if len(is) == 0 {
		return "no validation issues"
	}
	msgs := make([]string, len(is))
	for i, issue := range is {
		msgs[i] = issue.Error()
	}
	return strings.Join(msgs, "; ")
}

// Err returns the list as an error, or nil when it is empty.
func (is Issues) Err() error {
	if len(is) == 0 {
		return nil
	}
	return is
}

// HasErrors reports whether any finding has error severity.
func (is Issues) HasErrors() bool {
	for _, issue := range is {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Add appends a finding.
func (is *Issues) Add(issue Issue) {
	if issue.Severity == "" {
		issue.Severity = SeverityError
	}
	*is = append(*is, issue)
}

// Merge appends all findings from another list.
func (is *Issues) Merge(other Issues) {
	*is = append(*is, other...)
}

// Requiredf records a missing-field finding.
func (is *Issues) Requiredf(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeRequired, Message: fmt.Sprintf(format, args...)})
}

// Forbiddenf records a must-be-unset finding.
func (is *Issues) Forbiddenf(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)})
}

// Invalidf records an out-of-domain finding.
func (is *Issues) Invalidf(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeInvalid, Message: fmt.Sprintf(format, args...)})
}

// Conflictf records a mutual-exclusion finding.
func (is *Issues) Conflictf(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeConflict, Message: fmt.Sprintf(format, args...)})
}

// Rangef records a numeric-range finding.
func (is *Issues) Rangef(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeRange, Message: fmt.Sprintf(format, args...)})
}

// Patternf records a syntax-pattern finding.
func (is *Issues) Patternf(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodePattern, Message: fmt.Sprintf(format, args...)})
}

// Referencef records a dangling cross-reference finding.
func (is *Issues) Referencef(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeReference, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning-severity finding.
func (is *Issues) Warnf(path, format string, args ...interface{}) {
	is.Add(Issue{Path: path, Code: CodeInvalid, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning})
}

// AsIssues extracts an Issues value from an error chain.
func AsIssues(err error) (Issues, bool) {
	var is Issues
	if errors.As(err, &is) {
		return is, true
	}
	return nil, false
}
