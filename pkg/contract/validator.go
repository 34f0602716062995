package contract

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance. Custom tags cover AWS-specific syntax that the
// stock tag set has no notion of.
var validate = newValidator()

var (
	regionPattern  = regexp.MustCompile(`^[a-z]{2}(-[a-z]+)+-\d$`)
	accountPattern = regexp.MustCompile(`^\d{12}$`)
	namePattern    = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "aws_region", func(fl validator.FieldLevel) bool {
		return regionPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "aws_account", func(fl validator.FieldLevel) bool {
		return accountPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "awsname", func(fl validator.FieldLevel) bool {
		return namePattern.MatchString(fl.Field().String())
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// Struct runs tag-level validation and converts the result into Issues.
// Cross-field preconditions stay in each module's Validate method; this
// covers the single-field constraints expressed as struct tags.
func Struct(s interface{}) Issues {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		var issues Issues
		issues.Invalidf("", "%v", err)
		return issues
	}

	var issues Issues
	for _, fe := range verrs {
		issues.Add(Issue{
			Path:    trimNamespace(fe.Namespace()),
			Code:    codeForTag(fe.Tag()),
			Message: messageForError(fe),
		})
	}
	return issues
}

// trimNamespace drops the root struct name from a validator namespace,
// leaving the JSON field path.
func trimNamespace(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func codeForTag(tag string) Code {
	switch tag {
	case "required", "required_with", "required_without":
		return CodeRequired
	case "excluded_with", "excluded_without":
		return CodeForbidden
	case "min", "max", "gt", "gte", "lt", "lte", "len":
		return CodeRange
	case "aws_region", "aws_account", "awsname", "hostname", "fqdn", "alphanum":
		return CodePattern
	default:
		return CodeInvalid
	}
}

func messageForError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "url":
		return "must be a valid URL"
	case "aws_region":
		return "must be a valid region (e.g. us-east-1)"
	case "aws_account":
		return "must be a 12-digit account ID"
	case "awsname":
		return "must contain only alphanumerics, dots, underscores, and hyphens"
	default:
		return "failed '" + fe.Tag() + "' constraint"
	}
}
