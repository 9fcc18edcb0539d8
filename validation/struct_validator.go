package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/restkit/errors"
)

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(settingName)
	return v
})

// settingName reports fields by the key they are loaded from, so errors
// point at the YAML or properties entry rather than the Go field.
func settingName(fld reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "":
			continue
		case "-":
			return toSnakeCase(fld.Name)
		default:
			return name
		}
	}
	return toSnakeCase(fld.Name)
}

// Validate checks the `validate` tags of s. Failures are a single
// VALIDATION_ERROR listing every offending field.
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var failures validator.ValidationErrors
	if !stderrors.As(err, &failures) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(failures))
	for i, f := range failures {
		fields[i] = FieldError{Field: fieldPath(f), Message: describe(f)}
	}
	return fieldsError(fields)
}

// fieldPath is the namespace without the root type, e.g. http.timeout.
func fieldPath(f validator.FieldError) string {
	if _, rest, ok := strings.Cut(f.Namespace(), "."); ok {
		return rest
	}
	return f.Field()
}

var tagMessages = map[string]string{
	"required": "is required",
	"url":      "must be a valid URL",
	"min":      "must be at least ",
	"max":      "must be at most ",
	"gte":      "must be greater than or equal to ",
	"lte":      "must be less than or equal to ",
	"oneof":    "must be one of: ",
}

func describe(f validator.FieldError) string {
	msg, ok := tagMessages[f.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.HasSuffix(msg, " ") {
		return msg + f.Param()
	}
	return msg
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
