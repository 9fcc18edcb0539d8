// Package validation checks client settings and interface declarations.
//
// Struct tag validation (go-playground/validator) is used for settings
// structs loaded from configuration files:
//
//	type Settings struct {
//	    EndPoint string        `mapstructure:"end_point" validate:"required,url"`
//	    Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
//	}
//	err := validation.Validate(settings)
//
// Programmatic validation collects field errors for values that have no
// struct to carry tags, such as declared method names:
//
//	v := validation.New()
//	v.Required("name", decl.Name).Pattern("method.pattern", expr)
//	err := v.Validate()
package validation
