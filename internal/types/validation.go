package types

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)
	slugPattern     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// RegisterValidations adds the "username" and "slug" tags to v.
func RegisterValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
}

// TagRecord is one row of a tag catalog import
type TagRecord struct {
	Name  string `validate:"required,max=32"`
	Color string `validate:"required,hexcolor,len=7"`
	Slug  string `validate:"required,max=50,slug"`
}

// IngredientRecord is one row of an ingredient catalog import
type IngredientRecord struct {
	Name            string `validate:"required,max=200"`
	MeasurementUnit string `validate:"required,max=200"`
}
