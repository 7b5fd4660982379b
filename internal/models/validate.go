package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that knows the membership enums and reports
// fields by their form/json names.
func NewValidator() *validator.Validate {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	validate.RegisterValidation("reviewstatus", func(fl validator.FieldLevel) bool {
		return ReviewStatus(fl.Field().String()).Valid()
	})
	validate.RegisterValidation("membershiptype", func(fl validator.FieldLevel) bool {
		return MembershipType(fl.Field().String()).Valid()
	})

	return validate
}

// FieldErrors turns validator errors into the same field -> messages shape the API uses
func FieldErrors(err error) map[string][]string {
	out := map[string][]string{}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return out
	}
	for _, fe := range verrs {
		out[fe.Field()] = append(out[fe.Field()], fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	name := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return "The " + name + " field is required."
	case "max":
		return "The " + name + " field must not be greater than " + fe.Param() + " characters."
	case "gt", "gte":
		return "The " + name + " field must be greater than " + fe.Param() + "."
	case "reviewstatus", "membershiptype", "oneof":
		return "The selected " + name + " is invalid."
	default:
		return "The " + name + " field is invalid."
	}
}
