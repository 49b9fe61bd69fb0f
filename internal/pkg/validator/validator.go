package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Register custom validations
	registerCustomValidations()
}

func registerCustomValidations() {
	// Coloring page style
	validate.RegisterValidation("style", func(fl validator.FieldLevel) bool {
		style := fl.Field().String()
		validStyles := []string{"classic", "bold", "kawaii", "portrait"}
		for _, s := range validStyles {
			if style == s {
				return true
			}
		}
		return false
	})

	// Subscription billing interval
	validate.RegisterValidation("subscription_type", func(fl validator.FieldLevel) bool {
		subType := fl.Field().String()
		validTypes := []string{"monthly", "yearly", ""}
		for _, t := range validTypes {
			if subType == t {
				return true
			}
		}
		return false
	})
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errors := make(map[string]string)
	for _, err := range err.(validator.ValidationErrors) {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "style":
			errors[field] = "Invalid style. Must be: classic, bold, kawaii, or portrait"
		case "subscription_type":
			errors[field] = "Invalid subscription type. Must be: monthly or yearly"
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
