package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/wordpath/learning-service/internal/models"
)

// Validator wraps go-playground struct validation with the service's custom
// rules registered.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	validate := validator.New()
	RegisterCustomValidators(validate)
	return &Validator{validate: validate}
}

// Validate validates struct tags on the given request.
func (v *Validator) Validate(s interface{}) error {
	return v.validate.Struct(s)
}

// Custom validation functions

func ValidateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleTeacher,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

// ValidateGradeValue checks the Russian-style 2-5 grade scale.
func ValidateGradeValue(fl validator.FieldLevel) bool {
	grade := fl.Field().Int()
	return grade >= 2 && grade <= 5
}

func ValidateTestDuration(fl validator.FieldLevel) bool {
	minutes := fl.Field().Int()
	return minutes >= 1 && minutes <= 180
}

// RegisterCustomValidators registers all custom validators
func RegisterCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("user_role", ValidateUserRole)
	validate.RegisterValidation("grade_value", ValidateGradeValue)
	validate.RegisterValidation("test_duration", ValidateTestDuration)

	// Register custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
