// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Category names are lowercase slugs, the stable keys transactions are
// recorded against ("food", "viihde", "asuminen").
var categoryNameRegex = regexp.MustCompile(`^[a-zäöå0-9][a-zäöå0-9_-]{0,39}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("category_name", validateCategoryName)
		_ = v.RegisterValidation("entry_type", validateEntryType)
	}
}

func validateCategoryName(fl validator.FieldLevel) bool {
	return categoryNameRegex.MatchString(fl.Field().String())
}

func validateEntryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "spend", "reversal":
		return true
	}
	return false
}
