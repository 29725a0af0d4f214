// Package validation registers the custom binding rules used by request DTOs.
package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/ekklesia/internal/app/models"
)

var registerOnce sync.Once

// NotBlank fails for strings that are empty after trimming whitespace
func NotBlank(fl validator.FieldLevel) bool {
	field := fl.Field()
	switch field.Kind() {
	case reflect.String:
		return strings.TrimSpace(field.String()) != ""
	case reflect.Ptr:
		if field.IsNil() {
			return true
		}
		if field.Elem().Kind() == reflect.String {
			return strings.TrimSpace(field.Elem().String()) != ""
		}
	}
	return true
}

// ValidRole accepts Miembro, Staff and Admin
func ValidRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).Valid()
}

// Register adds the custom rules to v
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation("notblank", NotBlank); err != nil {
		return fmt.Errorf("failed to register notblank: %w", err)
	}
	if err := v.RegisterValidation("role", ValidRole); err != nil {
		return fmt.Errorf("failed to register role: %w", err)
	}
	return nil
}

// RegisterGinValidators adds the custom rules to gin's binding validator
func RegisterGinValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected gin validator engine %T", binding.Validator.Engine())
			return
		}
		err = Register(v)
	})
	return err
}
