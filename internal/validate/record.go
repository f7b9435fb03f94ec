// Package validate runs the presence and option checks applied before a record
// may leave the form: batch metadata and per-tree counts.
package validate

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ppiankov/canari/internal/model"
)

// Validator wraps go-playground/validator and reports failures as
// model.ValidationError using the canonical (json) field names.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a validator
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Metadata checks that submitter, category and block are non-blank.
// Whitespace-only values count as missing.
func (v *Validator) Metadata(m model.BatchMetadata) error {
	return v.check(m.Trimmed())
}

// Count checks a fruit count before it is queued
func (v *Validator) Count(c model.Count) error {
	c = c.Trimmed()
	if err := v.check(c); err != nil {
		return err
	}

	var bad []string
	if !OneOf(c.CanopyType, model.CanopyOptions) {
		bad = append(bad, "canopyType")
	}
	if !OneOf(c.Vigor, model.VigorOptions) {
		bad = append(bad, "vigor")
	}
	if len(bad) > 0 {
		return model.NewValidationError(model.ErrInvalidOption, bad...)
	}
	return nil
}

func (v *Validator) check(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var missing, invalid []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
		} else {
			invalid = append(invalid, fe.Field())
		}
	}
	if len(missing) > 0 {
		return model.NewValidationError(model.ErrMissingRequiredField, missing...)
	}
	return model.NewValidationError(model.ErrInvalidValue, invalid...)
}

// OneOf reports whether value is blank or one of options
func OneOf(value string, options []string) bool {
	if value == "" {
		return true
	}
	for _, o := range options {
		if o == value {
			return true
		}
	}
	return false
}
