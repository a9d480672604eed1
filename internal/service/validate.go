package service

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mesh-intelligence/stories/pkg/types"
)

// Validator wraps the go-playground validator with the story and criteria
// id rules.
type Validator struct {
	validate *validator.Validate
	rules    types.Rules
}

// NewValidator creates a validator whose storyid and criteriaid tags check
// the prefixes in rules.
func NewValidator(rules types.Rules) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validateNotBlank)
	_ = v.RegisterValidation("storyid", prefixValidator(rules.StoryIDPrefix))
	_ = v.RegisterValidation("criteriaid", prefixValidator(rules.CriteriaIDPrefix))

	return &Validator{validate: v, rules: rules}
}

// Struct validates req and reports every failed field as one ErrValidation
// error. Field names the first failing field.
func (v *Validator) Struct(entity string, req any) error {
	err := v.validate.Struct(req)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &types.Error{Kind: types.ErrValidation, Entity: entity, Message: err.Error(), Err: err}
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, v.msgForTag(fe))
	}
	return &types.Error{
		Kind:    types.ErrValidation,
		Entity:  entity,
		Field:   fieldErrs[0].Field(),
		Message: strings.Join(messages, "; "),
	}
}

// msgForTag returns a human-readable message for a failed tag.
func (v *Validator) msgForTag(fe validator.FieldError) string {
	field := fe.Field()

	switch fe.Tag() {
	case "notblank":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "storyid":
		return fmt.Sprintf("%s must start with %q", field, v.rules.StoryIDPrefix)
	case "criteriaid":
		return fmt.Sprintf("%s must start with %q", field, v.rules.CriteriaIDPrefix)
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// validateNotBlank rejects empty and whitespace-only strings.
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// prefixValidator accepts strings that start with prefix.
func prefixValidator(prefix string) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.HasPrefix(fl.Field().String(), prefix)
	}
}

// validationError builds an ErrValidation error for one field.
func validationError(entity, field, format string, args ...any) error {
	return &types.Error{
		Kind:    types.ErrValidation,
		Entity:  entity,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
