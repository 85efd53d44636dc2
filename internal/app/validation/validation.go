package validation

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"innkeep/internal/domain/reservation"
)

var ErrInvalid = errors.New("validation: invalid request")

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type Errors []FieldError

func (v Errors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, 0, len(v))
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

func (v Errors) Is(target error) bool {
	return target == ErrInvalid
}

// Validator checks bus messages against their `validate` struct tags.
type Validator struct {
	validate *validator.Validate
}

func New() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("property_mode", validatePropertyMode); err != nil {
		return nil, fmt.Errorf("register property_mode: %w", err)
	}
	if err := v.RegisterValidation("hhmm", validateClock); err != nil {
		return nil, fmt.Errorf("register hhmm: %w", err)
	}
	return &Validator{validate: v}, nil
}

func (v *Validator) Validate(_ context.Context, message any) error {
	if !isStruct(message) {
		return nil
	}
	err := v.validate.Struct(message)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return translate(fieldErrs)
	}
	return err
}

func isStruct(message any) bool {
	rv := reflect.ValueOf(message)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}

func translate(errs validator.ValidationErrors) Errors {
	out := make(Errors, 0, len(errs))
	for _, err := range errs {
		message := err.Error()
		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min", "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max", "lte":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gtfield":
			message = fmt.Sprintf("%s must be after %s", err.Field(), err.Param())
		case "property_mode":
			message = fmt.Sprintf("%s must be room or venue", err.Field())
		case "hhmm":
			message = fmt.Sprintf("%s must be a HH:MM time", err.Field())
		}
		out = append(out, FieldError{Field: err.Field(), Message: message})
	}
	return out
}

func validatePropertyMode(fl validator.FieldLevel) bool {
	mode, ok := fl.Field().Interface().(reservation.Mode)
	if !ok {
		return false
	}
	return mode == reservation.ModeRoom || mode == reservation.ModeVenue
}

func validateClock(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
