// Package validator registers the booking-specific validation tags on gin's
// validator engine and turns bind errors into field-level details.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"labbooking/internal/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

var (
	validate *validator.Validate
	once     sync.Once
)

// Register installs the custom tags on gin's default validator. Safe to
// call more than once.
func Register() {
	once.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerOn(v)
			validate = v
			return
		}
		validate = validator.New()
		validate.SetTagName("binding")
		registerOn(validate)
	})
}

func registerOn(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDate(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseClockTime(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("hourrange", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseHourRange(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		r, ok := domain.ParseRole(fl.Field().String())
		return ok && r.SelfAssignable()
	})
}

// fieldName reports the json name of a field, falling back to its form name.
func fieldName(sf reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

// Validate checks v against its binding tags.
func Validate(v interface{}) []FieldError {
	Register()
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	return FieldErrors(err)
}

// FieldErrors extracts per-field failures from a bind or validation error.
// Malformed bodies yield a single "body" entry.
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: message(fe.Tag(), fe.Param()),
			})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldError{{
			Field:   typeErr.Field,
			Rule:    "type",
			Message: "must be of type " + typeErr.Type.String(),
		}}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return []FieldError{{Field: "body", Rule: "json", Message: "malformed JSON"}}
	}
	return []FieldError{{Field: "body", Rule: "bind", Message: err.Error()}}
}

func message(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "required_without":
		return "is required when " + param + " is absent"
	case "excluded_with":
		return "must not be combined with " + param
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "gt":
		return "must be greater than " + param
	case "isodate":
		return "must be a date formatted YYYY-MM-DD"
	case "clock":
		return "must be a time formatted HH:MM"
	case "hourrange":
		return "must look like <startHour>-<endHour> with start before end"
	case "role":
		return "must be one of teacher, student"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
