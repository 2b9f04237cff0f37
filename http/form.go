package http

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// allFields is the key of errors that don't belong to a single field.
const allFields = "__all__"

// formErrors collects the error messages of a submitted form, per field.
type formErrors struct {
	Errors map[string][]string `json:"errors,omitempty"`
}

func (fe *formErrors) addError(field, message string) {
	if fe.Errors == nil {
		fe.Errors = map[string][]string{}
	}
	fe.Errors[field] = append(fe.Errors[field], message)
}

func (fe *formErrors) valid() bool {
	return len(fe.Errors) == 0
}

// newValidator returns a validator that reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	return v
}

// validateForm validates form and records a message for every failing field in fe.
// It reports whether the form is valid.
func (s *Server) validateForm(form interface{}, fe *formErrors) bool {
	err := s.validate.Struct(form)
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range verrs {
			fe.addError(e.Field(), fieldMessage(e))
		}
	} else if err != nil {
		fe.addError(allFields, err.Error())
	}
	return fe.valid()
}

// fieldMessage turns a failed validation into a message for the user.
func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", e.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", e.Param())
	case "email":
		return "Enter a valid email address."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Enter a valid value."
	}
}
