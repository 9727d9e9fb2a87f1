package exam

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrAlreadySubmitted is returned when the student already has a
	// submission for the exam.
	ErrAlreadySubmitted = errors.New("exam already submitted")
	// ErrNoQuestionsRecognized is returned when batch import text yields
	// no questions at all.
	ErrNoQuestionsRecognized = errors.New("format not recognized")
)

// ValidationError reports which input field was rejected and why. Reason
// is a validator-style tag such as "required", "gt" or "extension"; Param
// carries the tag argument when there is one.
type ValidationError struct {
	Field  string
	Reason string
	Param  string
}

func (e *ValidationError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("invalid %s: %s=%s", e.Field, e.Reason, e.Param)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason, param string) error {
	return &ValidationError{Field: field, Reason: reason, Param: param}
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// CheckStruct validates s with v and returns the first failure as a
// *ValidationError.
func CheckStruct(v *validator.Validate, s any) error {
	if err := v.Struct(s); err != nil {
		return fromValidator(err)
	}
	return nil
}

// fromValidator converts the first validator failure into a ValidationError.
// The struct name is dropped from the namespace so fields read
// "questions[0].order".
func fromValidator(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	return invalid(field, fe.Tag(), fe.Param())
}
