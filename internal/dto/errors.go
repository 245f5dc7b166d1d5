package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError reports an invalid request field
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func errField(field, reason string) error {
	return &FieldError{Field: field, Reason: reason}
}

// presenceChecker is implemented by partial updates with fields that may be
// omitted but not cleared
type presenceChecker interface {
	checkPresence() error
}

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterCustomTypeFunc(nullableValue[string], Nullable[string]{})
	v.RegisterCustomTypeFunc(nullableValue[int], Nullable[int]{})
	v.RegisterCustomTypeFunc(nullableValue[float64], Nullable[float64]{})
}

// nullableValue lets binding tags see the value of a Nullable field; absent
// and null both read as nil, so omitempty skips them
func nullableValue[T any](field reflect.Value) interface{} {
	n, ok := field.Interface().(Nullable[T])
	if !ok || n.Value == nil {
		return nil
	}
	return *n.Value
}

// Validate checks req against its binding tags with gin's validator, the same
// one ShouldBindJSON uses, then applies the presence rules of partial updates.
// Callers that do not bind through gin (the websocket dispatch, services, the
// client store) validate through here.
func Validate(req interface{}) error {
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return DescribeValidation(err)
	}
	if p, ok := req.(presenceChecker); ok {
		return p.checkPresence()
	}
	return nil
}

// DescribeValidation turns the first validator failure into a FieldError.
// Other errors, such as malformed JSON, are returned unchanged.
func DescribeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return errField(fe.Field(), reason(fe))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be YYYY-MM-DD"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "min":
		if fe.Param() == "0" {
			return "must not be negative"
		}
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "is invalid"
	}
}
