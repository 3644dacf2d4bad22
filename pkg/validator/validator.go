package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

// FieldError describes the first rule a value failed.
type FieldError struct {
	Field   string
	Rule    string
	Message string
}

func (e *FieldError) Error() string {
	return e.Message
}

type validator struct {
	engine *playground.Validate
}

// New returns a Validator backed by go-playground/validator. Struct fields
// are checked against their `validate` tag; a `message` tag overrides the
// text reported when that field fails.
func New() Validator {
	engine := playground.New(playground.WithRequiredStructEnabled())
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return &validator{engine: engine}
}

func (v *validator) Validate(obj interface{}) error {
	err := v.engine.Struct(obj)
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &FieldError{
		Field:   fe.Field(),
		Rule:    fe.Tag(),
		Message: messageFor(obj, fe),
	}
}

func (v *validator) ValidateField(field string, value interface{}, rules ...string) error {
	err := v.engine.Var(value, strings.Join(rules, ","))
	if err == nil {
		return nil
	}

	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	return &FieldError{
		Field:   field,
		Rule:    verrs[0].Tag(),
		Message: defaultMessage(field, verrs[0].Tag(), verrs[0].Param()),
	}
}

func messageFor(obj interface{}, fe playground.FieldError) string {
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if sf, ok := t.FieldByName(fe.StructField()); ok {
		if msg := sf.Tag.Get("message"); msg != "" {
			return msg
		}
	}
	return defaultMessage(fe.Field(), fe.Tag(), fe.Param())
}

func defaultMessage(field, rule, param string) string {
	switch rule {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, param)
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, rule)
	}
}
