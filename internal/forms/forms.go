// Package forms validates the account, dog and login forms and converts them
// to backend payloads. Validation messages are the Japanese copy shown next
// to each field.
package forms

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a form field name to the message displayed beside it.
type Errors map[string]string

func (e Errors) Add(field, msg string) {
	if _, exists := e[field]; !exists {
		e[field] = msg
	}
}

func (e Errors) Any() bool { return len(e) > 0 }

type form interface {
	messages() map[string]string
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// check runs the struct tags on f and translates failures through the form's
// message table. Keys are "field.tag", falling back to "field".
func check(f form) Errors {
	errs := Errors{}
	err := validate.Struct(f)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_form", "入力内容を確認してください")
		return errs
	}

	msgs := f.messages()
	for _, fe := range verrs {
		msg, ok := msgs[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg, ok = msgs[fe.Field()]
		}
		if !ok {
			msg = "入力内容を確認してください"
		}
		errs.Add(fe.Field(), msg)
	}
	return errs
}
