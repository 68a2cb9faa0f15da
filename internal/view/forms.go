package view

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/medportal/medportal/internal/i18n"
)

// FormErrors maps field names to translated messages. The "general" key
// carries errors that belong to no field.
type FormErrors map[string]string

// ValidationErrors translates validator output using messages, keyed by
// "Field.tag". The first failing rule of a field wins.
func ValidationErrors(r *http.Request, err error, messages map[string]string) FormErrors {
	errs := FormErrors{}
	if err == nil {
		return errs
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs["general"] = i18n.T(r.Context(), "Invalid value.")
		return errs
	}
	for _, fieldErr := range fieldErrs {
		if _, seen := errs[fieldErr.Field()]; seen {
			continue
		}
		key, ok := messages[fieldErr.Field()+"."+fieldErr.Tag()]
		if !ok {
			key = "Invalid value."
		}
		errs[fieldErr.Field()] = i18n.T(r.Context(), key)
	}
	return errs
}
