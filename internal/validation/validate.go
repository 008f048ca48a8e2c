// Package validation checks user input with go-playground/validator and
// audits stored recovery data for inconsistencies.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/julianstephens/rehab/internal/constants"
	apperrors "github.com/julianstephens/rehab/internal/errors"
)

// MaxContentBytes bounds free-text fields such as posts and chat messages
const MaxContentBytes = 8 * 1024

var validate *validator.Validate

// now is swapped in tests
var now = time.Now

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = validate.RegisterValidation("notfuture", validateNotFuture)
	_ = validate.RegisterValidation("addiction", validateAddiction)
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = validate.RegisterValidation("notblank", validateNotBlank)
}

// validateNotFuture rejects instants after the end of tomorrow in UTC, so
// "today" passes in every time zone. Callers that know the user's zone
// compare calendar dates themselves.
func validateNotFuture(fl validator.FieldLevel) bool {
	var t time.Time
	switch v := fl.Field().Interface().(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return true
		}
		t = *v
	default:
		return false
	}
	limit := now().UTC().Truncate(24 * time.Hour).Add(48 * time.Hour)
	return t.Before(limit)
}

func validateAddiction(fl validator.FieldLevel) bool {
	return constants.IsAddictionType(fl.Field().String())
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContentBytes
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// FieldErrors maps a field's JSON name to a readable problem
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+f[k])
	}
	return strings.Join(parts, "; ")
}

// Struct validates v and returns a KindValidation error wrapping FieldErrors
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Wrap(apperrors.KindValidation, err, "invalid input")
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe)
	}
	return apperrors.Wrap(apperrors.KindValidation, fields, "invalid input")
}

// Invalid reports a single bad field the way Struct does
func Invalid(field, msg string) error {
	return apperrors.Wrap(apperrors.KindValidation, FieldErrors{field: msg}, "invalid input")
}

// Fields extracts per-field messages from an error returned by Struct
func Fields(err error) (FieldErrors, bool) {
	var f FieldErrors
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "notfuture":
		return "cannot be in the future"
	case "addiction":
		names := make([]string, len(constants.AddictionTypes))
		for i, a := range constants.AddictionTypes {
			names[i] = string(a)
		}
		return "must be one of " + strings.Join(names, ", ")
	case "maxbytes":
		return fmt.Sprintf("must be at most %d bytes", MaxContentBytes)
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	}
	return "is invalid"
}
