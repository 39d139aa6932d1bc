package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "petrodash/internal/errors"
	"petrodash/internal/series"
)

// Validator checks request payloads and filter values against struct tags
type Validator struct {
	validate *validator.Validate
}

// New creates a validator that reports fields by their JSON names
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterValidation("datekey", isDateKey)
	v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// Struct validates s and returns an APIError listing every rejected field
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   trimNamespace(fe.Namespace()),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

// Var validates a single value under the given field name
func (v *Validator) Var(field string, value any, tag string) error {
	err := v.validate.Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apierrors.ErrValidation(field, formatMessage(field, fe.Tag(), fe.Param()))
	}
	return apierrors.ErrValidation(field, err.Error())
}

// trimNamespace drops the root struct name: "Preferences.holidays[0].date" -> "holidays[0].date"
func trimNamespace(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func formatValidationError(fe validator.FieldError) string {
	return formatMessage(fe.Field(), fe.Tag(), fe.Param())
}

func formatMessage(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "datetime":
		return fmt.Sprintf("%s must be a date in %s format", field, param)
	case "datekey":
		return fmt.Sprintf("%s must be a calendar day such as 1/31", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "numeric", "number":
		return fmt.Sprintf("%s must be numeric", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// isDateKey accepts "M/D" calendar days
func isDateKey(fl validator.FieldLevel) bool {
	_, err := series.ParseDateKey(fl.Field().String())
	return err == nil
}

// isValidFilename rejects empty names and path traversal
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" {
		return false
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, "/\\") {
		return false
	}
	return len(filename) <= 255
}
