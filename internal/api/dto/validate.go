package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Decode parses a JSON body into v and runs struct validation.
// Syntactically broken JSON is a bad request. A value of the wrong type or a
// malformed identifier fails validation, keyed by the offending field.
func Decode(body []byte, v any) error {
	if len(body) == 0 {
		return apperrors.NewBadRequest("request body is required", nil)
	}
	if !json.Valid(body) {
		return apperrors.NewBadRequest("invalid payload", map[string]any{"reason": "malformed JSON"})
	}
	if err := json.Unmarshal(body, v); err != nil {
		return decodeFieldError(body, v, err)
	}
	return Validate(v)
}

func decodeFieldError(body []byte, v any, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.NewValidationError("validation failed", map[string]any{
			typeErr.Field: fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type),
		})
	}
	if field := failingField(body, v); field != "" {
		return apperrors.NewValidationError("validation failed", map[string]any{
			field: fmt.Sprintf("%s is invalid: %v", field, err),
		})
	}
	return apperrors.NewValidationError("validation failed", map[string]any{"reason": err.Error()})
}

// failingField decodes each top-level key of body on its own into a fresh value of
// v's type and returns the first key, in sorted order, that fails. Custom
// unmarshalers such as uuid.UUID report errors without the field name.
func failingField(body []byte, v any) string {
	target := reflect.TypeOf(v)
	if target == nil || target.Kind() != reflect.Ptr {
		return ""
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		single, err := json.Marshal(map[string]json.RawMessage{key: fields[key]})
		if err != nil {
			continue
		}
		scratch := reflect.New(target.Elem()).Interface()
		if json.Unmarshal(single, scratch) != nil {
			return key
		}
	}
	return ""
}

// Validate runs the validate tags of s and converts failures into a validation error keyed by field.
func Validate(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError("validation failed", map[string]any{"reason": err.Error()})
	}

	details := make(map[string]any, len(validationErrors))
	for _, fieldError := range validationErrors {
		details[fieldError.Field()] = fieldErrorMessage(fieldError)
	}
	return apperrors.NewValidationError("validation failed", details)
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "uuid":
		return fmt.Sprintf("%s must be a valid UUID", field)
	default:
		return fmt.Sprintf("%s failed validation for '%s'", field, fe.Tag())
	}
}
