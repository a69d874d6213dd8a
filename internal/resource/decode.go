package resource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"
)

var ErrNullPayload = errors.New("resource: empty or null payload")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode unmarshals a response body into T and validates the result. A body
// that parses but violates the validate tags is rejected rather than handed
// to consumers.
func Decode[T any](body []byte) (T, error) {
	var v T

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return v, ErrNullPayload
	}

	if err := json.Unmarshal(trimmed, &v); err != nil {
		return v, fmt.Errorf("resource: decode %T: %w", v, err)
	}

	if err := Validate(v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Validate checks a DTO, or every element of a slice of DTOs.
func Validate(v any) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := validateOne(rv.Index(i).Interface()); err != nil {
				return fmt.Errorf("resource: item %d: %w", i, err)
			}
		}
		return nil
	default:
		if err := validateOne(v); err != nil {
			return fmt.Errorf("resource: %w", err)
		}
		return nil
	}
}

func validateOne(v any) error {
	rv := reflect.Indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil
	}
	if err := validate.Struct(rv.Interface()); err != nil {
		return fmt.Errorf("invalid %s: %w", rv.Type().Name(), err)
	}
	return nil
}
