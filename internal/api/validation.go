package api

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
)

var requestValidator = validator.New()

var errMalformedBody = errors.New("malformed JSON body")

// decodeAndValidate parses a JSON request body into dst, rejecting unknown
// fields and trailing content, then applies the struct's validate tags.
// Returned messages are client-safe.
func decodeAndValidate(body io.Reader, dst any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return errMalformedBody
	}
	if _, err := dec.Token(); err != io.EOF {
		return errMalformedBody
	}

	if err := requestValidator.Struct(dst); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
			return errors.New(fieldErrorMessage(fieldErrors[0]))
		}
		return errors.New("invalid request body")
	}

	return nil
}

// fieldErrorMessage renders the first failed validate tag as a short
// client-facing sentence.
func fieldErrorMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is missing"
	case "email":
		return "email address is not valid"
	case "min":
		return field + " is too short"
	case "max":
		return field + " is too long"
	case "gt":
		return field + " must be greater than zero"
	}
	return field + " is not valid"
}
