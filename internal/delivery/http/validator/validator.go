// Package validator adapts go-playground/validator to Echo's Validator interface.
package validator

import (
	domainerrors "cms/internal/domain/errors"

	validatorlib "github.com/go-playground/validator/v10"
)

type echoValidator struct {
	validate *validatorlib.Validate
}

// New creates the request validator used by the Echo server.
func New() *echoValidator {
	return &echoValidator{validate: validatorlib.New()}
}

// Validate implements echo.Validator. Validation failures map to the uniform
// validation error so field-level details don't leak through the API shape.
func (v *echoValidator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return domainerrors.ErrValidationFailed.WrapMessage(err.Error())
	}

	return nil
}
