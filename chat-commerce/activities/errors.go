package activities

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"go-chat-commerce/chat-commerce/types"
)

// Application error types seen by the workflow
const (
	ErrTypeService         = "ServiceError"
	ErrTypeValidation      = "ValidationError"
	ErrTypePermanent       = "PermanentError"
	ErrTypeSessionNotFound = "SessionNotFound"
)

// asActivityError tags err with a type name the workflow can branch on
func asActivityError(err error) error {
	if err == nil {
		return nil
	}
	var (
		se *types.ServiceError
		ve *types.ValidationError
		pe *types.PermanentError
	)
	switch {
	case errors.Is(err, types.ErrSessionNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeSessionNotFound, err)
	case errors.As(err, &ve):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeValidation, err, ve.Fields)
	case errors.As(err, &pe):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypePermanent, err)
	case errors.As(err, &se):
		return temporal.NewApplicationError(err.Error(), ErrTypeService, se.StatusCode)
	}
	return err
}
