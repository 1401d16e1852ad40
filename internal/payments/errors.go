package payments

import (
	"errors"

	"pasal/internal/secrets"
)

var (
	// ErrConfiguration covers missing, duplicate or disabled gateway configs and unsupported methods.
	ErrConfiguration = errors.New("configuration error")
	// ErrCredential is a decrypt or integrity failure on stored credentials.
	ErrCredential = secrets.ErrCredential
	// ErrExternalGateway is a provider timeout, transport failure, non-2xx or malformed response.
	ErrExternalGateway = errors.New("external gateway error")
	ErrNotFound        = errors.New("not found")
	// ErrValidation is a malformed or incomplete request or credential payload.
	ErrValidation = errors.New("validation error")
	// ErrInvalidTransition is returned when an administrative transition targets a terminal payment.
	ErrInvalidTransition = errors.New("invalid status transition")
)
