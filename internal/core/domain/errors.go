package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates the resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the actor lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrMissingSecret indicates required platform configuration is absent.
	// This is an operator error, fatal at the call site that needed it.
	ErrMissingSecret = errors.New("platform secret not configured")

	// ErrDecryptionFailed indicates a credential blob could not be decrypted
	// (wrong key, tampered payload, or malformed bundle)
	ErrDecryptionFailed = errors.New("credential decryption failed")

	// ErrInvalidCredentials indicates credentials failed format validation
	// or were rejected by the provider
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrReauthRequired indicates an OAuth refresh is no longer possible
	// and the user must reconnect the integration
	ErrReauthRequired = errors.New("reauthentication required: please reconnect this integration")

	// ErrUnknownProvider indicates no adapter exists for the provider string
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownAction indicates the caller asked an adapter for an action
	// it does not support - a programmer error in the caller
	ErrUnknownAction = errors.New("unknown action")

	// ErrUsageLimitExceeded indicates the tenant's monthly plan ceiling is
	// reached; the operation fails before any provider call is made
	ErrUsageLimitExceeded = errors.New("usage limit exceeded: upgrade your plan to continue sending")

	// ErrTokenExpired indicates the API auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the API auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")
)
