package saml

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the SSO flow engine. HTTP handlers map them to
// status codes; everything else is treated as an internal error.
var (
	// ErrProviderNotFound is returned when no provider matches the requested
	// providerId. Downstream components treat this as terminal; it is never
	// downgraded to "skip validation".
	ErrProviderNotFound = errors.New("sso provider not found")

	// ErrProviderExists is returned when registering a providerId that is
	// already taken. Uniqueness is storage-enforced.
	ErrProviderExists = errors.New("sso provider already registered")

	// ErrInvalidResponse is the uniform rejection for any SAML response that
	// fails parsing or validation. The causing detail is logged, never
	// returned to the caller.
	ErrInvalidResponse = errors.New("invalid SAML response")

	// ErrRequestBuild is returned when no usable redirect target can be
	// constructed for a login request.
	ErrRequestBuild = errors.New("could not build SAML authentication request")

	// ErrUnauthorized is reserved for authentication-failed terminal states.
	ErrUnauthorized = errors.New("authentication failed")
)

// ValidationError reports a malformed provider config at registration time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid provider config: %s", e.Reason)
	}
	return fmt.Sprintf("invalid provider config: field %q %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
