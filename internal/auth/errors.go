package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Configuration errors. These abort startup.
var (
	ErrUnknownProvider = errors.New("unknown auth provider")
	ErrMissingConfig   = errors.New("auth provider config missing required fields")
)

// Provider call errors returned by Provider implementations.
var (
	ErrTransport        = errors.New("provider transport failure")
	ErrProviderResponse = errors.New("unexpected provider response")
)

// Login errors returned by Broker.CompleteLogin.
var (
	ErrMissingCode           = errors.New("no authorization code received")
	ErrProviderUnreachable   = errors.New("identity provider unreachable")
	ErrTokenExchangeRejected = errors.New("token exchange rejected")
	ErrIdentityFetchFailed   = errors.New("identity fetch failed")
	ErrGroupFetchFailed      = errors.New("group fetch failed")
)

// Error is a classified login failure. Kind is one of the login sentinels
// above; Err is the underlying cause, if any.
type Error struct {
	Kind     error
	Provider ProviderID
	Response map[string]any // redacted provider payload, set for ErrTokenExchangeRejected
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, provider ProviderID, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}

// StatusCode maps a login error to the HTTP status the boundary renders.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrMissingCode),
		errors.Is(err, ErrProviderUnreachable),
		errors.Is(err, ErrTokenExchangeRejected),
		errors.Is(err, ErrIdentityFetchFailed),
		errors.Is(err, ErrGroupFetchFailed):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
