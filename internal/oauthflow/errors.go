// Package oauthflow implements the OAuth 2.0 authorization-code grant
// with PKCE, client registration lookups, and the token endpoint's
// authorization_code and refresh_token grants (spec §4.5, component
// C5).
package oauthflow

import "fmt"

// Error is an RFC 6749 §5.2 error response: {error, error_description}.
type Error struct {
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// RFC 6749 §5.2 / §4.1.2.1 error codes used by this flow.
const (
	ErrInvalidRequest   = "invalid_request"
	ErrInvalidClient    = "invalid_client"
	ErrInvalidGrant     = "invalid_grant"
	ErrUnsupportedGrant = "unsupported_grant_type"
	ErrInvalidScope     = "invalid_scope"
	ErrAccessDenied     = "access_denied"
)

func newErr(code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Description: fmt.Sprintf(format, args...)}
}
