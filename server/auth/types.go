package auth

import (
	"context"
	"fmt"
)

// Principal represents an authenticated user or entity
type Principal struct {
	ID string
	// ReadOnly principals may preview and list but not mutate slots.
	ReadOnly bool
}

// Scheme is the HTTP authentication scheme credentials arrived with.
type Scheme string

const (
	SchemeBasic  Scheme = "Basic"
	SchemeBearer Scheme = "Bearer"
)

// Credentials represents authentication credentials. Username and Password
// are set for Basic, Token for Bearer.
type Credentials struct {
	Scheme   Scheme
	Username string
	Password string
	Token    string
}

// ErrorType represents the type of authentication error
type ErrorType string

const (
	ErrInvalidCredentials ErrorType = "invalid_credentials"
	ErrUnauthorized       ErrorType = "unauthorized"
	ErrForbidden          ErrorType = "forbidden"
)

// Error represents an authentication-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Authenticator defines the interface for authentication providers
type Authenticator interface {
	// Authenticate validates credentials and returns a Principal if successful
	Authenticate(ctx context.Context, creds Credentials) (*Principal, error)

	// ValidateAccess checks if a principal may send method to path
	ValidateAccess(ctx context.Context, principal *Principal, method, path string) error
}
