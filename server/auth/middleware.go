package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"
)

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// Middleware creates HTTP middleware that enforces authentication. Requests
// to the paths in public pass through untouched.
func Middleware(authenticator Authenticator, realm string, public ...string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = "Slot Server"
	}
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if open[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			creds, err := ParseAuthorization(r.Header.Get("Authorization"))
			if err != nil {
				requestAuth(w, realm)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), creds)
			if err != nil {
				requestAuth(w, realm)
				return
			}

			if err := authenticator.ValidateAccess(r.Context(), principal, r.Method, r.URL.Path); err != nil {
				var authErr *Error
				if errors.As(err, &authErr) && authErr.Type == ErrForbidden {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				requestAuth(w, realm)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestAuth sends WWW-Authenticate headers for both schemes
func requestAuth(w http.ResponseWriter, realm string) {
	w.Header().Add("WWW-Authenticate", `Basic realm="`+realm+`"`)
	w.Header().Add("WWW-Authenticate", `Bearer realm="`+realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// ParseAuthorization parses a Basic or Bearer Authorization header value.
func ParseAuthorization(header string) (Credentials, error) {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || value == "" {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}

	switch {
	case strings.EqualFold(scheme, string(SchemeBasic)):
		return parseBasicAuth(value)
	case strings.EqualFold(scheme, string(SchemeBearer)):
		return Credentials{Scheme: SchemeBearer, Token: strings.TrimSpace(value)}, nil
	default:
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "unsupported authorization scheme " + scheme,
		}
	}
}

func parseBasicAuth(encoded string) (Credentials, error) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid base64 encoding",
			Err:     err,
		}
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid credentials format",
		}
	}

	return Credentials{
		Scheme:   SchemeBasic,
		Username: username,
		Password: password,
	}, nil
}
