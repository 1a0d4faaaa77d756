package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAuthorization(t *testing.T) {
	basic := "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cr:et"))

	tests := []struct {
		name    string
		header  string
		want    Credentials
		wantErr bool
	}{
		{"basic", basic, Credentials{Scheme: SchemeBasic, Username: "alice", Password: "s3cr:et"}, false},
		{"bearer", "Bearer abc.def", Credentials{Scheme: SchemeBearer, Token: "abc.def"}, false},
		{"lowercase scheme", "bearer abc", Credentials{Scheme: SchemeBearer, Token: "abc"}, false},
		{"empty", "", Credentials{}, true},
		{"no value", "Bearer ", Credentials{}, true},
		{"bad base64", "Basic !!!", Credentials{}, true},
		{"no colon", "Basic " + base64.StdEncoding.EncodeToString([]byte("alice")), Credentials{}, true},
		{"digest", "Digest username=alice", Credentials{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAuthorization(tc.header)
			if tc.wantErr {
				var authErr *Error
				require.ErrorAs(t, err, &authErr)
				assert.Equal(t, ErrInvalidCredentials, authErr.Type)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// staticAuthenticator accepts one token and forbids everything under /private.
type staticAuthenticator struct{}

func (staticAuthenticator) Authenticate(_ context.Context, creds Credentials) (*Principal, error) {
	if creds.Scheme == SchemeBearer && creds.Token == "good" {
		return &Principal{ID: "svc"}, nil
	}
	return nil, &Error{Type: ErrInvalidCredentials, Message: "nope"}
}

func (staticAuthenticator) ValidateAccess(_ context.Context, _ *Principal, _, path string) error {
	if path == "/private" {
		return &Error{Type: ErrForbidden, Message: "private"}
	}
	return nil
}

func TestMiddleware(t *testing.T) {
	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware(staticAuthenticator{}, "", "/health")(next)

	tests := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
		wantPrincipal bool
	}{
		{"public path", "/health", "", http.StatusNoContent, false},
		{"missing credentials", "/graphql", "", http.StatusUnauthorized, false},
		{"wrong token", "/graphql", "Bearer bad", http.StatusUnauthorized, false},
		{"good token", "/graphql", "Bearer good", http.StatusNoContent, true},
		{"forbidden", "/private", "Bearer good", http.StatusForbidden, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodPost, tc.path, nil)
			if tc.authorization != "" {
				req.Header.Set("Authorization", tc.authorization)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, []string{`Basic realm="Slot Server"`, `Bearer realm="Slot Server"`}, w.Header().Values("WWW-Authenticate"))
			}
			if tc.wantPrincipal {
				require.NotNil(t, seen)
				assert.Equal(t, "svc", seen.ID)
			} else {
				assert.Nil(t, seen)
			}
		})
	}
}
