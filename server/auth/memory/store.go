package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cyp0633/libslots/server/auth"
)

// User represents a user in the memory store
type User struct {
	Username string
	Password string // In production this should be hashed
	ReadOnly bool
}

// Token is a bearer token and the principal it stands for.
type Token struct {
	Value    string
	ID       string
	ReadOnly bool
}

// Store implements an in-memory authentication store
type Store struct {
	mu     sync.RWMutex
	users  map[string]User  // map[username]User
	tokens map[string]Token // map[value]Token
	logger *slog.Logger
}

// New creates a new in-memory authentication store
func New(opts ...Option) *Store {
	s := &Store{
		users:  make(map[string]User),
		tokens: make(map[string]Token),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AddUser adds a Basic auth user to the store
func (s *Store) AddUser(user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		s.logger.Warn("failed to add user: already exists",
			"username", user.Username)
		return fmt.Errorf("user already exists: %s", user.Username)
	}

	s.users[user.Username] = user

	s.logger.Info("user added successfully",
		"username", user.Username,
		"read_only", user.ReadOnly)

	return nil
}

// AddToken adds a bearer token to the store
func (s *Store) AddToken(token Token) error {
	if token.Value == "" {
		return fmt.Errorf("token value is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[token.Value]; exists {
		return fmt.Errorf("token already exists for %s", token.ID)
	}
	s.tokens[token.Value] = token

	s.logger.Info("token added successfully",
		"id", token.ID,
		"read_only", token.ReadOnly)

	return nil
}

func invalidCredentials() error {
	return &auth.Error{
		Type:    auth.ErrInvalidCredentials,
		Message: "invalid credentials",
	}
}

// Authenticate implements auth.Authenticator
func (s *Store) Authenticate(_ context.Context, creds auth.Credentials) (*auth.Principal, error) {
	switch creds.Scheme {
	case auth.SchemeBasic:
		return s.authenticateBasic(creds)
	case auth.SchemeBearer:
		return s.authenticateBearer(creds)
	default:
		return nil, invalidCredentials()
	}
}

func (s *Store) authenticateBasic(creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	user, exists := s.users[creds.Username]
	s.mu.RUnlock()

	if !exists {
		s.logger.Info("authentication failed: user not found",
			"username", creds.Username)
		return nil, invalidCredentials()
	}

	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(user.Password), []byte(creds.Password)) != 1 {
		s.logger.Info("authentication failed: invalid password",
			"username", creds.Username)
		return nil, invalidCredentials()
	}

	s.logger.Debug("authentication successful",
		"username", creds.Username)

	return &auth.Principal{ID: user.Username, ReadOnly: user.ReadOnly}, nil
}

func (s *Store) authenticateBearer(creds auth.Credentials) (*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for value, token := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(value), []byte(creds.Token)) == 1 {
			s.logger.Debug("authentication successful", "token_id", token.ID)
			return &auth.Principal{ID: token.ID, ReadOnly: token.ReadOnly}, nil
		}
	}

	s.logger.Info("authentication failed: unknown token")
	return nil, invalidCredentials()
}

// ValidateAccess implements auth.Authenticator. Read-only principals are
// limited to GET/HEAD and the paths in readOnlyPosts.
func (s *Store) ValidateAccess(_ context.Context, principal *auth.Principal, method, path string) error {
	if principal == nil {
		s.logger.Info("access validation failed: no principal")
		return &auth.Error{
			Type:    auth.ErrUnauthorized,
			Message: "authentication required",
		}
	}

	if principal.ReadOnly && method != http.MethodGet && method != http.MethodHead && !readOnlyPosts[path] {
		s.logger.Warn("access validation failed: forbidden",
			"principal", principal.ID,
			"method", method,
			"path", path)
		return &auth.Error{
			Type:    auth.ErrForbidden,
			Message: fmt.Sprintf("%s is read-only", principal.ID),
		}
	}

	s.logger.Debug("access validation successful",
		"principal", principal.ID,
		"path", path)

	return nil
}

// readOnlyPosts are POST endpoints that do not change stored slots.
var readOnlyPosts = map[string]bool{
	"/api/recurrence/preview":     true,
	"/api/recurrence/preview.ics": true,
}

var _ auth.Authenticator = (*Store)(nil)
