package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// BasicAuthTransport implements http.RoundTripper and adds Basic Auth
// authentication to outgoing requests.
type BasicAuthTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBasicAuthTransport creates a new BasicAuthTransport with the given
// credentials and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewBasicAuthTransport(username, password string, transport http.RoundTripper, logger *slog.Logger) *BasicAuthTransport {
	return &BasicAuthTransport{
		Username:  username,
		Password:  password,
		Transport: orDefaultTransport(transport),
		Logger:    orDiscard(logger),
	}
}

// RoundTrip adds Basic Auth credentials to the request and delegates to the
// underlying transport.
func (t *BasicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Username == "" {
		return nil, errors.New("basic auth username cannot be empty")
	}
	if t.Password == "" {
		return nil, errors.New("basic auth password cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	req = req.Clone(req.Context())
	req.SetBasicAuth(t.Username, t.Password)
	return logRoundTrip(t.Transport, t.Logger, req)
}

// BearerTokenTransport adds an "Authorization: Bearer" header, the usual
// credential of GraphQL gateways.
type BearerTokenTransport struct {
	Token     string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewBearerTokenTransport creates a BearerTokenTransport. If transport is nil,
// http.DefaultTransport will be used.
func NewBearerTokenTransport(token string, transport http.RoundTripper, logger *slog.Logger) *BearerTokenTransport {
	return &BearerTokenTransport{
		Token:     token,
		Transport: orDefaultTransport(transport),
		Logger:    orDiscard(logger),
	}
}

func (t *BearerTokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token == "" {
		return nil, errors.New("bearer token cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.Token)
	return logRoundTrip(t.Transport, t.Logger, req)
}

// logRoundTrip logs the request and response bodies at debug level and
// restores them for the caller. Credentials are not logged.
func logRoundTrip(next http.RoundTripper, logger *slog.Logger, req *http.Request) (*http.Response, error) {
	reqBody := ""
	if req.Body != nil {
		bodyBytes, err := io.ReadAll(req.Body)
		if err == nil {
			reqBody = string(bodyBytes)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}
	}

	headers := req.Header.Clone()
	headers.Del("Authorization")
	logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", headers,
		"body", reqBody)

	resp, err := next.RoundTrip(req)
	if err == nil && resp != nil {
		respBody := ""
		if resp.Body != nil {
			bodyBytes, err := io.ReadAll(resp.Body)
			if err == nil {
				respBody = string(bodyBytes)
				resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			}
		}

		logger.Debug("incoming response",
			"status", resp.Status,
			"headers", resp.Header,
			"body", respBody)
	}

	return resp, err
}

func orDefaultTransport(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		return http.DefaultTransport
	}
	return transport
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
