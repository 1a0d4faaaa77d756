// Package httpclient sends GraphQL requests over HTTP.
package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
)

// HttpClientWrapper wraps http.Client with GraphQL-specific functionality
type HttpClientWrapper interface {
	// DoGraphQL posts req to the endpoint and decodes the data member into
	// out. GraphQL-level errors are returned as *ResponseError.
	DoGraphQL(ctx context.Context, req Request, out any) error
}

type httpClientWrapper struct {
	client   *http.Client
	endpoint url.URL
	logger   *slog.Logger
}

// NewHttpClientWrapper creates a new client wrapper posting to endpoint
func NewHttpClientWrapper(client *http.Client, endpoint url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, endpoint: endpoint, logger: logger}, nil
}
