package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request is a GraphQL-over-HTTP request body.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GraphQLError is one entry of a response's errors member.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Response is a GraphQL-over-HTTP response body.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// ResponseError reports errors returned by the GraphQL endpoint.
type ResponseError struct {
	OperationName string
	Errors        []GraphQLError
}

func (e *ResponseError) Error() string {
	messages := make([]string, 0, len(e.Errors))
	for _, gqlErr := range e.Errors {
		messages = append(messages, gqlErr.Message)
	}
	return fmt.Sprintf("graphql %s: %s", e.OperationName, strings.Join(messages, "; "))
}

// StatusError reports a non-2xx HTTP status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// DoGraphQL executes a GraphQL POST request
func (c *httpClientWrapper) DoGraphQL(ctx context.Context, gqlReq Request, out any) error {
	c.logger.Debug("starting GraphQL request",
		"operation", gqlReq.OperationName,
		"endpoint", c.endpoint.String())

	body, err := json.Marshal(gqlReq)
	if err != nil {
		return fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var gqlResp Response
	if err := json.NewDecoder(resp.Body).Decode(&gqlResp); err != nil {
		c.logger.Debug("failed to decode response", "error", err)
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if len(gqlResp.Errors) > 0 {
		c.logger.Debug("GraphQL errors", "operation", gqlReq.OperationName, "count", len(gqlResp.Errors))
		return &ResponseError{OperationName: gqlReq.OperationName, Errors: gqlResp.Errors}
	}

	if out != nil && len(gqlResp.Data) > 0 {
		if err := json.Unmarshal(gqlResp.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}

	c.logger.Debug("GraphQL request complete", "operation", gqlReq.OperationName)
	return nil
}
