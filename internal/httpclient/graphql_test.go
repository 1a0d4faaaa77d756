package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWrapper(t *testing.T, handler http.HandlerFunc) HttpClientWrapper {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	endpoint, err := url.Parse(server.URL + "/graphql")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wrapper, err := NewHttpClientWrapper(server.Client(), *endpoint, logger)
	require.NoError(t, err)
	return wrapper
}

func TestNewHttpClientWrapper_RequiresLogger(t *testing.T) {
	_, err := NewHttpClientWrapper(nil, url.URL{}, nil)
	assert.Error(t, err)
}

func TestDoGraphQL(t *testing.T) {
	t.Run("decodes data", func(t *testing.T) {
		wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/graphql", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req Request
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "Ping", req.OperationName)
			assert.Equal(t, "hello", req.Variables["message"])

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":{"ping":{"echo":"hello"}}}`))
		})

		var out struct {
			Ping struct {
				Echo string `json:"echo"`
			} `json:"ping"`
		}
		err := wrapper.DoGraphQL(context.Background(), Request{
			Query:         "mutation Ping($message: String!) { ping(message: $message) { echo } }",
			OperationName: "Ping",
			Variables:     map[string]any{"message": "hello"},
		}, &out)
		require.NoError(t, err)
		assert.Equal(t, "hello", out.Ping.Echo)
	})

	t.Run("graphql errors", func(t *testing.T) {
		wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":null,"errors":[{"message":"not found","extensions":{"code":"NOT_FOUND"}},{"message":"second"}]}`))
		})

		err := wrapper.DoGraphQL(context.Background(), Request{OperationName: "Ping"}, nil)
		var respErr *ResponseError
		require.True(t, errors.As(err, &respErr))
		require.Len(t, respErr.Errors, 2)
		assert.Equal(t, "NOT_FOUND", respErr.Errors[0].Extensions["code"])
		assert.Equal(t, "graphql Ping: not found; second", err.Error())
	})

	t.Run("http status", func(t *testing.T) {
		wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		err := wrapper.DoGraphQL(context.Background(), Request{OperationName: "Ping"}, nil)
		var statusErr *StatusError
		require.True(t, errors.As(err, &statusErr))
		assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
		assert.Equal(t, "bad gateway", statusErr.Body)
	})

	t.Run("malformed body", func(t *testing.T) {
		wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`not json`))
		})
		assert.Error(t, wrapper.DoGraphQL(context.Background(), Request{}, nil))
	})

	t.Run("cancelled context", func(t *testing.T) {
		wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{}}`))
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, wrapper.DoGraphQL(ctx, Request{}, nil), context.Canceled)
	})
}
