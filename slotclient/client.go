// Package slotclient talks to the external slot persistence service over its
// GraphQL endpoint.
package slotclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/libslots/internal/httpclient"
	"github.com/cyp0633/libslots/slot"
)

// ErrGraphQL wraps errors reported inside a GraphQL response.
var ErrGraphQL = errors.New("slot service returned errors")

// Service is what an editing session needs from the persistence service.
type Service interface {
	UpdateSlots(ctx context.Context, batch slot.Batch) (BulkResult, error)
	ChangeHostingStatus(ctx context.Context, change slot.StatusChange) (slot.PersistedSlot, error)
}

// BulkResult holds one outcome per created slot, in batch order, and the
// updated slots.
type BulkResult struct {
	Created []mo.Result[slot.PersistedSlot]
	Updated []slot.PersistedSlot
}

// Client implements Service.
type Client struct {
	http   httpclient.HttpClientWrapper
	loc    *time.Location
	logger *slog.Logger
}

type clientConfig struct {
	httpClient *http.Client
	transport  func(http.RoundTripper, *slog.Logger) http.RoundTripper
	loc        *time.Location
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*clientConfig)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithBearerToken authenticates every request with token.
func WithBearerToken(token string) Option {
	return func(c *clientConfig) {
		c.transport = func(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
			return httpclient.NewBearerTokenTransport(token, next, logger)
		}
	}
}

// WithBasicAuth authenticates every request with username and password.
func WithBasicAuth(username, password string) Option {
	return func(c *clientConfig) {
		c.transport = func(next http.RoundTripper, logger *slog.Logger) http.RoundTripper {
			return httpclient.NewBasicAuthTransport(username, password, next, logger)
		}
	}
}

// WithLocation sets the zone timestamps are sent and read in.
func WithLocation(loc *time.Location) Option {
	return func(c *clientConfig) {
		c.loc = loc
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// New creates a client for the GraphQL endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	cfg := clientConfig{loc: time.Local}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.loc == nil {
		cfg.loc = time.Local
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid endpoint %q: scheme must be http or https", endpoint)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.transport != nil {
		wrapped := *httpClient
		wrapped.Transport = cfg.transport(httpClient.Transport, cfg.logger)
		httpClient = &wrapped
	}

	wrapper, err := httpclient.NewHttpClientWrapper(httpClient, *u, cfg.logger)
	if err != nil {
		return nil, err
	}

	return &Client{http: wrapper, loc: cfg.loc, logger: cfg.logger}, nil
}

// UpdateSlots sends the bulk mutation. A create the service rejected is an
// error Result; the call itself only fails when the whole request does.
func (c *Client) UpdateSlots(ctx context.Context, batch slot.Batch) (BulkResult, error) {
	c.logger.Debug("updating slots",
		"opportunity_id", batch.OpportunityID,
		"create", len(batch.Create),
		"update", len(batch.Update))

	var data struct {
		Payload BulkUpdatePayload `json:"opportunitySlotsBulkUpdate"`
	}
	err := c.do(ctx, httpclient.Request{
		Query:         BulkUpdateDocument,
		OperationName: OperationBulkUpdate,
		Variables:     map[string]any{"input": EncodeBatch(batch, c.loc)},
	}, &data)
	if err != nil {
		return BulkResult{}, err
	}

	if len(data.Payload.Created) != len(batch.Create) {
		return BulkResult{}, fmt.Errorf("slot service returned %d created results for %d creates",
			len(data.Payload.Created), len(batch.Create))
	}

	result := BulkResult{
		Created: make([]mo.Result[slot.PersistedSlot], 0, len(data.Payload.Created)),
		Updated: make([]slot.PersistedSlot, 0, len(data.Payload.Updated)),
	}
	for i, created := range data.Payload.Created {
		switch {
		case created.Error != nil:
			result.Created = append(result.Created, mo.Err[slot.PersistedSlot](fmt.Errorf("create[%d]: %s", i, *created.Error)))
		case created.Slot != nil:
			result.Created = append(result.Created, mo.TupleToResult(created.Slot.Decode(c.loc)))
		default:
			result.Created = append(result.Created, mo.Err[slot.PersistedSlot](fmt.Errorf("create[%d]: empty result", i)))
		}
	}
	for _, updated := range data.Payload.Updated {
		p, err := updated.Decode(c.loc)
		if err != nil {
			return BulkResult{}, fmt.Errorf("failed to decode updated slot: %w", err)
		}
		result.Updated = append(result.Updated, p)
	}

	return result, nil
}

// ChangeHostingStatus sends the status mutation and returns the slot as the
// service stored it.
func (c *Client) ChangeHostingStatus(ctx context.Context, change slot.StatusChange) (slot.PersistedSlot, error) {
	c.logger.Debug("changing hosting status", "slot_id", change.ID, "status", change.Status)

	var data struct {
		Payload StatusChangePayload `json:"slotHostingStatusUpdate"`
	}
	err := c.do(ctx, httpclient.Request{
		Query:         StatusChangeDocument,
		OperationName: OperationStatusChange,
		Variables:     map[string]any{"input": EncodeStatusChange(change, c.loc)},
	}, &data)
	if err != nil {
		return slot.PersistedSlot{}, err
	}

	p, err := data.Payload.Slot.Decode(c.loc)
	if err != nil {
		return slot.PersistedSlot{}, fmt.Errorf("failed to decode slot: %w", err)
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, req httpclient.Request, out any) error {
	err := c.http.DoGraphQL(ctx, req, out)
	var respErr *httpclient.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("%w: %w", ErrGraphQL, respErr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", req.OperationName, err)
	}
	return nil
}

var _ Service = (*Client)(nil)
