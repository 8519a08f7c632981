package cip

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	opSessionOpen = "session/open"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json"

	maxErrorBodyLen = 512
)

// Config describes a CIP endpoint. It is copied into the Client at
// construction time; later changes to the caller's value have no effect.
type Config struct {
	// Endpoint is the base URL of the CIP service, e.g. http://host/CIP/
	Endpoint string

	APIVersion      int
	ServerAddress   string
	TrustSelfSigned bool

	// CatalogAliases maps catalog names to the short aliases used in URL paths
	CatalogAliases map[string]string

	Constants Constants
}

// Constants holds the fixed aliases a CIP installation exposes
type Constants struct {
	// CatchAllAlias is the catalog alias that spans every catalog
	CatchAllAlias string
	// LayoutAlias is the view used for searches and field retrieval
	LayoutAlias string
}

// Client is a CIP client. It owns one session, the catalog cache and the
// layout cache. A Client is safe for concurrent use.
type Client struct {
	endpoint  string
	cfg       Config
	defaults  Params
	transport Transport
	timeout   time.Duration
	logger    zerolog.Logger

	mu    sync.RWMutex
	token string

	catalogs     atomic.Pointer[[]*Catalog]
	catalogGroup singleflight.Group

	layouts *lru.Cache[string, *Layout]
}

// NewClient creates a new CIP client. No network call is made.
func NewClient(cfg Config, logger zerolog.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, preconditionf("", "config must have an endpoint")
	}

	o := clientOptions{
		timeout:         DefaultTimeout,
		layoutCacheSize: DefaultLayoutCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = NewHTTPTransport()
	}

	layouts, err := lru.New[string, *Layout](o.layoutCacheSize)
	if err != nil {
		return nil, &PreconditionError{Reason: "invalid layout cache size", Err: err}
	}

	endpoint := cfg.Endpoint
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}

	cfg.Endpoint = endpoint
	cfg.CatalogAliases = maps.Clone(cfg.CatalogAliases)

	return &Client{
		endpoint:  endpoint,
		cfg:       cfg,
		defaults:  DefaultParams(cfg.APIVersion, cfg.ServerAddress),
		transport: o.transport,
		timeout:   o.timeout,
		logger:    logger,
		layouts:   layouts,
	}, nil
}

// Endpoint returns the normalized base URL
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Operation is a CIP operation path split into segments
type Operation []string

// Op splits a slash-joined operation path into an Operation
func Op(path string) Operation {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// String joins the segments with slashes
func (o Operation) String() string {
	return strings.Join(o, "/")
}

// Response is a successful CIP reply
type Response struct {
	StatusCode int
	Body       json.RawMessage
	op         string
}

// Empty reports whether the service sent no body
func (r *Response) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// Decode unmarshals the body into v, keeping numbers as json.Number
func (r *Response) Decode(v any) error {
	if r.Empty() {
		return malformedf(r.op, "empty response body")
	}
	dec := json.NewDecoder(bytes.NewReader(r.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return &MalformedResultError{Op: r.op, Reason: "failed to decode response", Err: err}
	}
	return nil
}

// Call issues a CIP operation. Without a body, params merged with the
// defaults are form-encoded into the POST body; with a body, it is sent as
// JSON and the merged params travel in the query string.
//
// Call only warns when no session is open since some installations allow
// anonymous access. Higher level methods enforce the session themselves.
func (c *Client) Call(ctx context.Context, op Operation, params Params, body any) (*Response, error) {
	path := op.String()
	if path == "" {
		return nil, preconditionf("", "operation must not be empty")
	}

	token := c.Token()
	if token == "" && path != opSessionOpen {
		c.logger.Warn().
			Str("operation", path).
			Msg("No session token, consider opening a session before calling other operations")
	}

	merged := MergeParams(c.defaults, params)
	req := &TransportRequest{
		Timeout:               c.timeout,
		RejectUnauthorizedTLS: !c.cfg.TrustSelfSigned,
	}

	if body == nil {
		req.URL = BuildURL(c.endpoint, path, nil, token)
		req.Body = []byte(merged.Encode())
		req.ContentType = contentTypeForm
	} else {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &PreconditionError{Op: path, Reason: "failed to encode request body", Err: err}
		}
		req.URL = BuildURL(c.endpoint, path, merged, token)
		req.Body = payload
		req.ContentType = contentTypeJSON
	}

	start := time.Now()
	resp, err := c.transport.Post(ctx, req)
	if err != nil {
		c.logger.Debug().
			Err(err).
			Str("operation", path).
			Dur("duration", time.Since(start)).
			Msg("CIP request failed")
		return nil, &TransportError{Op: path, URL: BuildURL(c.endpoint, path, nil, ""), Err: err}
	}

	c.logger.Debug().
		Str("operation", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("CIP request completed")

	if resp.StatusCode >= 400 {
		return nil, newAPIError(path, resp)
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &Response{StatusCode: resp.StatusCode, op: path}, nil
	}

	if !json.Valid(resp.Body) {
		return nil, &TransportError{
			Op:  path,
			URL: BuildURL(c.endpoint, path, nil, ""),
			Err: fmt.Errorf("response body is not JSON (%d bytes)", len(resp.Body)),
		}
	}

	return &Response{StatusCode: resp.StatusCode, Body: resp.Body, op: path}, nil
}

// callJSON issues op and decodes the reply into out
func (c *Client) callJSON(ctx context.Context, op Operation, params Params, out any) error {
	resp, err := c.Call(ctx, op, params, nil)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

func newAPIError(op string, resp *TransportResponse) *APIError {
	apiErr := &APIError{
		Op:         op,
		StatusCode: resp.StatusCode,
	}

	body := resp.Body
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen]
	}
	apiErr.Body = string(body)

	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body, &payload) == nil {
		apiErr.Message = payload.Message
	}

	return apiErr
}

// requireSession fails with a precondition error when no session is open
func (c *Client) requireSession(op string) error {
	if !c.IsConnected() {
		return notConnected(op)
	}
	return nil
}

func (c *Client) layoutAlias(op string) (string, error) {
	if c.cfg.Constants.LayoutAlias == "" {
		return "", preconditionf(op, "the layout alias constant must be set in the config")
	}
	return c.cfg.Constants.LayoutAlias, nil
}
