package cip

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxResponseBytes bounds the size of a buffered response body
const maxResponseBytes = 64 << 20

// Transport performs the POST requests issued by the dispatcher
type Transport interface {
	Post(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// TransportRequest describes a single POST
type TransportRequest struct {
	URL                   string
	Body                  []byte
	ContentType           string
	Timeout               time.Duration
	RejectUnauthorizedTLS bool
}

// TransportResponse is the raw outcome of a POST that reached the server
type TransportResponse struct {
	StatusCode int
	Body       []byte
}

// HTTPTransport is the net/http implementation of Transport
type HTTPTransport struct {
	strict   *http.Client
	insecure *http.Client
}

// HTTPTransportOption configures an HTTPTransport
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient uses client for requests that verify TLS certificates
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.strict = client
	}
}

// NewHTTPTransport creates a transport backed by net/http
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	base := http.DefaultTransport.(*http.Transport)

	insecureTransport := base.Clone()
	insecureTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via trust_self_signed

	t := &HTTPTransport{
		strict:   &http.Client{Transport: base.Clone()},
		insecure: &http.Client{Transport: insecureTransport},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Post sends the request and buffers the response body
func (t *HTTPTransport) Post(ctx context.Context, r *TransportRequest) (*TransportResponse, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(r.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}
	req.Header.Set("Accept", "application/json")

	client := t.strict
	if !r.RejectUnauthorizedTLS {
		client = t.insecure
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &TransportResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
	}, nil
}
