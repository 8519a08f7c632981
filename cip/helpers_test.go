package cip

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const testEndpoint = "http://cip.example.com/CIP/"

// fakeTransport records every request and answers through handler
type fakeTransport struct {
	mu       sync.Mutex
	requests []*TransportRequest
	handler  func(req *TransportRequest) (*TransportResponse, error)
}

func (f *fakeTransport) Post(_ context.Context, req *TransportRequest) (*TransportResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	handler := f.handler
	f.mu.Unlock()

	if handler == nil {
		return &TransportResponse{StatusCode: 200}, nil
	}
	return handler(req)
}

func (f *fakeTransport) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeTransport) last() *TransportRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

// failingTransport fails the test when invoked
type failingTransport struct {
	t *testing.T
}

func (f failingTransport) Post(_ context.Context, req *TransportRequest) (*TransportResponse, error) {
	f.t.Errorf("transport must not be invoked, got request to %s", req.URL)
	return nil, context.Canceled
}

func testConfig() Config {
	return Config{
		Endpoint: testEndpoint,
		CatalogAliases: map[string]string{
			"Frihedsmuseet":      "FHM",
			"Danmarks Nyere Tid": "DNT",
		},
		Constants: Constants{
			CatchAllAlias: "any",
			LayoutAlias:   "web",
		},
	}
}

func newTestClient(t *testing.T, transport Transport) *Client {
	t.Helper()
	c, err := NewClient(testConfig(), zerolog.Nop(), WithTransport(transport))
	require.NoError(t, err)
	return c
}

// connectedClient returns a client holding the session token S123
func connectedClient(t *testing.T, transport Transport) *Client {
	t.Helper()
	c := newTestClient(t, transport)
	c.token = "S123"
	return c
}

// jsonResponse answers with body encoded as JSON
func jsonResponse(body any) (*TransportResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return &TransportResponse{StatusCode: 200, Body: data}, nil
}

// routeHandler answers by operation path
func routeHandler(t *testing.T, routes map[string]any) func(*TransportRequest) (*TransportResponse, error) {
	return func(req *TransportRequest) (*TransportResponse, error) {
		op := operationOf(req)
		body, ok := routes[op]
		if !ok {
			t.Errorf("unexpected operation %q", op)
			return &TransportResponse{StatusCode: 404}, nil
		}
		return jsonResponse(body)
	}
}

// operationOf extracts the operation path from a request URL
func operationOf(req *TransportRequest) string {
	path := strings.TrimPrefix(req.URL, testEndpoint)
	if i := strings.IndexAny(path, ";?"); i >= 0 {
		path = path[:i]
	}
	return path
}

// formOf parses a form-encoded request body
func formOf(t *testing.T, req *TransportRequest) url.Values {
	t.Helper()
	values, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	return values
}
