package cip

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTransportPost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, "user=guest", string(body))

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"jsessionid":"S123"}`))
	}))
	defer server.Close()

	resp, err := NewHTTPTransport().Post(context.Background(), &TransportRequest{
		URL:                   server.URL + "/CIP/session/open",
		Body:                  []byte("user=guest"),
		ContentType:           "application/x-www-form-urlencoded",
		RejectUnauthorizedTLS: true,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.JSONEq(t, `{"jsessionid":"S123"}`, string(resp.Body))
}

func TestHTTPTransportTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport()

	t.Run("self-signed certificate rejected", func(t *testing.T) {
		_, err := transport.Post(context.Background(), &TransportRequest{
			URL:                   server.URL,
			RejectUnauthorizedTLS: true,
		})
		assert.Error(t, err)
	})

	t.Run("self-signed certificate trusted", func(t *testing.T) {
		resp, err := transport.Post(context.Background(), &TransportRequest{
			URL:                   server.URL,
			RejectUnauthorizedTLS: false,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("custom strict client", func(t *testing.T) {
		resp, err := NewHTTPTransport(WithHTTPClient(server.Client())).Post(context.Background(), &TransportRequest{
			URL:                   server.URL,
			RejectUnauthorizedTLS: true,
		})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestHTTPTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	_, err := NewHTTPTransport().Post(context.Background(), &TransportRequest{
		URL:                   server.URL,
		Timeout:               50 * time.Millisecond,
		RejectUnauthorizedTLS: true,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClientOverHTTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/CIP/session/open":
			_, _ = w.Write([]byte(`{"jsessionid":"S123"}`))
		case "/CIP/metadata/getcatalogs;jsessionid=S123":
			_, _ = w.Write([]byte(`{"catalogs":[{"name":"Frihedsmuseet"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Endpoint = server.URL + "/CIP"
	c, err := NewClient(cfg, zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, c.Open(context.Background(), "guest", "secret"))
	catalogs, err := c.Catalogs(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, catalogs, 1)
	assert.Equal(t, "FHM", catalogs[0].Alias)
}
