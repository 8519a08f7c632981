package cip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name       string
		response   *TransportResponse
		wantErr    error
		wantToken  string
		wantRemote bool
	}{
		{
			name:      "token stored",
			response:  &TransportResponse{StatusCode: 200, Body: []byte(`{"jsessionid":"S123"}`)},
			wantToken: "S123",
		},
		{
			name:     "token missing",
			response: &TransportResponse{StatusCode: 200, Body: []byte(`{"user":"guest"}`)},
			wantErr:  ErrAuth,
		},
		{
			name:     "empty token",
			response: &TransportResponse{StatusCode: 200, Body: []byte(`{"jsessionid":""}`)},
			wantErr:  ErrAuth,
		},
		{
			name:     "empty body",
			response: &TransportResponse{StatusCode: 200},
			wantErr:  ErrAuth,
		},
		{
			name:     "rejected credentials",
			response: &TransportResponse{StatusCode: 401, Body: []byte(`{"message":"invalid login"}`)},
			wantErr:  ErrRemote,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{handler: func(*TransportRequest) (*TransportResponse, error) {
				return tt.response, nil
			}}
			c := newTestClient(t, transport)

			err := c.Open(context.Background(), "guest", "secret")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.False(t, c.IsConnected())
				return
			}

			require.NoError(t, err)
			assert.True(t, c.IsConnected())
			assert.Equal(t, tt.wantToken, c.Token())

			req := transport.last()
			assert.Equal(t, "session/open", operationOf(req))
			assert.NotContains(t, req.URL, "secret")
			form := formOf(t, req)
			assert.Equal(t, "guest", form.Get("user"))
			assert.Equal(t, "secret", form.Get("password"))
		})
	}
}

func TestOpenMissingTokenIsMalformed(t *testing.T) {
	c := newTestClient(t, &fakeTransport{handler: func(*TransportRequest) (*TransportResponse, error) {
		return jsonResponse(map[string]any{})
	}})

	err := c.Open(context.Background(), "guest", "secret")
	assert.ErrorIs(t, err, ErrMalformedResult)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "jsessionid is missing")
}

func TestOpenRequiresUsername(t *testing.T) {
	c := newTestClient(t, failingTransport{t: t})
	assert.ErrorIs(t, c.Open(context.Background(), "", "secret"), ErrPrecondition)
}

func TestSubsequentCallsCarryToken(t *testing.T) {
	transport := &fakeTransport{handler: routeHandler(t, map[string]any{
		"session/open":         map[string]any{"jsessionid": "S123"},
		"metadata/getcatalogs": map[string]any{"catalogs": []any{}},
	})}
	c := newTestClient(t, transport)

	require.NoError(t, c.Open(context.Background(), "guest", "secret"))
	_, err := c.Catalogs(context.Background(), false)
	require.NoError(t, err)

	assert.Contains(t, transport.last().URL, ";jsessionid=S123")
}

func TestClose(t *testing.T) {
	t.Run("clears token", func(t *testing.T) {
		transport := &fakeTransport{}
		c := connectedClient(t, transport)

		require.NoError(t, c.Close(context.Background()))
		assert.False(t, c.IsConnected())
		assert.Equal(t, "session/close", operationOf(transport.last()))
		assert.Contains(t, transport.last().URL, ";jsessionid=S123")
	})

	t.Run("clears token when the call fails", func(t *testing.T) {
		c := connectedClient(t, &fakeTransport{handler: func(*TransportRequest) (*TransportResponse, error) {
			return nil, errors.New("connection reset")
		}})

		err := c.Close(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTransport)
		assert.False(t, c.IsConnected())

		// Nothing is left to close.
		assert.ErrorIs(t, c.Close(context.Background()), ErrNotConnected)
	})

	t.Run("requires a session", func(t *testing.T) {
		c := newTestClient(t, failingTransport{t: t})
		assert.ErrorIs(t, c.Close(context.Background()), ErrNotConnected)
	})
}

func TestOperationsRequireSession(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t, failingTransport{t: t})

	table, err := c.GetTable("FHM", "")
	require.NoError(t, err)
	asset, err := c.GetAsset(ctx, "FHM", "42", false)
	require.NoError(t, err)
	result := &SearchResult{collectionID: "c1", totalRows: 10, catalog: table.Catalog, client: c}

	operations := map[string]func() error{
		"close": func() error { return c.Close(ctx) },
		"catalogs": func() error {
			_, err := c.Catalogs(ctx, false)
			return err
		},
		"catalogs forced": func() error {
			_, err := c.Catalogs(ctx, true)
			return err
		},
		"tables": func() error {
			_, err := table.Catalog.Tables(ctx)
			return err
		},
		"categories": func() error {
			_, err := table.Catalog.Categories(ctx, 1, 2)
			return err
		},
		"layout": func() error {
			_, err := table.Layout(ctx)
			return err
		},
		"search": func() error {
			_, err := c.Search(ctx, table, "horse")
			return err
		},
		"criteria search": func() error {
			_, err := c.CriteriaSearch(ctx, table, "id == 1", "")
			return err
		},
		"get asset with metadata": func() error {
			_, err := c.GetAsset(ctx, "FHM", "42", true)
			return err
		},
		"result page": func() error {
			_, err := result.Get(ctx, 10, 0)
			return err
		},
		"result next": func() error {
			_, err := result.Next(ctx, 10)
			return err
		},
		"versions": func() error {
			_, err := asset.Versions(ctx)
			return err
		},
		"related assets": func() error {
			_, err := asset.RelatedAssets(ctx, RelationContains)
			return err
		},
		"server version": func() error {
			_, err := c.ServerVersion(ctx)
			return err
		},
	}

	for name, call := range operations {
		t.Run(name, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrPrecondition)
			assert.ErrorIs(t, err, ErrNotConnected)
		})
	}
}
