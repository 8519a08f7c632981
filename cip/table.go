package cip

import (
	"context"
	"sync"
)

// Table is a named record type inside a catalog
type Table struct {
	Name    string
	Catalog *Catalog

	mu     sync.Mutex
	layout *Layout
}

type layoutResponse struct {
	Fields []FieldDefinition `json:"fields"`
}

// Layout returns the table's field schema. It is fetched on first use and
// kept on the table; the client also remembers recent layouts so that other
// handles for the same table skip the request.
func (t *Table) Layout(ctx context.Context) (*Layout, error) {
	const op = "metadata/getlayout"

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.layout != nil {
		return t.layout, nil
	}

	if t.Catalog == nil || t.Catalog.client == nil {
		return nil, preconditionf(op, "table %q has no catalog", t.Name)
	}
	c := t.Catalog.client
	if err := c.requireSession(op); err != nil {
		return nil, err
	}
	if t.Catalog.Alias == "" {
		return nil, preconditionf(op, "catalog must have an alias")
	}
	layoutAlias, err := c.layoutAlias(op)
	if err != nil {
		return nil, err
	}

	key := t.Catalog.Alias + "/" + t.Name
	if cached, ok := c.layouts.Get(key); ok {
		t.layout = cached
		return cached, nil
	}

	var payload layoutResponse
	if err := c.callJSON(ctx, Operation{"metadata", "getlayout", t.Catalog.Alias, layoutAlias}, Params{
		"table": t.Name,
	}, &payload); err != nil {
		return nil, err
	}
	if payload.Fields == nil {
		return nil, malformedf(op, "missing fields")
	}

	layout := NewLayout(payload.Fields)
	c.layouts.Add(key, layout)
	t.layout = layout

	c.logger.Debug().
		Str("catalog", t.Catalog.Alias).
		Str("table", t.Name).
		Int("fields", len(layout.Fields)).
		Msg("Retrieved layout from CIP")

	return layout, nil
}

// Search runs a free-text search in the table
func (t *Table) Search(ctx context.Context, text string) (*SearchResult, error) {
	return t.client().Search(ctx, t, text)
}

// CriteriaSearch runs a query-language search in the table
func (t *Table) CriteriaSearch(ctx context.Context, query, sortBy string) (*SearchResult, error) {
	return t.client().CriteriaSearch(ctx, t, query, sortBy)
}

func (t *Table) client() *Client {
	if t.Catalog == nil {
		return nil
	}
	return t.Catalog.client
}
