package cip

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

// DefaultTable is the table holding asset records in every catalog
const DefaultTable = "AssetRecords"

const catalogsFlight = "catalogs"

// Catalog is a named collection on the CIP service together with the alias
// used for it in URL paths. Catalogs are immutable.
type Catalog struct {
	Name  string
	Alias string

	// Attributes holds every field the service returned for the catalog
	Attributes map[string]any

	client *Client
}

// newCatalog resolves the alias for a catalog description. An explicit
// "alias" attribute wins over the configured name mapping.
func (c *Client) newCatalog(attrs map[string]any) (*Catalog, error) {
	cat := &Catalog{
		Attributes: maps.Clone(attrs),
		client:     c,
	}
	if name, ok := attrs["name"].(string); ok {
		cat.Name = name
	}
	if alias, ok := attrs["alias"].(string); ok {
		cat.Alias = alias
	}
	if cat.Alias == "" {
		cat.Alias = c.cfg.CatalogAliases[cat.Name]
	}
	if cat.Alias == "" {
		return nil, preconditionf("catalog", "no alias configured for catalog %q", cat.Name)
	}
	return cat, nil
}

type catalogsResponse struct {
	Catalogs []map[string]any `json:"catalogs"`
}

// Catalogs returns the catalogs that have a configured alias. The list is
// fetched once and served from memory afterwards; forceRefresh replaces it
// with a fresh copy from the service.
//
// Concurrent fetches share one request. That request is bounded by the
// client timeout rather than by any caller's context, so a caller that gives
// up returns its own ctx error while the others still receive the result.
func (c *Client) Catalogs(ctx context.Context, forceRefresh bool) ([]*Catalog, error) {
	const op = "metadata/getcatalogs"
	if err := c.requireSession(op); err != nil {
		return nil, err
	}

	if !forceRefresh {
		if cached := c.catalogs.Load(); cached != nil {
			return slices.Clone(*cached), nil
		}
	}

	fetch := c.catalogGroup.DoChan(catalogsFlight, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetchCatalogs(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: op, URL: BuildURL(c.endpoint, op, nil, ""), Err: ctx.Err()}
	case res := <-fetch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]*Catalog)), nil
	}
}

func (c *Client) fetchCatalogs(ctx context.Context) ([]*Catalog, error) {
	const op = "metadata/getcatalogs"

	var payload catalogsResponse
	if err := c.callJSON(ctx, Op(op), nil, &payload); err != nil {
		return nil, err
	}
	if payload.Catalogs == nil {
		return nil, malformedf(op, "missing catalogs")
	}

	catalogs := make([]*Catalog, 0, len(payload.Catalogs))
	for _, raw := range payload.Catalogs {
		cat, err := c.newCatalog(raw)
		if err != nil {
			c.logger.Debug().
				Interface("catalog", raw["name"]).
				Msg("Ignoring catalog without a configured alias")
			continue
		}
		catalogs = append(catalogs, cat)
	}

	c.catalogs.Store(&catalogs)

	c.logger.Debug().
		Int("received", len(payload.Catalogs)).
		Int("usable", len(catalogs)).
		Msg("Retrieved catalogs from CIP")

	return catalogs, nil
}

// CatalogByAlias looks up a catalog in the cached list, fetching it first if needed
func (c *Client) CatalogByAlias(ctx context.Context, alias string) (*Catalog, error) {
	return c.findCatalog(ctx, func(cat *Catalog) bool { return cat.Alias == alias }, alias)
}

// CatalogByName looks up a catalog by its service-side name
func (c *Client) CatalogByName(ctx context.Context, name string) (*Catalog, error) {
	return c.findCatalog(ctx, func(cat *Catalog) bool { return cat.Name == name }, name)
}

func (c *Client) findCatalog(ctx context.Context, match func(*Catalog) bool, key string) (*Catalog, error) {
	catalogs, err := c.Catalogs(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, cat := range catalogs {
		if match(cat) {
			return cat, nil
		}
	}
	return nil, &PreconditionError{
		Op:     "catalog",
		Reason: fmt.Sprintf("no catalog matches %q", key),
		Err:    ErrCatalogNotFound,
	}
}

type tablesResponse struct {
	Tables []string `json:"tables"`
}

// Tables lists the tables of the catalog
func (cat *Catalog) Tables(ctx context.Context) ([]*Table, error) {
	const op = "metadata/gettables"
	c := cat.client
	if err := c.requireSession(op); err != nil {
		return nil, err
	}
	if c.cfg.Constants.CatchAllAlias == "" {
		return nil, preconditionf(op, "the catch-all alias constant must be set in the config")
	}
	if cat.Name == "" {
		return nil, preconditionf(op, "catalog %q has no name", cat.Alias)
	}

	var payload tablesResponse
	if err := c.callJSON(ctx, Operation{"metadata", "gettables", c.cfg.Constants.CatchAllAlias}, Params{
		"catalogname": cat.Name,
	}, &payload); err != nil {
		return nil, err
	}
	if payload.Tables == nil {
		return nil, malformedf(op, "missing tables")
	}

	tables := make([]*Table, 0, len(payload.Tables))
	for _, name := range payload.Tables {
		tables = append(tables, cat.Table(name))
	}
	return tables, nil
}

// Table returns a handle for a table of the catalog. An empty name selects DefaultTable.
func (cat *Catalog) Table(name string) *Table {
	if name == "" {
		name = DefaultTable
	}
	return &Table{Name: name, Catalog: cat}
}

// Category is a node of a catalog's category tree
type Category struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Subcategories []Category `json:"subcategories,omitempty"`
}

type categoriesResponse struct {
	Categories []Category `json:"categories"`
}

// Categories returns the category tree below categoryID, levels deep
func (cat *Catalog) Categories(ctx context.Context, categoryID int64, levels int) ([]Category, error) {
	const op = "metadata/getcategories"
	c := cat.client
	if err := c.requireSession(op); err != nil {
		return nil, err
	}

	var payload categoriesResponse
	if err := c.callJSON(ctx, Operation{"metadata", "getcategories", cat.Alias, "categories"}, Params{
		"categoryid": categoryID,
		"levels":     levels,
	}, &payload); err != nil {
		return nil, err
	}
	if payload.Categories == nil {
		return nil, malformedf(op, "missing categories")
	}
	return payload.Categories, nil
}
