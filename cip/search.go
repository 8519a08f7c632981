package cip

import (
	"context"
	"strings"
)

// SearchQuery holds the search criteria. At least one of QueryString and
// QuickSearch must be set.
type SearchQuery struct {
	// QueryString is an expression in the Cumulus query language
	QueryString string
	// QuickSearch is free text matched against the quick-search fields
	QuickSearch string
	// SortBy names the field to sort on
	SortBy string
}

type collectionResponse struct {
	Collection *string `json:"collection"`
	TotalCount *int    `json:"totalcount"`
}

type itemsResponse struct {
	Items []map[string]any `json:"items"`
}

// Search runs a free-text search in table
func (c *Client) Search(ctx context.Context, table *Table, text string) (*SearchResult, error) {
	return c.AdvancedSearch(ctx, table, SearchQuery{QuickSearch: text})
}

// CriteriaSearch runs a query-language search in table, optionally sorted
func (c *Client) CriteriaSearch(ctx context.Context, table *Table, query, sortBy string) (*SearchResult, error) {
	return c.AdvancedSearch(ctx, table, SearchQuery{QueryString: query, SortBy: sortBy})
}

// AdvancedSearch asks the service to allocate a result collection for q and
// returns a cursor over it. No rows are fetched yet.
func (c *Client) AdvancedSearch(ctx context.Context, table *Table, q SearchQuery) (*SearchResult, error) {
	const op = "metadata/search"
	if err := c.checkSearch(op, table, q); err != nil {
		return nil, err
	}

	params := q.params(table)
	// An empty collection makes the service create one and report its name.
	params["collection"] = ""

	var payload collectionResponse
	if err := c.callJSON(ctx, Operation{"metadata", "search", table.Catalog.Alias}, params, &payload); err != nil {
		return nil, err
	}

	if payload.Collection == nil || *payload.Collection == "" {
		return nil, malformedf(op, "missing collection")
	}
	if payload.TotalCount == nil {
		return nil, malformedf(op, "missing totalcount")
	}

	result, err := newSearchResult(c, *payload.Collection, *payload.TotalCount, table.Catalog)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("catalog", table.Catalog.Alias).
		Str("table", table.Name).
		Str("collection", result.CollectionID()).
		Int("total", result.TotalRows()).
		Msg("Search collection allocated")

	return result, nil
}

// searchSingle runs q expecting exactly one row, returned directly
func (c *Client) searchSingle(ctx context.Context, table *Table, q SearchQuery) (*Asset, error) {
	const op = "metadata/search"
	if err := c.checkSearch(op, table, q); err != nil {
		return nil, err
	}
	layoutAlias, err := c.layoutAlias(op)
	if err != nil {
		return nil, err
	}

	params := q.params(table)
	params["maxreturned"] = 1

	resp, err := c.Call(ctx, Operation{"metadata", "search", table.Catalog.Alias, layoutAlias}, params, nil)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return nil, malformedf(op, "received an empty result when searching")
	}

	var payload itemsResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Items == nil {
		return nil, malformedf(op, "missing items")
	}
	if len(payload.Items) != 1 {
		return nil, malformedf(op, "expected one asset, got %d", len(payload.Items))
	}

	return newAsset(payload.Items[0], table.Catalog), nil
}

// GetTable returns a handle for a table in the catalog with the given alias.
// An empty name selects DefaultTable.
func (c *Client) GetTable(alias, name string) (*Table, error) {
	if alias == "" {
		return nil, preconditionf("table", "catalog must have an alias")
	}
	cat, err := c.newCatalog(map[string]any{"alias": alias})
	if err != nil {
		return nil, err
	}
	for catName, catAlias := range c.cfg.CatalogAliases {
		if catAlias == alias {
			cat.Name = catName
			break
		}
	}
	return cat.Table(name), nil
}

// GetAsset returns the asset with assetID in the catalog with the given
// alias. With fetchMetadata it searches for the asset and fails unless
// exactly one row matches; without it only the id is populated and no
// request is made.
func (c *Client) GetAsset(ctx context.Context, alias, assetID string, fetchMetadata bool) (*Asset, error) {
	if assetID == "" {
		return nil, preconditionf("asset", "the asset id must have a value")
	}
	table, err := c.GetTable(alias, "")
	if err != nil {
		return nil, err
	}

	if !fetchMetadata {
		return newAsset(map[string]any{"id": assetID}, table.Catalog), nil
	}

	return c.searchSingle(ctx, table, SearchQuery{QueryString: "id == " + assetID})
}

func (c *Client) checkSearch(op string, table *Table, q SearchQuery) error {
	if c == nil {
		return preconditionf(op, "table is not bound to a client")
	}
	if err := c.requireSession(op); err != nil {
		return err
	}
	if table == nil || table.Catalog == nil {
		return preconditionf(op, "a table with a catalog is required")
	}
	if table.Catalog.Alias == "" {
		return preconditionf(op, "catalog must have an alias")
	}
	if strings.TrimSpace(q.QueryString) == "" && strings.TrimSpace(q.QuickSearch) == "" {
		return preconditionf(op, "either a query string or a search term must be given")
	}
	return nil
}

func (q SearchQuery) params(table *Table) Params {
	params := Params{"table": table.Name}
	if q.QueryString != "" {
		params["querystring"] = q.QueryString
	}
	if q.QuickSearch != "" {
		params["quicksearchstring"] = q.QuickSearch
	}
	if q.SortBy != "" {
		params["sortby"] = q.SortBy
	}
	return params
}
