package cip

import (
	"context"
	"iter"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPageSize is used when a page size of zero or less is requested
	DefaultPageSize = 100

	defaultFetchConcurrency = 4
)

// SearchResult is a server-side result collection produced by a search.
// The collection id and row count never change. Get is safe for concurrent
// use; Next shares one read pointer and is not.
type SearchResult struct {
	collectionID string
	totalRows    int
	catalog      *Catalog
	client       *Client

	mu      sync.Mutex
	pointer int
}

func newSearchResult(c *Client, collectionID string, totalRows int, catalog *Catalog) (*SearchResult, error) {
	const op = "metadata/search"
	if collectionID == "" {
		return nil, malformedf(op, "collection id must be a non-empty string")
	}
	if totalRows < 0 {
		return nil, malformedf(op, "total row count must not be negative, got %d", totalRows)
	}
	return &SearchResult{
		collectionID: collectionID,
		totalRows:    totalRows,
		catalog:      catalog,
		client:       c,
	}, nil
}

// CollectionID returns the server-assigned collection name
func (r *SearchResult) CollectionID() string {
	return r.collectionID
}

// TotalRows returns the number of rows the search matched
func (r *SearchResult) TotalRows() int {
	return r.totalRows
}

// Catalog returns the catalog the search ran in
func (r *SearchResult) Catalog() *Catalog {
	return r.catalog
}

// Get fetches up to pageSize rows starting at startIndex. A page past the
// end of the collection is empty, not an error.
func (r *SearchResult) Get(ctx context.Context, pageSize, startIndex int) ([]*Asset, error) {
	const op = "metadata/getfieldvalues"
	c := r.client
	if err := c.requireSession(op); err != nil {
		return nil, err
	}
	layoutAlias, err := c.layoutAlias(op)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if startIndex < 0 {
		return nil, preconditionf(op, "start index must not be negative, got %d", startIndex)
	}

	resp, err := c.Call(ctx, Operation{"metadata", "getfieldvalues", layoutAlias}, Params{
		"collection":  r.collectionID,
		"startindex":  startIndex,
		"maxreturned": pageSize,
	}, nil)
	if err != nil {
		return nil, err
	}
	if resp.Empty() {
		return nil, malformedf(op, "the request for field values returned an empty result")
	}

	var payload itemsResponse
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Items == nil {
		return nil, malformedf(op, "missing items")
	}

	assets := make([]*Asset, 0, len(payload.Items))
	for _, item := range payload.Items {
		assets = append(assets, newAsset(item, r.catalog))
	}
	return assets, nil
}

// Next fetches the page at the internal read pointer and advances it by
// the number of rows returned.
func (r *SearchResult) Next(ctx context.Context, pageSize int) ([]*Asset, error) {
	r.mu.Lock()
	start := r.pointer
	r.mu.Unlock()

	assets, err := r.Get(ctx, pageSize, start)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.pointer = start + len(assets)
	r.mu.Unlock()

	return assets, nil
}

// Pointer returns the position Next will read from
func (r *SearchResult) Pointer() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointer
}

// Reset moves the read pointer back to the first row
func (r *SearchResult) Reset() {
	r.mu.Lock()
	r.pointer = 0
	r.mu.Unlock()
}

// All iterates over every row of the collection, one page at a time. The
// iteration stops at the first error, after a short page, or once TotalRows
// rows were read.
func (r *SearchResult) All(ctx context.Context, pageSize int) iter.Seq2[*Asset, error] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return func(yield func(*Asset, error) bool) {
		start := 0
		for start < r.totalRows {
			page, err := r.Get(ctx, pageSize, start)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, asset := range page {
				if !yield(asset, nil) {
					return
				}
			}
			if len(page) < pageSize {
				return
			}
			start += len(page)
		}
	}
}

// FetchAll reads every page of the collection with up to concurrency
// requests in flight and returns the rows in collection order.
func (r *SearchResult) FetchAll(ctx context.Context, pageSize, concurrency int) ([]*Asset, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if concurrency <= 0 {
		concurrency = defaultFetchConcurrency
	}
	if r.totalRows == 0 {
		return []*Asset{}, nil
	}

	pageCount := (r.totalRows + pageSize - 1) / pageSize
	pages := make([][]*Asset, pageCount)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range pageCount {
		g.Go(func() error {
			page, err := r.Get(ctx, pageSize, i*pageSize)
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	assets := make([]*Asset, 0, r.totalRows)
	for _, page := range pages {
		assets = append(assets, page...)
	}

	r.client.logger.Debug().
		Str("collection", r.collectionID).
		Int("pages", pageCount).
		Int("rows", len(assets)).
		Msg("Fetched all rows of collection")

	return assets, nil
}
