// Package cip provides a client for Canto Cumulus CIP, the HTTP/JSON API
// digital-asset-management installations use to publish their catalogs.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Client: owns the session token, the catalog cache and the layout cache,
//     and dispatches every CIP operation through a Transport
//   - Catalog, Table, Layout: discovery of collections and their schemas
//   - SearchResult: a server-side result collection paged on demand
//   - Asset: a fetched row with download and preview URL construction
//   - Errors: one error kind per failure class
//
// # Usage
//
//	client, err := cip.NewClient(cip.Config{
//		Endpoint:       "http://samlinger.natmus.dk/CIP/",
//		CatalogAliases: map[string]string{"Frihedsmuseet": "FHM"},
//		Constants:      cip.Constants{CatchAllAlias: "any", LayoutAlias: "web"},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Open(ctx, username, password); err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(ctx)
//
//	table, _ := client.GetTable("FHM", "")
//	result, err := table.Search(ctx, "horse")
//	if err != nil {
//		log.Fatal(err)
//	}
//	for asset, err := range result.All(ctx, 50) {
//		if err != nil {
//			log.Fatal(err)
//		}
//		url, err := asset.DownloadURL()
//		if err != nil {
//			log.Fatal(err)
//		}
//		fmt.Println(asset.ID(), url)
//	}
//
// # Concurrency
//
// Every method that talks to the service blocks until the reply arrives or
// the per-call timeout (60 seconds by default) expires. Independent calls may
// run in parallel goroutines and complete in any order. The session token is
// read when a call is issued, so a call racing with Open or Close may go out
// with a stale token and come back as an APIError; the caller decides whether
// to retry.
//
// Catalogs are fetched once per Client. Concurrent fetches, forced or not,
// are coalesced into one request and the cached list is replaced as a whole.
//
// SearchResult.Get takes an explicit start index and may be called
// concurrently. SearchResult.Next keeps an internal read pointer and must not
// be shared between goroutines.
//
// # Error Handling
//
// Failures are classified with errors.Is:
//
//   - ErrPrecondition: invalid input or no session; nothing was sent
//   - ErrTransport: the service could not be reached or replied with non-JSON
//   - ErrRemote: HTTP status 400 or above, see APIError
//   - ErrMalformedResult: the reply lacks required fields
//   - ErrAuth: the login reply carried no session token
//
// IsRetryable reports whether a failure is worth retrying. The client itself
// never retries.
package cip
