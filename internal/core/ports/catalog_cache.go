package ports

import "context"

// CatalogCache stores rendered product listing pages.
//
// GetListing returns the page (nil on a miss) and the slot it was looked up
// in. A slot is bound to the cache generation current at read time, so a page
// written back with SetListing after an Invalidate lands in a dead slot and is
// never served. An empty slot means the page must not be stored.
type CatalogCache interface {
	GetListing(ctx context.Context, key string) (result *ListProductsResult, slot string, err error)
	SetListing(ctx context.Context, slot string, result *ListProductsResult) error
	// Invalidate drops every cached listing.
	Invalidate(ctx context.Context) error
}
