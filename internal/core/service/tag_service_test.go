package service

import (
	"context"
	"errors"
	"testing"

	"github.com/storefront/shop-api/internal/core/domain"
)

func newTestTagService() (*TagService, *ProductService, *stubCatalog, *stubCache) {
	catalog := newStubCatalog()
	cache := newStubCache()
	tags := NewTagService(stubTagRepo{catalog}, cache, discardLogger)
	products := NewProductService(stubProductRepo{catalog}, stubTagRepo{catalog}, cache, CatalogOptions{}, discardLogger)
	return tags, products, catalog, cache
}

func TestTagService_CreateTrimsAndRejectsDuplicates(t *testing.T) {
	svc, _, _, _ := newTestTagService()

	tag, err := svc.CreateTag(context.Background(), "  summer ")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if tag.Title != "summer" {
		t.Errorf("expected trimmed title, got %q", tag.Title)
	}

	if _, err := svc.CreateTag(context.Background(), "summer"); !errors.Is(err, domain.ErrTagExists) {
		t.Fatalf("expected ErrTagExists, got %v", err)
	}
	if _, err := svc.CreateTag(context.Background(), " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTagService_ListReturnsEmptySlice(t *testing.T) {
	svc, _, _, _ := newTestTagService()

	tags, err := svc.ListTags(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if tags == nil || len(tags) != 0 {
		t.Errorf("expected empty slice, got %v", tags)
	}
}

func TestTagService_UpdateInvalidatesCache(t *testing.T) {
	svc, _, catalog, cache := newTestTagService()
	tag := catalog.seedTag("old")

	updated, err := svc.UpdateTag(context.Background(), tag.ID, "new")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Title != "new" {
		t.Errorf("expected title new, got %q", updated.Title)
	}
	if cache.invalidated != 1 {
		t.Errorf("expected 1 invalidation, got %d", cache.invalidated)
	}

	if _, err := svc.UpdateTag(context.Background(), 404, "x"); !errors.Is(err, domain.ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}

func TestTagService_DeleteDetachesProducts(t *testing.T) {
	svc, products, catalog, _ := newTestTagService()
	sale := catalog.seedTag("sale")
	catalog.seedTag("new")
	p := createProduct(t, products, "Shirt", 1, "sale", "new")

	if err := svc.DeleteTag(context.Background(), sale.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	got, err := products.GetProduct(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if titles := got.TagTitles(); len(titles) != 1 || titles[0] != "new" {
		t.Errorf("expected tags [new], got %v", titles)
	}
	if _, err := svc.GetTag(context.Background(), sale.ID); !errors.Is(err, domain.ErrTagNotFound) {
		t.Fatalf("expected ErrTagNotFound, got %v", err)
	}
}
