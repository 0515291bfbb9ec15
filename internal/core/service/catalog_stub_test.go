package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory catalog store shared by the product and tag stubs
// ---------------------------------------------------------------------------

type stubCatalog struct {
	products   map[int64]*domain.Product
	productTag map[int64][]int64
	tags       map[int64]*domain.Tag
	nextProd   int64
	nextTag    int64
	lastFilter ports.ProductFilter
	writes     int
	listErr    error
	// onList runs after the store has been read, before List returns.
	onList func()
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{
		products:   make(map[int64]*domain.Product),
		productTag: make(map[int64][]int64),
		tags:       make(map[int64]*domain.Tag),
	}
}

func (c *stubCatalog) seedTag(title string) *domain.Tag {
	c.nextTag++
	tag := &domain.Tag{ID: c.nextTag, Title: title}
	c.tags[tag.ID] = tag
	return tag
}

func (c *stubCatalog) withTags(p *domain.Product) *domain.Product {
	clone := *p
	clone.Tags = []domain.Tag{}
	for _, id := range c.productTag[p.ID] {
		clone.Tags = append(clone.Tags, *c.tags[id])
	}
	return &clone
}

type stubProductRepo struct{ *stubCatalog }

func (r stubProductRepo) List(_ context.Context, f ports.ProductFilter) ([]*domain.Product, int64, error) {
	r.lastFilter = f
	if r.listErr != nil {
		return nil, 0, r.listErr
	}

	ids := make([]int64, 0, len(r.products))
	for id := range r.products {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var matched []*domain.Product
	for _, id := range ids {
		p := r.withTags(r.products[id])
		if f.InStockOnly && p.References <= 0 {
			continue
		}
		if len(f.TagTitles) > 0 && !hasAnyTag(p, f.TagTitles) {
			continue
		}
		matched = append(matched, p)
	}

	total := int64(len(matched))
	if f.Offset > len(matched) {
		return []*domain.Product{}, total, nil
	}
	matched = matched[f.Offset:]
	if f.Limit > 0 && f.Limit < len(matched) {
		matched = matched[:f.Limit]
	}
	if r.onList != nil {
		r.onList()
	}
	return matched, total, nil
}

func hasAnyTag(p *domain.Product, titles []string) bool {
	for _, t := range p.Tags {
		for _, want := range titles {
			if t.Title == want {
				return true
			}
		}
	}
	return false
}

func (r stubProductRepo) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return r.withTags(p), nil
}

func (r stubProductRepo) Create(_ context.Context, p *domain.Product, tagIDs []int64) (*domain.Product, error) {
	r.writes++
	r.nextProd++
	clone := *p
	clone.ID = r.nextProd
	r.products[clone.ID] = &clone
	r.productTag[clone.ID] = append([]int64(nil), tagIDs...)
	return r.withTags(&clone), nil
}

func (r stubProductRepo) Update(_ context.Context, id int64, ch ports.ProductChanges) (*domain.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	r.writes++
	if ch.Title != nil {
		p.Title = *ch.Title
	}
	if ch.Slug != nil {
		p.Slug = *ch.Slug
	}
	if ch.Price != nil {
		p.Price = *ch.Price
	}
	if ch.Description != nil {
		p.Description = *ch.Description
	}
	if ch.References != nil {
		p.References = *ch.References
	}
	if ch.TagIDs != nil {
		r.productTag[id] = append([]int64(nil), (*ch.TagIDs)...)
	}
	return r.withTags(p), nil
}

func (r stubProductRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	r.writes++
	delete(r.products, id)
	delete(r.productTag, id)
	return nil
}

type stubTagRepo struct{ *stubCatalog }

func (r stubTagRepo) List(_ context.Context) ([]*domain.Tag, error) {
	out := make([]*domain.Tag, 0, len(r.tags))
	for id := int64(1); id <= r.nextTag; id++ {
		if t, ok := r.tags[id]; ok {
			clone := *t
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r stubTagRepo) FindByID(_ context.Context, id int64) (*domain.Tag, error) {
	t, ok := r.tags[id]
	if !ok {
		return nil, domain.ErrTagNotFound
	}
	clone := *t
	return &clone, nil
}

func (r stubTagRepo) FindByTitles(_ context.Context, titles []string) ([]*domain.Tag, error) {
	var out []*domain.Tag
	for _, t := range r.tags {
		for _, want := range titles {
			if t.Title == want {
				clone := *t
				out = append(out, &clone)
			}
		}
	}
	return out, nil
}

func (r stubTagRepo) Create(_ context.Context, tag *domain.Tag) (*domain.Tag, error) {
	for _, t := range r.tags {
		if t.Title == tag.Title {
			return nil, domain.ErrTagExists
		}
	}
	clone := *r.seedTag(tag.Title)
	return &clone, nil
}

func (r stubTagRepo) Update(_ context.Context, id int64, title string) (*domain.Tag, error) {
	t, ok := r.tags[id]
	if !ok {
		return nil, domain.ErrTagNotFound
	}
	t.Title = title
	clone := *t
	return &clone, nil
}

func (r stubTagRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.tags[id]; !ok {
		return domain.ErrTagNotFound
	}
	delete(r.tags, id)
	for pid, ids := range r.productTag {
		kept := ids[:0]
		for _, tid := range ids {
			if tid != id {
				kept = append(kept, tid)
			}
		}
		r.productTag[pid] = kept
	}
	return nil
}

// ---------------------------------------------------------------------------
// Recording cache
// ---------------------------------------------------------------------------

type stubCache struct {
	entries      map[string]*ports.ListProductsResult
	generation   int
	invalidated  int
	failReads    bool
	lastReadKeys []string
}

func newStubCache() *stubCache {
	return &stubCache{entries: make(map[string]*ports.ListProductsResult)}
}

func (c *stubCache) slot(key string) string {
	return fmt.Sprintf("%d|%s", c.generation, key)
}

func (c *stubCache) GetListing(_ context.Context, key string) (*ports.ListProductsResult, string, error) {
	c.lastReadKeys = append(c.lastReadKeys, key)
	if c.failReads {
		return nil, "", errors.New("cache down")
	}
	slot := c.slot(key)
	return c.entries[slot], slot, nil
}

func (c *stubCache) SetListing(_ context.Context, slot string, res *ports.ListProductsResult) error {
	c.entries[slot] = res
	return nil
}

func (c *stubCache) Invalidate(context.Context) error {
	c.invalidated++
	c.generation++
	return nil
}

// live counts entries reachable under the current generation.
func (c *stubCache) live() int {
	prefix := fmt.Sprintf("%d|", c.generation)
	n := 0
	for slot := range c.entries {
		if len(slot) >= len(prefix) && slot[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}
