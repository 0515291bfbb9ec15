package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// CatalogOptions tunes listing behaviour.
type CatalogOptions struct {
	// LegacyTagListing makes tag-filtered listings return every tagged product,
	// in or out of stock, without applying the page slice. Pagination metadata
	// is still computed from the filtered count.
	LegacyTagListing bool
}

type ProductService struct {
	products ports.ProductRepository
	tags     ports.TagRepository
	cache    ports.CatalogCache
	opts     CatalogOptions
	logger   zerolog.Logger
}

// NewProductService returns a ProductService. A nil cache disables caching.
func NewProductService(products ports.ProductRepository, tags ports.TagRepository, cache ports.CatalogCache, opts CatalogOptions, logger zerolog.Logger) *ProductService {
	if cache == nil {
		cache = NopCatalogCache{}
	}
	return &ProductService{products: products, tags: tags, cache: cache, opts: opts, logger: logger}
}

// ListProducts returns one page of the catalog. Without tags only in-stock
// products are listed.
func (s *ProductService) ListProducts(ctx context.Context, in ports.ListProductsInput) (*ports.ListProductsResult, error) {
	page := domain.NewPage(in.Page, in.PageSize)
	titles := normalizeTitles(in.Tags)

	filter := ports.ProductFilter{
		InStockOnly: true,
		TagTitles:   titles,
		Limit:       page.Size,
		Offset:      page.Offset(),
	}
	legacy := len(titles) > 0 && s.opts.LegacyTagListing
	if legacy {
		filter.InStockOnly = false
		filter.Limit = 0
		filter.Offset = 0
	}

	key := listingKey(page, titles, legacy)
	cached, slot, err := s.cache.GetListing(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed, querying store")
	} else if cached != nil {
		return cached, nil
	}

	products, count, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if products == nil {
		products = []*domain.Product{}
	}

	result := &ports.ListProductsResult{
		Count:       count,
		CurrentPage: page.Number,
		TotalPages:  page.TotalPages(count),
		Results:     products,
	}

	if slot == "" {
		return result, nil
	}
	if err := s.cache.SetListing(ctx, slot, result); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
	}
	return result, nil
}

// GetProduct returns domain.ErrProductNotFound when id does not resolve.
func (s *ProductService) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// CreateProduct validates that every requested tag exists before writing
// anything; unknown titles are reported together in request order.
func (s *ProductService) CreateProduct(ctx context.Context, in ports.CreateProductInput) (*domain.Product, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	if err := validateStock(in.Price, in.References); err != nil {
		return nil, err
	}

	tagIDs, err := s.resolveTags(ctx, in.Tags)
	if err != nil {
		return nil, err
	}

	created, err := s.products.Create(ctx, &domain.Product{
		Title:       title,
		Slug:        slug.Make(title),
		Price:       in.Price,
		Description: in.Description,
		References:  in.References,
	}, tagIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to create product")
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", created.ID).Strs("tags", created.TagTitles()).Msg("product created")
	return created, nil
}

// UpdateProduct applies a partial update. When Tags is set the product's tag
// set is replaced as a whole, after every title has been validated.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, in ports.UpdateProductInput) (*domain.Product, error) {
	current, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := ports.ProductChanges{
		Price:       in.Price,
		Description: in.Description,
		References:  in.References,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, domain.NewValidationError("title must not be empty")
		}
		sl := slug.Make(title)
		changes.Title = &title
		changes.Slug = &sl
	}

	price, refs := current.Price, current.References
	if in.Price != nil {
		price = *in.Price
	}
	if in.References != nil {
		refs = *in.References
	}
	if err := validateStock(price, refs); err != nil {
		return nil, err
	}

	if in.Tags != nil {
		ids, err := s.resolveTags(ctx, *in.Tags)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []int64{}
		}
		changes.TagIDs = &ids
	}

	updated, err := s.products.Update(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", id).Bool("tags_replaced", in.Tags != nil).Msg("product updated")
	return updated, nil
}

// DeleteProduct removes the product; its tag associations go with it.
func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("product_id", id).Msg("product deleted")
	return nil
}

// resolveTags maps titles to tag ids, preserving request order and dropping
// duplicates. Any unknown title fails the whole call.
func (s *ProductService) resolveTags(ctx context.Context, titles []string) ([]int64, error) {
	titles = normalizeTitles(titles)
	if len(titles) == 0 {
		return nil, nil
	}

	found, err := s.tags.FindByTitles(ctx, titles)
	if err != nil {
		return nil, fmt.Errorf("resolve tags: %w", err)
	}
	byTitle := make(map[string]int64, len(found))
	for _, t := range found {
		byTitle[t.Title] = t.ID
	}

	ids := make([]int64, 0, len(titles))
	var missing []string
	for _, title := range titles {
		id, ok := byTitle[title]
		if !ok {
			missing = append(missing, title)
			continue
		}
		ids = append(ids, id)
	}
	if len(missing) > 0 {
		return nil, domain.NewMissingTagsError(missing)
	}
	return ids, nil
}

func (s *ProductService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}

// maxPrice is the first value the numeric(12,2) price column cannot hold.
var maxPrice = decimal.New(1, 10)

func validateStock(price decimal.Decimal, references int) error {
	if price.IsNegative() {
		return domain.NewValidationError("price must not be negative")
	}
	if !price.Equal(price.Truncate(2)) {
		return domain.NewValidationError("price must have at most 2 decimal places")
	}
	if price.GreaterThanOrEqual(maxPrice) {
		return domain.NewValidationError("price must be lower than " + maxPrice.String())
	}
	if references < 0 {
		return domain.NewValidationError("references must not be negative")
	}
	return nil
}

// normalizeTitles trims titles, drops empty entries and duplicates, and keeps
// the first-seen order.
func normalizeTitles(titles []string) []string {
	if len(titles) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(titles))
	out := make([]string, 0, len(titles))
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func listingKey(page domain.Page, titles []string, legacy bool) string {
	sorted := append([]string(nil), titles...)
	sort.Strings(sorted)
	return fmt.Sprintf("products:p=%d:s=%d:legacy=%t:tags=%s", page.Number, page.Size, legacy, strings.Join(sorted, ","))
}

// NopCatalogCache never stores anything.
type NopCatalogCache struct{}

func (NopCatalogCache) GetListing(context.Context, string) (*ports.ListProductsResult, string, error) {
	return nil, "", nil
}

func (NopCatalogCache) SetListing(context.Context, string, *ports.ListProductsResult) error {
	return nil
}

func (NopCatalogCache) Invalidate(context.Context) error { return nil }
