package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/storefront/shop-api/internal/core/domain"
)

// ProductFilter carries the query parameters for listing products.
type ProductFilter struct {
	InStockOnly bool     // references > 0
	TagTitles   []string // optional: product must carry at least one of these tags
	Limit       int      // 0 = no limit
	Offset      int
}

// ProductChanges is a partial update. Nil fields are left untouched; a non-nil
// TagIDs replaces the whole association set.
type ProductChanges struct {
	Title       *string
	Slug        *string
	Price       *decimal.Decimal
	Description *string
	References  *int
	TagIDs      *[]int64
}

// ProductRepository defines persistence for products and their tag associations.
// Returned products always have Tags populated.
type ProductRepository interface {
	// List returns the products matching filter (ordered by id) and the total
	// number of matches ignoring Limit/Offset.
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int64, error)
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	// Create inserts the product and associates tagIDs as one unit of work.
	Create(ctx context.Context, product *domain.Product, tagIDs []int64) (*domain.Product, error)
	// Update applies changes as one unit of work. Missing product yields domain.ErrProductNotFound.
	Update(ctx context.Context, id int64, changes ProductChanges) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

// TagRepository defines persistence for tags.
type TagRepository interface {
	List(ctx context.Context) ([]*domain.Tag, error)
	FindByID(ctx context.Context, id int64) (*domain.Tag, error)
	// FindByTitles returns the tags whose title is in titles, in no particular order.
	FindByTitles(ctx context.Context, titles []string) ([]*domain.Tag, error)
	// Create persists a tag; a duplicate title yields domain.ErrTagExists.
	Create(ctx context.Context, tag *domain.Tag) (*domain.Tag, error)
	Update(ctx context.Context, id int64, title string) (*domain.Tag, error)
	// Delete removes the tag and every product association that references it.
	Delete(ctx context.Context, id int64) error
}
