package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/storefront/shop-api/internal/core/domain"
)

// ListProductsInput carries the raw listing query. Non-positive Page/PageSize
// are normalized by the service.
type ListProductsInput struct {
	Page     int
	PageSize int
	Tags     []string
}

// ListProductsResult is the paginated listing envelope.
type ListProductsResult struct {
	Count       int64             `json:"count"`
	CurrentPage int               `json:"currentPage"`
	TotalPages  int               `json:"totalPages"`
	Results     []*domain.Product `json:"results"`
}

// CreateProductInput carries the data for a new product. Tags are titles.
type CreateProductInput struct {
	Title       string
	Price       decimal.Decimal
	Description string
	References  int
	Tags        []string
}

// UpdateProductInput is a partial update; nil fields are untouched and a
// non-nil Tags replaces the product's tag set.
type UpdateProductInput struct {
	Title       *string
	Price       *decimal.Decimal
	Description *string
	References  *int
	Tags        *[]string
}

type ProductService interface {
	ListProducts(ctx context.Context, in ListProductsInput) (*ListProductsResult, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in CreateProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, in UpdateProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
}

type TagService interface {
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	GetTag(ctx context.Context, id int64) (*domain.Tag, error)
	CreateTag(ctx context.Context, title string) (*domain.Tag, error)
	UpdateTag(ctx context.Context, id int64, title string) (*domain.Tag, error)
	DeleteTag(ctx context.Context, id int64) error
}
