package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tag is a catalog label. Titles are unique.
type Tag struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Product is a catalog item. References is the stock quantity; a product is
// listed by default only while References > 0.
type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	References  int             `json:"references"`
	Tags        []Tag           `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// TagTitles returns the titles of the product's tags in stored order.
func (p *Product) TagTitles() []string {
	titles := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		titles = append(titles, t.Title)
	}
	return titles
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// Page is a normalized 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage normalizes non-positive values to DefaultPage / DefaultPageSize.
func NewPage(number, size int) Page {
	if number <= 0 {
		number = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	return Page{Number: number, Size: size}
}

// Offset is the number of rows skipped before this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages returns ceil(count / size).
func (p Page) TotalPages(count int64) int {
	if count <= 0 {
		return 0
	}
	size := int64(p.Size)
	return int((count + size - 1) / size)
}
