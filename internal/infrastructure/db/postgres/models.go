package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/storefront/shop-api/internal/core/domain"
)

type Role struct {
	ID        int64  `gorm:"primaryKey"`
	Title     string `gorm:"size:64;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"size:255;not null;uniqueIndex:idx_users_username_email"`
	Email        string `gorm:"size:255;not null;uniqueIndex:idx_users_email;uniqueIndex:idx_users_username_email"`
	PasswordHash string `gorm:"column:password;size:255;not null"`
	RoleID       int64  `gorm:"not null;index"`
	Role         Role   `gorm:"foreignKey:RoleID"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Tag struct {
	ID        int64  `gorm:"primaryKey"`
	Title     string `gorm:"size:255;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product maps the products table. References is stored as reference_count
// since REFERENCES is an SQL keyword.
type Product struct {
	ID          int64           `gorm:"primaryKey"`
	Title       string          `gorm:"size:255;not null"`
	Slug        string          `gorm:"size:255;not null;index"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0"`
	Description string          `gorm:"type:text"`
	References  int             `gorm:"column:reference_count;not null;default:0;index"`
	Tags        []Tag           `gorm:"many2many:product_tags"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductTag is the product/tag association row.
type ProductTag struct {
	ProductID int64 `gorm:"primaryKey"`
	TagID     int64 `gorm:"primaryKey;index"`
}

func (ProductTag) TableName() string { return "product_tags" }

func (r Role) toDomain() domain.Role {
	return domain.Role{ID: r.ID, Title: r.Title}
}

func (u User) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		RoleID:       u.RoleID,
		Role:         u.Role.toDomain(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (t Tag) toDomain() domain.Tag {
	return domain.Tag{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

func (p Product) toDomain() *domain.Product {
	tags := make([]domain.Tag, 0, len(p.Tags))
	for _, t := range p.Tags {
		tags = append(tags, t.toDomain())
	}
	return &domain.Product{
		ID:          p.ID,
		Title:       p.Title,
		Slug:        p.Slug,
		Price:       p.Price,
		Description: p.Description,
		References:  p.References,
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
