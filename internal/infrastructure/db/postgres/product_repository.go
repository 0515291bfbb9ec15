package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// List counts and fetches with the same filter scope; Limit/Offset only apply
// to the fetch.
func (r *ProductRepository) List(ctx context.Context, filter ports.ProductFilter) ([]*domain.Product, int64, error) {
	scope := r.filterScope(filter)

	var count int64
	if err := r.db.WithContext(ctx).Model(&Product{}).Scopes(scope).Count(&count).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	q := r.db.WithContext(ctx).Scopes(scope).Preload("Tags", orderTags).Order("products.id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	out := make([]*domain.Product, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.toDomain())
	}
	return out, count, nil
}

func (r *ProductRepository) filterScope(filter ports.ProductFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.InStockOnly {
			db = db.Where("products.reference_count > ?", 0)
		}
		if len(filter.TagTitles) > 0 {
			tagged := r.db.Table("product_tags").
				Select("product_tags.product_id").
				Joins("JOIN tags ON tags.id = product_tags.tag_id").
				Where("tags.title IN ?", filter.TagTitles)
			db = db.Where("products.id IN (?)", tagged)
		}
		return db
	}
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	m, err := findProduct(r.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return m.toDomain(), nil
}

// Create writes the product row and its associations in one transaction.
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product, tagIDs []int64) (*domain.Product, error) {
	m := Product{
		Title:       product.Title,
		Slug:        product.Slug,
		Price:       product.Price,
		Description: product.Description,
		References:  product.References,
	}

	var created *Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags").Create(&m).Error; err != nil {
			return err
		}
		if err := replaceTags(tx, m.ID, tagIDs); err != nil {
			return err
		}
		var err error
		created, err = findProduct(tx, m.ID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return created.toDomain(), nil
}

func (r *ProductRepository) Update(ctx context.Context, id int64, changes ports.ProductChanges) (*domain.Product, error) {
	var updated *Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m Product
		if err := tx.First(&m, id).Error; err != nil {
			if isNotFound(err) {
				return domain.ErrProductNotFound
			}
			return err
		}

		if fields := changedColumns(changes); len(fields) > 0 {
			if err := tx.Model(&m).Updates(fields).Error; err != nil {
				return err
			}
		}
		if changes.TagIDs != nil {
			if err := replaceTags(tx, id, *changes.TagIDs); err != nil {
				return err
			}
		}

		var err error
		updated, err = findProduct(tx, id)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return updated.toDomain(), nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceTags(tx, id, nil); err != nil {
			return err
		}
		res := tx.Delete(&Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrProductNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return err
		}
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

func changedColumns(changes ports.ProductChanges) map[string]any {
	fields := map[string]any{}
	if changes.Title != nil {
		fields["title"] = *changes.Title
	}
	if changes.Slug != nil {
		fields["slug"] = *changes.Slug
	}
	if changes.Price != nil {
		fields["price"] = *changes.Price
	}
	if changes.Description != nil {
		fields["description"] = *changes.Description
	}
	if changes.References != nil {
		fields["reference_count"] = *changes.References
	}
	return fields
}

// findProduct loads the product row and attaches its tags through tagsOf.
func findProduct(db *gorm.DB, id int64) (*Product, error) {
	var m Product
	if err := db.First(&m, id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrProductNotFound
		}
		return nil, err
	}
	tags, err := tagsOf(db, id)
	if err != nil {
		return nil, err
	}
	m.Tags = tags
	return &m, nil
}

// replaceTags makes tagIDs the complete association set of the product.
func replaceTags(tx *gorm.DB, productID int64, tagIDs []int64) error {
	if err := tx.Where("product_id = ?", productID).Delete(&ProductTag{}).Error; err != nil {
		return fmt.Errorf("clear product tags: %w", err)
	}
	if len(tagIDs) == 0 {
		return nil
	}
	rows := make([]ProductTag, 0, len(tagIDs))
	for _, id := range tagIDs {
		rows = append(rows, ProductTag{ProductID: productID, TagID: id})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert product tags: %w", err)
	}
	return nil
}

func tagsOf(db *gorm.DB, productID int64) ([]Tag, error) {
	var tags []Tag
	err := db.Model(&Tag{}).
		Joins("JOIN product_tags ON product_tags.tag_id = tags.id").
		Where("product_tags.product_id = ?", productID).
		Order("tags.id").
		Find(&tags).Error
	if err != nil {
		return nil, fmt.Errorf("load product tags: %w", err)
	}
	return tags, nil
}

func orderTags(db *gorm.DB) *gorm.DB {
	return db.Order("tags.id")
}
