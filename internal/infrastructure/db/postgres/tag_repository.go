package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/storefront/shop-api/internal/core/domain"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

func (r *TagRepository) List(ctx context.Context) ([]*domain.Tag, error) {
	var rows []Tag
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return toDomainTags(rows), nil
}

func (r *TagRepository) FindByID(ctx context.Context, id int64) (*domain.Tag, error) {
	var m Tag
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if isNotFound(err) {
			return nil, domain.ErrTagNotFound
		}
		return nil, fmt.Errorf("find tag %d: %w", id, err)
	}
	t := m.toDomain()
	return &t, nil
}

func (r *TagRepository) FindByTitles(ctx context.Context, titles []string) ([]*domain.Tag, error) {
	if len(titles) == 0 {
		return []*domain.Tag{}, nil
	}
	var rows []Tag
	if err := r.db.WithContext(ctx).Where("title IN ?", titles).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find tags by title: %w", err)
	}
	return toDomainTags(rows), nil
}

func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) (*domain.Tag, error) {
	m := Tag{Title: tag.Title}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrTagExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	t := m.toDomain()
	return &t, nil
}

func (r *TagRepository) Update(ctx context.Context, id int64, title string) (*domain.Tag, error) {
	var m Tag
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&m, id).Error; err != nil {
			return err
		}
		return tx.Model(&m).Update("title", title).Error
	})
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, domain.ErrTagNotFound
		case isUniqueViolation(err):
			return nil, domain.ErrTagExists
		}
		return nil, fmt.Errorf("update tag %d: %w", id, err)
	}
	t := m.toDomain()
	return &t, nil
}

// Delete removes the tag together with its product associations.
func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_id = ?", id).Delete(&ProductTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Tag{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTagNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrTagNotFound) {
			return err
		}
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	return nil
}

func toDomainTags(rows []Tag) []*domain.Tag {
	out := make([]*domain.Tag, 0, len(rows))
	for _, m := range rows {
		t := m.toDomain()
		out = append(out, &t)
	}
	return out
}
