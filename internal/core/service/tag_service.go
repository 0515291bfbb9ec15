package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

type TagService struct {
	tags   ports.TagRepository
	cache  ports.CatalogCache
	logger zerolog.Logger
}

func NewTagService(tags ports.TagRepository, cache ports.CatalogCache, logger zerolog.Logger) *TagService {
	if cache == nil {
		cache = NopCatalogCache{}
	}
	return &TagService{tags: tags, cache: cache, logger: logger}
}

func (s *TagService) ListTags(ctx context.Context) ([]*domain.Tag, error) {
	tags, err := s.tags.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}
	return tags, nil
}

func (s *TagService) GetTag(ctx context.Context, id int64) (*domain.Tag, error) {
	return s.tags.FindByID(ctx, id)
}

func (s *TagService) CreateTag(ctx context.Context, title string) (*domain.Tag, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	return s.tags.Create(ctx, &domain.Tag{Title: title})
}

// UpdateTag renames a tag. Cached listings embed tag titles, so they are dropped.
func (s *TagService) UpdateTag(ctx context.Context, id int64, title string) (*domain.Tag, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.NewValidationError("title is required")
	}
	tag, err := s.tags.Update(ctx, id, title)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return tag, nil
}

func (s *TagService) DeleteTag(ctx context.Context, id int64) error {
	if err := s.tags.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info().Int64("tag_id", id).Msg("tag deleted")
	return nil
}

func (s *TagService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
	}
}
