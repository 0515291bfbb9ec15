package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/shop-api/internal/core/domain"
)

type tagDoc struct {
	ID        int64     `bson:"_id"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d tagDoc) toDomain() domain.Tag {
	return domain.Tag{ID: d.ID, Title: d.Title, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}

type TagRepository struct {
	tags     *mongo.Collection
	products *mongo.Collection
	ids      sequence
}

func NewTagRepository(db *mongo.Database) *TagRepository {
	return &TagRepository{
		tags:     db.Collection(collectionTags),
		products: db.Collection(collectionProducts),
		ids:      newSequence(db, collectionTags),
	}
}

func (r *TagRepository) List(ctx context.Context) ([]*domain.Tag, error) {
	return r.find(ctx, bson.M{})
}

func (r *TagRepository) FindByID(ctx context.Context, id int64) (*domain.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc tagDoc
	if err := r.tags.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTagNotFound
		}
		return nil, fmt.Errorf("find tag %d: %w", id, err)
	}
	t := doc.toDomain()
	return &t, nil
}

func (r *TagRepository) FindByTitles(ctx context.Context, titles []string) ([]*domain.Tag, error) {
	if len(titles) == 0 {
		return []*domain.Tag{}, nil
	}
	return r.find(ctx, bson.M{"title": bson.M{"$in": titles}})
}

func (r *TagRepository) Create(ctx context.Context, tag *domain.Tag) (*domain.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	doc := tagDoc{ID: id, Title: tag.Title, CreatedAt: now, UpdatedAt: now}
	if _, err := r.tags.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrTagExists
		}
		return nil, fmt.Errorf("insert tag: %w", err)
	}
	t := doc.toDomain()
	return &t, nil
}

func (r *TagRepository) Update(ctx context.Context, id int64, title string) (*domain.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc tagDoc
	err := r.tags.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"title": title, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, domain.ErrTagNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, domain.ErrTagExists
		}
		return nil, fmt.Errorf("update tag %d: %w", id, err)
	}
	t := doc.toDomain()
	return &t, nil
}

// Delete removes the tag and then pulls its id from every product. Products
// never resolve ids of deleted tags, so a failed pull leaves no visible
// association behind.
func (r *TagRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.tags.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete tag %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTagNotFound
	}
	if _, err := r.products.UpdateMany(ctx,
		bson.M{"tag_ids": id},
		bson.M{"$pull": bson.M{"tag_ids": id}},
	); err != nil {
		return fmt.Errorf("detach tag %d: %w", id, err)
	}
	return nil
}

func (r *TagRepository) find(ctx context.Context, filter bson.M) ([]*domain.Tag, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.tags.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find tags: %w", err)
	}
	var docs []tagDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	out := make([]*domain.Tag, 0, len(docs))
	for _, d := range docs {
		t := d.toDomain()
		out = append(out, &t)
	}
	return out, nil
}
