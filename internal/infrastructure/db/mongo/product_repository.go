package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/storefront/shop-api/internal/core/domain"
	"github.com/storefront/shop-api/internal/core/ports"
)

// productDoc embeds the tag association as an id array, so a product and its
// tag set are always written by a single document operation.
type productDoc struct {
	ID          int64                `bson:"_id"`
	Title       string               `bson:"title"`
	Slug        string               `bson:"slug"`
	Price       primitive.Decimal128 `bson:"price"`
	Description string               `bson:"description"`
	References  int                  `bson:"references"`
	TagIDs      []int64              `bson:"tag_ids"`
	CreatedAt   time.Time            `bson:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at"`
}

type ProductRepository struct {
	products *mongo.Collection
	tags     *mongo.Collection
	ids      sequence
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{
		products: db.Collection(collectionProducts),
		tags:     db.Collection(collectionTags),
		ids:      newSequence(db, collectionProducts),
	}
}

func (r *ProductRepository) List(ctx context.Context, filter ports.ProductFilter) ([]*domain.Product, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tagIDs []int64
	if len(filter.TagTitles) > 0 {
		ids, err := r.tagIDsByTitle(ctx, filter.TagTitles)
		if err != nil {
			return nil, 0, err
		}
		if len(ids) == 0 {
			return []*domain.Product{}, 0, nil
		}
		tagIDs = ids
	}
	query := productQuery(filter, tagIDs)

	count, err := r.products.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	cur, err := r.products.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	var docs []productDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}

	tags, err := r.tagsOf(ctx, docs...)
	if err != nil {
		return nil, 0, err
	}
	out := make([]*domain.Product, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain(tags)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, count, nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc productDoc
	if err := r.products.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product %d: %w", id, err)
	}
	return r.resolve(ctx, doc)
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product, tagIDs []int64) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	price, err := toDecimal128(product.Price)
	if err != nil {
		return nil, err
	}
	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	if tagIDs == nil {
		tagIDs = []int64{}
	}
	now := time.Now().UTC()
	doc := productDoc{
		ID:          id,
		Title:       product.Title,
		Slug:        product.Slug,
		Price:       price,
		Description: product.Description,
		References:  product.References,
		TagIDs:      tagIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.products.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert product: %w", err)
	}
	return r.resolve(ctx, doc)
}

func (r *ProductRepository) Update(ctx context.Context, id int64, changes ports.ProductChanges) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set, err := productUpdate(changes)
	if err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()

	var doc productDoc
	err = r.products.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product %d: %w", id, err)
	}
	return r.resolve(ctx, doc)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) resolve(ctx context.Context, doc productDoc) (*domain.Product, error) {
	tags, err := r.tagsOf(ctx, doc)
	if err != nil {
		return nil, err
	}
	return doc.toDomain(tags)
}

// tagsOf loads the tags referenced by docs with one query, keyed by id.
func (r *ProductRepository) tagsOf(ctx context.Context, docs ...productDoc) (map[int64]domain.Tag, error) {
	seen := map[int64]struct{}{}
	var ids []int64
	for _, d := range docs {
		for _, id := range d.TagIDs {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	tags := make(map[int64]domain.Tag, len(ids))
	if len(ids) == 0 {
		return tags, nil
	}

	cur, err := r.tags.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("load product tags: %w", err)
	}
	var found []tagDoc
	if err := cur.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode product tags: %w", err)
	}
	for _, t := range found {
		tags[t.ID] = t.toDomain()
	}
	return tags, nil
}

func (r *ProductRepository) tagIDsByTitle(ctx context.Context, titles []string) ([]int64, error) {
	cur, err := r.tags.Find(ctx, bson.M{"title": bson.M{"$in": titles}},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("resolve tag filter: %w", err)
	}
	var docs []struct {
		ID int64 `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tag filter: %w", err)
	}
	ids := make([]int64, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

func productQuery(filter ports.ProductFilter, tagIDs []int64) bson.M {
	query := bson.M{}
	if filter.InStockOnly {
		query["references"] = bson.M{"$gt": 0}
	}
	if len(tagIDs) > 0 {
		query["tag_ids"] = bson.M{"$in": tagIDs}
	}
	return query
}

// productUpdate builds the $set document. A non-nil TagIDs replaces the whole
// association array in the same write as the field changes.
func productUpdate(changes ports.ProductChanges) (bson.M, error) {
	set := bson.M{}
	if changes.Title != nil {
		set["title"] = *changes.Title
	}
	if changes.Slug != nil {
		set["slug"] = *changes.Slug
	}
	if changes.Price != nil {
		price, err := toDecimal128(*changes.Price)
		if err != nil {
			return nil, err
		}
		set["price"] = price
	}
	if changes.Description != nil {
		set["description"] = *changes.Description
	}
	if changes.References != nil {
		set["references"] = *changes.References
	}
	if changes.TagIDs != nil {
		ids := *changes.TagIDs
		if ids == nil {
			ids = []int64{}
		}
		set["tag_ids"] = ids
	}
	return set, nil
}

func (d productDoc) toDomain(tags map[int64]domain.Tag) (*domain.Product, error) {
	price, err := fromDecimal128(d.Price)
	if err != nil {
		return nil, err
	}
	p := &domain.Product{
		ID:          d.ID,
		Title:       d.Title,
		Slug:        d.Slug,
		Price:       price,
		Description: d.Description,
		References:  d.References,
		Tags:        make([]domain.Tag, 0, len(d.TagIDs)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for _, id := range d.TagIDs {
		if t, ok := tags[id]; ok {
			p.Tags = append(p.Tags, t)
		}
	}
	return p, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("encode price %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("decode price %s: %w", v, err)
	}
	return d, nil
}
