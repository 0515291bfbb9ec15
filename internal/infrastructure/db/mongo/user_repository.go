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

type roleDoc struct {
	ID    int64  `bson:"_id"`
	Title string `bson:"title"`
}

type userDoc struct {
	ID           int64     `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	RoleID       int64     `bson:"role_id"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type UserRepository struct {
	users *mongo.Collection
	roles *mongo.Collection
	ids   sequence
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		users: db.Collection(collectionUsers),
		roles: db.Collection(collectionRoles),
		ids:   newSequence(db, collectionUsers),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	doc := userDoc{
		ID:           id,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		RoleID:       user.RoleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return r.withRole(ctx, doc)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	roles, err := r.roleTitles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain(domain.Role{ID: d.RoleID, Title: roles[d.RoleID]}))
	}
	return out, nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc userDoc
	if err := r.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return r.withRole(ctx, doc)
}

func (r *UserRepository) withRole(ctx context.Context, doc userDoc) (*domain.User, error) {
	var role roleDoc
	if err := r.roles.FindOne(ctx, bson.M{"_id": doc.RoleID}).Decode(&role); err != nil {
		return nil, fmt.Errorf("resolve role %d of user %d: %w", doc.RoleID, doc.ID, err)
	}
	return doc.toDomain(domain.Role{ID: role.ID, Title: role.Title}), nil
}

func (r *UserRepository) roleTitles(ctx context.Context) (map[int64]string, error) {
	cur, err := r.roles.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	var docs []roleDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode roles: %w", err)
	}
	titles := make(map[int64]string, len(docs))
	for _, d := range docs {
		titles[d.ID] = d.Title
	}
	return titles, nil
}

func (d userDoc) toDomain(role domain.Role) *domain.User {
	return &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		RoleID:       d.RoleID,
		Role:         role,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type RoleRepository struct {
	roles *mongo.Collection
	ids   sequence
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{roles: db.Collection(collectionRoles), ids: newSequence(db, collectionRoles)}
}

// EnsureRole finds the role by title, inserting it with the next id when absent.
// A concurrent insert of the same title is resolved by reading it back.
func (r *RoleRepository) EnsureRole(ctx context.Context, title string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc roleDoc
	err := r.roles.FindOne(ctx, bson.M{"title": title}).Decode(&doc)
	if err == nil {
		return &domain.Role{ID: doc.ID, Title: doc.Title}, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("find role %q: %w", title, err)
	}

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	doc = roleDoc{ID: id, Title: title}
	if _, err := r.roles.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if err := r.roles.FindOne(ctx, bson.M{"title": title}).Decode(&doc); err != nil {
				return nil, fmt.Errorf("reload role %q: %w", title, err)
			}
			return &domain.Role{ID: doc.ID, Title: doc.Title}, nil
		}
		return nil, fmt.Errorf("insert role %q: %w", title, err)
	}
	return &domain.Role{ID: doc.ID, Title: doc.Title}, nil
}
