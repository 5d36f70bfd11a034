package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// UserRepository implements ports.UserRepository using MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(collectionUsers)}
}

var _ ports.UserRepository = (*UserRepository)(nil)

type mongoUser struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	Name         string    `bson:"name"`
	Role         string    `bson:"role"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (mu *mongoUser) toDomain() *domain.User {
	return &domain.User{
		ID:           mu.ID,
		Email:        mu.Email,
		Name:         mu.Name,
		Role:         domain.Role(mu.Role),
		PasswordHash: mu.PasswordHash,
		CreatedAt:    mu.CreatedAt.UTC(),
		UpdatedAt:    mu.UpdatedAt.UTC(),
	}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoUser{
		ID:           user.ID,
		Email:        user.Email,
		Name:         user.Name,
		Role:         string(user.Role),
		PasswordHash: user.PasswordHash,
		CreatedAt:    bsonTime(user.CreatedAt),
		UpdatedAt:    bsonTime(user.UpdatedAt),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mu mongoUser
	if err := r.coll.FindOne(ctx, filter).Decode(&mu); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return mu.toDomain(), nil
}

// Update applies the set fields with a single findOneAndUpdate.
func (r *UserRepository) Update(ctx context.Context, id string, update domain.UserUpdate) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	set := bson.M{"updated_at": bsonTime(time.Now())}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Email != nil {
		set["email"] = *update.Email
	}
	if update.Role != nil {
		set["role"] = string(*update.Role)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var mu mongoUser
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&mu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return mu.toDomain(), nil
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoUser
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*domain.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toDomain())
	}
	return users, nil
}

// EnsureIndexes creates the unique email index.
func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// bsonTime truncates t to the millisecond precision of a BSON datetime so
// the value returned from Create matches what a later read decodes.
func bsonTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
