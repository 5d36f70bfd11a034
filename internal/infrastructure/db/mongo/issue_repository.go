package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// IssueRepository implements ports.IssueRepository using MongoDB.
type IssueRepository struct {
	col *mongo.Collection
}

func NewIssueRepository(db *mongo.Database) *IssueRepository {
	return &IssueRepository{col: db.Collection(collectionIssues)}
}

var _ ports.IssueRepository = (*IssueRepository)(nil)

// Create inserts a new issue document.
func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, issue)
	return err
}

// FindByID retrieves an issue by id.
func (r *IssueRepository) FindByID(ctx context.Context, id string) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var issue domain.Issue
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&issue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, err
	}
	return &issue, nil
}

// List returns a page of issues sorted newest first. History is left out;
// FindByID returns it.
func (r *IssueRepository) List(ctx context.Context, f ports.ListIssuesFilter) ([]*domain.Issue, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.Category != "" {
		filter["category"] = string(f.Category)
	}
	if f.UserID != "" {
		filter["user_id"] = f.UserID
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.Limit)).
		SetProjection(bson.M{"status_history": 0})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find issues: %w", err)
	}
	defer cur.Close(ctx)

	issues := make([]*domain.Issue, 0, f.Limit)
	if err := cur.All(ctx, &issues); err != nil {
		return nil, 0, fmt.Errorf("decode issues: %w", err)
	}
	return issues, total, nil
}

// UpdateStatus atomically sets the status and appends a history entry.
func (r *IssueRepository) UpdateStatus(ctx context.Context, id string, change domain.StatusChange) (*domain.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"status":     string(change.Status),
			"updated_at": change.Timestamp.UTC(),
		},
		"$push": bson.M{"status_history": change},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var issue domain.Issue
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&issue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("update issue status: %w", err)
	}
	return &issue, nil
}

// EnsureIndexes creates necessary indexes on the issues collection.
func (r *IssueRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
