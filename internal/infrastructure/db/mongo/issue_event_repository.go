package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// IssueEventRepository implements ports.IssueEventRepository using MongoDB.
type IssueEventRepository struct {
	col *mongo.Collection
}

// NewIssueEventRepository creates a new IssueEventRepository.
func NewIssueEventRepository(db *mongo.Database) ports.IssueEventRepository {
	return &IssueEventRepository{col: db.Collection(collectionIssueEvents)}
}

// InsertEvent persists a status change to the issue_events audit collection.
func (r *IssueEventRepository) InsertEvent(ctx context.Context, event *domain.IssueEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"issue_id":    event.IssueID,
		"status":      string(event.Status),
		"changed_by":  event.ChangedBy,
		"timestamp":   event.Timestamp.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.Note != "" {
		doc["note"] = event.Note
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}
