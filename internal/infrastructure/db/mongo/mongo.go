package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultTimeout = 10 * time.Second
	indexTimeout   = 30 * time.Second
)

const (
	collectionUsers       = "users"
	collectionIssues      = "issues"
	collectionIssueEvents = "issue_events"
)

// Config is the connection target for the document store.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect dials MongoDB and pings the primary before returning the client
// and the selected database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("civic-reports").
		SetServerSelectionTimeout(timeout)
	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping %s: %w", cfg.Database, err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes every repository in this package relies
// on. The unique email index is what makes user creation race-safe.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := NewUserRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if err := NewIssueRepository(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("issues indexes: %w", err)
	}
	return nil
}
