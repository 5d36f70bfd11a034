package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// HealthChecker verifies the database answers a ping command.
type HealthChecker struct {
	db *mongo.Database
}

func NewHealthChecker(db *mongo.Database) *HealthChecker {
	return &HealthChecker{db: db}
}

func (h *HealthChecker) Name() string { return "mongodb" }

func (h *HealthChecker) Check(ctx context.Context) error {
	if err := h.db.Client().Ping(ctx, nil); err != nil {
		return err
	}
	return h.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
}
