package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// HealthChecker pings Redis for the readiness probe.
type HealthChecker struct {
	client *redis.Client
}

func NewHealthChecker(client *redis.Client) *HealthChecker {
	return &HealthChecker{client: client}
}

func (h *HealthChecker) Name() string { return "redis" }

func (h *HealthChecker) Check(ctx context.Context) error {
	return h.client.Ping(ctx).Err()
}
