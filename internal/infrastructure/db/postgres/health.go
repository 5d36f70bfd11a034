package postgres

import "context"

// HealthChecker runs a trivial query against the pool.
type HealthChecker struct {
	db DB
}

func NewHealthChecker(db DB) *HealthChecker {
	return &HealthChecker{db: db}
}

func (h *HealthChecker) Name() string { return "postgres" }

func (h *HealthChecker) Check(ctx context.Context) error {
	var one int
	return h.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}
