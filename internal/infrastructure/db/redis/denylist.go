package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// Denylist stores fingerprints of revoked tokens until they would have
// expired on their own.
// Key format: revoked:<sha256 of token>
type Denylist struct {
	client *redis.Client
}

// NewDenylist creates a Denylist wrapping the given Redis client.
func NewDenylist(client *redis.Client) *Denylist {
	return &Denylist{client: client}
}

var _ ports.TokenDenylist = (*Denylist)(nil)

// Contains reports whether the fingerprint has been revoked.
func (d *Denylist) Contains(ctx context.Context, fingerprint string) (bool, error) {
	n, err := d.client.Exists(ctx, key(fingerprint)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

// Add revokes the fingerprint for ttl. Non-positive ttls are ignored since
// the token has already expired.
func (d *Denylist) Add(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, key(fingerprint), "1", ttl).Err(); err != nil {
		return fmt.Errorf("denylist add: %w", err)
	}
	return nil
}

func key(fingerprint string) string {
	return "revoked:" + fingerprint
}
