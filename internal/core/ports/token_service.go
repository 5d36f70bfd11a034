package ports

import (
	"context"
	"time"
)

// TokenService issues and verifies signed session tokens.
type TokenService interface {
	// Issue returns a token for userID that expires after the configured TTL.
	Issue(userID string) (string, error)
	// Verify returns the embedded user id or domain.ErrInvalidToken.
	Verify(ctx context.Context, token string) (string, error)
	// Revoke denylists token until its natural expiry. It is a no-op
	// when no denylist is configured.
	Revoke(ctx context.Context, token string) error
}

// TokenDenylist stores revoked token fingerprints.
type TokenDenylist interface {
	Add(ctx context.Context, fingerprint string, ttl time.Duration) error
	Contains(ctx context.Context, fingerprint string) (bool, error)
}
