package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/civicwatch/civic-reports/internal/core/domain"
	"github.com/civicwatch/civic-reports/internal/core/ports"
)

// DefaultTokenTTL is the lifetime of a session token.
const DefaultTokenTTL = 24 * time.Hour

// TokenService issues HS256 JWTs carrying only sub, iat and exp.
type TokenService struct {
	secret   []byte
	ttl      time.Duration
	denylist ports.TokenDenylist
	now      func() time.Time
	log      zerolog.Logger
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithDenylist enables server-side revocation.
func WithDenylist(d ports.TokenDenylist) TokenOption {
	return func(s *TokenService) { s.denylist = d }
}

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// WithTokenLogger sets the logger used to report denylist failures.
func WithTokenLogger(log zerolog.Logger) TokenOption {
	return func(s *TokenService) { s.log = log }
}

func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.TokenService = (*TokenService)(nil)

// Issue signs a token for userID.
func (s *TokenService) Issue(userID string) (string, error) {
	if userID == "" {
		return "", errors.New("issue token: empty user id")
	}
	now := s.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry and returns the subject.
func (s *TokenService) Verify(ctx context.Context, token string) (string, error) {
	claims, err := s.parse(token)
	if err != nil {
		return "", err
	}

	if s.denylist != nil {
		revoked, err := s.denylist.Contains(ctx, Fingerprint(token))
		if err != nil {
			// An unreachable denylist must not lock every user out.
			s.log.Warn().Err(err).Msg("token denylist lookup failed")
		} else if revoked {
			return "", fmt.Errorf("%w: revoked", domain.ErrInvalidToken)
		}
	}

	return claims.Subject, nil
}

// Revoke denylists token for the rest of its lifetime.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if s.denylist == nil {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Add(ctx, Fingerprint(token), ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *TokenService) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return claims, nil
}

// Fingerprint is the denylist key for a token.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
