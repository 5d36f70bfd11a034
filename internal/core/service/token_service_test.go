package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/civicwatch/civic-reports/internal/core/domain"
)

type fakeDenylist struct {
	entries map[string]time.Duration
	err     error
}

func newFakeDenylist() *fakeDenylist {
	return &fakeDenylist{entries: make(map[string]time.Duration)}
}

func (d *fakeDenylist) Add(_ context.Context, fp string, ttl time.Duration) error {
	if d.err != nil {
		return d.err
	}
	d.entries[fp] = ttl
	return nil
}

func (d *fakeDenylist) Contains(_ context.Context, fp string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.entries[fp]
	return ok, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService("secret", 0)

	token, err := svc.Issue("user-42")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	sub, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if sub != "user-42" {
		t.Fatalf("expected user-42, got %s", sub)
	}
}

func TestTokenService_ClaimsAreMinimal(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := NewTokenService("secret", 0, WithClock(fixedClock(issuedAt)))

	token, _ := svc.Issue("u-1")
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("parse: %v", err)
	}

	if len(claims) != 3 {
		t.Fatalf("expected only sub, iat, exp; got %v", claims)
	}
	exp, _ := claims.GetExpirationTime()
	iat, _ := claims.GetIssuedAt()
	if exp.Sub(iat.Time) != 24*time.Hour {
		t.Fatalf("expected 24h lifetime, got %s", exp.Sub(iat.Time))
	}
}

func TestTokenService_Expiry(t *testing.T) {
	issuedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, _ := NewTokenService("secret", 0, WithClock(fixedClock(issuedAt))).Issue("u-1")

	justBefore := NewTokenService("secret", 0, WithClock(fixedClock(issuedAt.Add(24*time.Hour-time.Second))))
	if _, err := justBefore.Verify(context.Background(), token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	after := NewTokenService("secret", 0, WithClock(fixedClock(issuedAt.Add(24*time.Hour+time.Second))))
	if _, err := after.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken after expiry, got %v", err)
	}
}

const base64URLAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// variants returns every token that differs from token in exactly the
// character at position i.
func variants(token string, i int) []string {
	out := make([]string, 0, len(base64URLAlphabet)-1)
	for _, c := range []byte(base64URLAlphabet) {
		if c == token[i] {
			continue
		}
		b := []byte(token)
		b[i] = c
		out = append(out, string(b))
	}
	return out
}

func TestTokenService_TamperedTokenRejected(t *testing.T) {
	svc := NewTokenService("secret", 0)
	token, _ := svc.Issue("u-1")

	for i := 0; i < len(token); i++ {
		if token[i] == '.' {
			continue
		}
		for _, tampered := range variants(token, i) {
			if _, err := svc.Verify(context.Background(), tampered); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("byte %d changed to %q: expected ErrInvalidToken, got %v", i, tampered[i], err)
			}
		}
	}
}

// The last character of each segment carries unused low bits; changing
// only those must still fail.
func TestTokenService_TrailingBitsOfEachSegmentChecked(t *testing.T) {
	svc := NewTokenService("secret", 0)
	token, _ := svc.Issue("u-1")

	ends := []int{strings.Index(token, ".") - 1, strings.LastIndex(token, ".") - 1, len(token) - 1}
	for _, i := range ends {
		for _, tampered := range variants(token, i) {
			if _, err := svc.Verify(context.Background(), tampered); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("last char of segment at %d changed to %q: expected ErrInvalidToken, got %v", i, tampered[i], err)
			}
		}
	}
}

func TestTokenService_RevokedTokenCannotBeReusedAltered(t *testing.T) {
	deny := newFakeDenylist()
	svc := NewTokenService("secret", time.Hour, WithDenylist(deny))
	token, _ := svc.Issue("u-1")

	if err := svc.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	for _, tampered := range variants(token, len(token)-1) {
		if sub, err := svc.Verify(context.Background(), tampered); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("altered revoked token %q accepted as %q (err=%v)", tampered[len(tampered)-1:], sub, err)
		}
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, _ := NewTokenService("secret-a", 0).Issue("u-1")
	if _, err := NewTokenService("secret-b", 0).Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "u-1",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	hs384, _ := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("secret"))
	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)

	svc := NewTokenService("secret", 0)
	for name, token := range map[string]string{"HS384": hs384, "none": none} {
		if _, err := svc.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestTokenService_MissingClaims(t *testing.T) {
	now := time.Now()
	sign := func(c jwt.Claims) string {
		s, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		return s
	}

	noSubject := sign(jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour))})
	noExpiry := sign(jwt.RegisteredClaims{Subject: "u-1"})

	svc := NewTokenService("secret", 0)
	for name, token := range map[string]string{"no sub": noSubject, "no exp": noExpiry, "garbage": "a.b.c"} {
		if _, err := svc.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	if _, err := NewTokenService("secret", 0).Issue(""); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestTokenService_Revocation(t *testing.T) {
	issuedAt := time.Now()
	deny := newFakeDenylist()
	svc := NewTokenService("secret", time.Hour, WithDenylist(deny), WithClock(fixedClock(issuedAt)))

	token, _ := svc.Issue("u-1")
	if err := svc.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	ttl, ok := deny.entries[Fingerprint(token)]
	if !ok {
		t.Fatalf("fingerprint not stored")
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected ttl within token lifetime, got %s", ttl)
	}

	if _, err := svc.Verify(context.Background(), token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected revoked token to fail, got %v", err)
	}

	other, _ := svc.Issue("u-2")
	if _, err := svc.Verify(context.Background(), other); err != nil {
		t.Fatalf("unrelated token rejected: %v", err)
	}
}

func TestTokenService_RevokeWithoutDenylistIsNoop(t *testing.T) {
	svc := NewTokenService("secret", 0)
	token, _ := svc.Issue("u-1")

	if err := svc.Revoke(context.Background(), token); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if _, err := svc.Verify(context.Background(), token); err != nil {
		t.Fatalf("token should remain valid without a denylist: %v", err)
	}
}

func TestTokenService_DenylistOutageFailsOpen(t *testing.T) {
	deny := newFakeDenylist()
	deny.err = errors.New("redis down")
	svc := NewTokenService("secret", 0, WithDenylist(deny))

	token, _ := svc.Issue("u-1")
	if _, err := svc.Verify(context.Background(), token); err != nil {
		t.Fatalf("expected verification to proceed, got %v", err)
	}
}

func TestFingerprint(t *testing.T) {
	if Fingerprint("a") == Fingerprint("b") {
		t.Fatalf("distinct tokens share a fingerprint")
	}
	if len(Fingerprint("a")) != 64 {
		t.Fatalf("expected hex sha256")
	}
}
