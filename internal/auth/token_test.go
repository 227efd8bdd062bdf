package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := TokenIssuer{Secret: "test_secret", TTL: time.Hour}
	now := time.Unix(1700000000, 0)

	s, exp, err := ti.Issue(42, "recepcion", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.Equal(now.Add(time.Hour)) {
		t.Fatalf("expiry mismatch: %s", exp)
	}

	got, err := ti.Verify(s, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != 42 || got.Login != "recepcion" {
		t.Fatalf("claims mismatch: %+v", got)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	ti := TokenIssuer{Secret: "test_secret", TTL: time.Minute}
	now := time.Unix(1700000000, 0)

	s, _, err := ti.Issue(1, "admin", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Verify(s, now.Add(2*time.Minute)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestTokenIssuer_RejectsForeignIssuerAndSecret(t *testing.T) {
	now := time.Unix(1700000000, 0)
	ti := TokenIssuer{Secret: "test_secret", TTL: time.Hour}

	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test_secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := ti.Verify(s, now); err == nil {
		t.Fatalf("expected issuer mismatch to fail")
	}

	good, _, err := TokenIssuer{Secret: "other", TTL: time.Hour}.Issue(1, "admin", now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := ti.Verify(good, now); err == nil {
		t.Fatalf("expected signature mismatch to fail")
	}
}

func TestTokenIssuer_MissingSecret(t *testing.T) {
	if _, _, err := (TokenIssuer{}).Issue(1, "x", time.Now()); err == nil {
		t.Fatalf("expected error without secret")
	}
}
