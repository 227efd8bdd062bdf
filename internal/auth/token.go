package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "hotelapi"

type SessionClaims struct {
	jwt.RegisteredClaims

	Login string `json:"login,omitempty"`
}

type VerifiedSession struct {
	UserID    int64
	Login     string
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	Secret string
	TTL    time.Duration
}

func (t TokenIssuer) Issue(userID int64, login string, now time.Time) (string, time.Time, error) {
	if t.Secret == "" {
		return "", time.Time{}, fmt.Errorf("missing jwt secret")
	}
	exp := now.Add(t.TTL)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Login: login,
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

// Verify validates signature, issuer and time claims and returns the user id
// carried in the subject.
func (t TokenIssuer) Verify(tokenString string, now time.Time) (*VerifiedSession, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("missing token")
	}
	if t.Secret == "" {
		return nil, fmt.Errorf("missing jwt secret")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	claims := &SessionClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(t.Secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("invalid subject")
	}

	return &VerifiedSession{
		UserID:    userID,
		Login:     claims.Login,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
