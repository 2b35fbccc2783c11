package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenIssuer signs and parses session tokens. Sessions are stateless: the
// token carries the user ID and granted roles, so admin checks need no
// database round trip per request.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

type sessionClaims struct {
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// Issue creates a signed session token for the user.
func (t *TokenIssuer) Issue(userID uuid.UUID, roles []string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token and returns the user ID and roles it carries.
func (t *TokenIssuer) Parse(raw string) (uuid.UUID, []string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return uuid.Nil, nil, err
	}
	if !token.Valid {
		return uuid.Nil, nil, fmt.Errorf("invalid token")
	}
	if claims.Issuer != t.issuer {
		return uuid.Nil, nil, fmt.Errorf("unexpected issuer %q", claims.Issuer)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("parse subject: %w", err)
	}
	return userID, claims.Roles, nil
}
