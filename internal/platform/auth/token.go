package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRequest describes a locally signed development token.
type TokenRequest struct {
	Subject  string
	TenantID string
	Roles    []string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// IssueHS256 signs a token that JWTMiddleware accepts when configured with
// the same signing key.
func IssueHS256(key []byte, req TokenRequest) (string, error) {
	if len(key) == 0 {
		return "", errors.New("signing key is empty")
	}
	if req.Subject == "" {
		return "", errors.New("subject is required")
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   req.Subject,
			Issuer:    req.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: req.TenantID,
		Roles:    req.Roles,
	}
	if req.Audience != "" {
		claims.Audience = jwt.ClaimStrings{req.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
