package auth

import (
	"fmt"
	"rent-hub/contract"
	"rent-hub/errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "rent-hub"

// IdentityClaims is what the external auth service signs for a user.
type IdentityClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

var _ contract.IdentityVerifier = (*TokenVerifier)(nil)

// TokenVerifier checks that a setup token was signed with the shared secret
// and names the identity being announced.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

func (v *TokenVerifier) Verify(identity, token string) error {
	claims, err := v.Parse(token)
	if err != nil {
		return err
	}
	if claims.UserID != identity {
		return errors.ErrTokenMismatch
	}
	return nil
}

// Parse validates signature and expiration.
func (v *TokenVerifier) Parse(token string) (*IdentityClaims, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", errors.ErrInvalidToken)
	}
	parsed, err := jwt.ParseWithClaims(token, &IdentityClaims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, errors.ErrInvalidToken)
	}
	claims, ok := parsed.Claims.(*IdentityClaims)
	if !ok || !parsed.Valid {
		return nil, errors.ErrInvalidToken
	}
	return claims, nil
}

// GenerateToken signs a token for userID. Used by tooling and tests, the hub
// itself never issues tokens.
func GenerateToken(secret, userID string, duration time.Duration) (string, error) {
	now := time.Now()
	claims := &IdentityClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
