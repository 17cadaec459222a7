package auth

import (
	"rent-hub/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenVerifier(t *testing.T) {
	const secret = "test-secret-long-enough-for-hs256"
	valid, err := GenerateToken(secret, "u1", time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken(secret, "u1", -time.Minute)
	require.NoError(t, err)
	forged, err := GenerateToken("another-secret", "u1", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		identity string
		token    string
		wantErr  error
	}{
		{"Valid token", "u1", valid, nil},
		{"Other identity", "u2", valid, errors.ErrTokenMismatch},
		{"Expired token", "u1", expired, errors.ErrInvalidToken},
		{"Wrong secret", "u1", forged, errors.ErrInvalidToken},
		{"Missing token", "u1", "", errors.ErrInvalidToken},
		{"Garbage", "u1", "not.a.jwt", errors.ErrInvalidToken},
	}

	verifier := NewTokenVerifier(secret)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			err := verifier.Verify(tt.identity, tt.token)
			if tt.wantErr == nil {
				req.NoError(err)
			} else {
				req.ErrorIs(err, tt.wantErr)
			}
		})
	}
}
