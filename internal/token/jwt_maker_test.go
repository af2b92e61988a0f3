package token

import (
	"testing"
	"time"
	
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "12345678901234567890123456789012"

func TestJWTMaker(t *testing.T) {
	maker, err := NewJWTMaker(testSecret)
	require.NoError(t, err)
	
	token, payload, err := maker.CreateToken("feed-service", time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	
	verified, err := maker.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "feed-service", verified.Subject)
	assert.Equal(t, payload.ID, verified.ID)
	assert.WithinDuration(t, time.Now().Add(time.Minute), verified.ExpiresAt.Time, time.Second)
}

func TestJWTMakerExpiredToken(t *testing.T) {
	maker, err := NewJWTMaker(testSecret)
	require.NoError(t, err)
	
	token, _, err := maker.CreateToken("feed-service", -time.Minute)
	require.NoError(t, err)
	
	_, err = maker.VerifyToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTMakerRejectsForeignTokens(t *testing.T) {
	maker, err := NewJWTMaker(testSecret)
	require.NoError(t, err)
	
	other, err := NewJWTMaker("abcdefghijklmnopqrstuvwxyz123456")
	require.NoError(t, err)
	token, _, err := other.CreateToken("feed-service", time.Minute)
	require.NoError(t, err)
	
	_, err = maker.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	
	payload, err := NewPayload("feed-service", time.Minute)
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, payload).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	
	_, err = maker.VerifyToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTMakerShortKey(t *testing.T) {
	_, err := NewJWTMaker("short")
	assert.Error(t, err)
}
