package jwt

import (
	"context"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vet-clinic-records/internal/ports/auth"
)

func TestVerifier_RoundTrip(t *testing.T) {
	cfg := Config{Secret: "s3cret", Issuer: "vet-clinic"}
	tok, err := Sign(cfg, auth.Claims{UserID: "vet-1", Email: "lee@clinic.test", Role: "vet"}, time.Hour)
	require.NoError(t, err)

	claims, err := NewVerifier(cfg).Verify(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, auth.Claims{UserID: "vet-1", Email: "lee@clinic.test", Role: "vet"}, claims)
}

func TestVerifier_WrongSecret(t *testing.T) {
	tok, err := Sign(Config{Secret: "a"}, auth.Claims{UserID: "vet-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier(Config{Secret: "b"}).Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_WrongIssuer(t *testing.T) {
	tok, err := Sign(Config{Secret: "a", Issuer: "other"}, auth.Claims{UserID: "vet-1"}, time.Hour)
	require.NoError(t, err)

	_, err = NewVerifier(Config{Secret: "a", Issuer: "vet-clinic"}).Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_Expired(t *testing.T) {
	c := staffClaims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   "vet-1",
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString([]byte("a"))
	require.NoError(t, err)

	_, err = NewVerifier(Config{Secret: "a"}).Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_MissingSubject(t *testing.T) {
	c := staffClaims{RegisteredClaims: gojwt.RegisteredClaims{
		ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString([]byte("a"))
	require.NoError(t, err)

	_, err = NewVerifier(Config{Secret: "a"}).Verify(context.Background(), tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifier_EmptyAndUnconfigured(t *testing.T) {
	_, err := NewVerifier(Config{Secret: "a"}).Verify(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrTokenEmpty)

	_, err = NewVerifier(Config{}).Verify(context.Background(), "x.y.z")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = Sign(Config{}, auth.Claims{UserID: "u"}, time.Hour)
	assert.ErrorIs(t, err, ErrNotConfigured)
}
