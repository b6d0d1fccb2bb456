package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"vet-clinic-records/internal/ports/auth"
)

var (
	ErrNotConfigured = errors.New("jwt verifier not configured")
	ErrTokenEmpty    = errors.New("token is empty")
	ErrInvalidToken  = errors.New("invalid token")
)

// Config del verificador HS256. Secret normalmente viene de AUTH_JWT_SECRET.
type Config struct {
	Secret string
	Issuer string // opcional; si viene se exige en el token

	Leeway time.Duration
}

type staffClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	gojwt.RegisteredClaims
}

// Verifier implementa auth.AuthVerifier con tokens firmados HS256.
type Verifier struct {
	secret []byte
	parser *gojwt.Parser
}

func NewVerifier(cfg Config) *Verifier {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithExpirationRequired(),
		gojwt.WithLeeway(cfg.Leeway),
	}
	if iss := strings.TrimSpace(cfg.Issuer); iss != "" {
		opts = append(opts, gojwt.WithIssuer(iss))
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: gojwt.NewParser(opts...),
	}
}

func (v *Verifier) Verify(_ context.Context, token string) (auth.Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	var c staffClaims
	if _, err := v.parser.ParseWithClaims(token, &c, func(*gojwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	uid := strings.TrimSpace(c.Subject)
	if uid == "" {
		return auth.Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return auth.Claims{
		UserID: uid,
		Email:  strings.TrimSpace(c.Email),
		Role:   strings.TrimSpace(c.Role),
	}, nil
}

// Sign emite un token para claims con vida ttl. Lo usa el comando `token` del CLI y los tests.
func Sign(cfg Config, claims auth.Claims, ttl time.Duration) (string, error) {
	if cfg.Secret == "" {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return "", errors.New("user id required")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}

	now := time.Now()
	c := staffClaims{
		Email: claims.Email,
		Role:  claims.Role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   claims.UserID,
			Issuer:    cfg.Issuer,
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return gojwt.NewWithClaims(gojwt.SigningMethodHS256, c).SignedString([]byte(cfg.Secret))
}
