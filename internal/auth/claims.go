// Package auth verifies the bearer tokens issued by the auth service and
// carries the caller's identity through request contexts.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/septivank/energy-insights/internal/apperr"
)

// Claims is the token payload. Subject holds the numeric user id as a string.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Principal is the verified caller
type Principal struct {
	UserID int64
	Email  string
	Role   string
}

// Verifier checks token signatures with a shared HMAC secret
type Verifier struct {
	secret    []byte
	algorithm string
}

// NewVerifier creates a verifier accepting only algorithm (HS256 when empty)
func NewVerifier(secret, algorithm string) *Verifier {
	if algorithm == "" {
		algorithm = jwt.SigningMethodHS256.Alg()
	}
	return &Verifier{secret: []byte(secret), algorithm: algorithm}
}

// Verify parses and validates tokenString. Every failure, whether malformed,
// expired, badly signed or missing claims, is apperr.ErrUnauthenticated.
func (v *Verifier) Verify(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.algorithm}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperr.ErrUnauthenticated
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", apperr.ErrUnauthenticated)
	}

	if claims.Email == "" {
		return nil, fmt.Errorf("%w: missing email", apperr.ErrUnauthenticated)
	}

	return &Principal{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// IssueToken signs a token for p. Tokens are normally issued by the auth
// service; this is used by the simulator and tests.
func IssueToken(p Principal, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(p.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: p.Email,
		Role:  p.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", apperr.ErrUnauthenticated)
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: expected a bearer token", apperr.ErrUnauthenticated)
	}

	return strings.TrimSpace(token), nil
}

type contextKey int

const (
	principalKey contextKey = iota
	tokenKey
)

// WithPrincipal stores the verified caller and its raw token in ctx
func WithPrincipal(ctx context.Context, p *Principal, token string) context.Context {
	ctx = context.WithValue(ctx, principalKey, p)
	return context.WithValue(ctx, tokenKey, token)
}

// PrincipalFromContext returns the caller stored by WithPrincipal
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

// TokenFromContext returns the raw bearer token stored by WithPrincipal
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
