package middleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

type authCtxKey int

const authKey authCtxKey = 3

// OpsClaims authorizes the operator API (enrollment, session inspection).
// The webhook route is deliberately unauthenticated.
type OpsClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

const roleOps = "ops"

func secret() []byte {
	s := os.Getenv("RHEUMABOT_JWT_SECRET")
	if s == "" {
		s = "rheumabot-dev-secret"
	}
	return []byte(s)
}

// SignOpsToken issues an HS256 operator token valid for ttl.
func SignOpsToken(ttl time.Duration) (string, error) {
	now := time.Now()
	claims := OpsClaims{
		Role: roleOps,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret())
}

func parseToken(tok string) (*OpsClaims, error) {
	t, err := jwt.ParseWithClaims(tok, &OpsClaims{}, func(token *jwt.Token) (interface{}, error) { return secret(), nil })
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*OpsClaims); ok && t.Valid && c.Role == roleOps {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// WithAuth attaches operator claims to the context when a valid bearer token
// is present; requests without one pass through unauthenticated.
func WithAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if strings.HasPrefix(h, "Bearer ") {
			tok := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
			if c, err := parseToken(tok); err == nil {
				ctx := context.WithValue(r.Context(), authKey, c)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOps rejects requests lacking operator claims.
func RequireOps(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(authKey).(*OpsClaims); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
