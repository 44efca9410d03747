package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ===== Admin JWT primitives =====

// AuthManager guards the credit-management API with HMAC-signed bearer
// tokens. Tokens are minted out of band by ops tooling.
type AuthManager struct {
	secret []byte
	ttl    time.Duration
}

func NewAuthManager(secret string, ttl time.Duration) *AuthManager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &AuthManager{secret: []byte(secret), ttl: ttl}
}

type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// MintToken signs a fresh admin token. Used by ops tooling and tests.
func (a *AuthManager) MintToken() (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			Subject:   "admin",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// ParseFromRequest validates the Authorization: Bearer <jwt> header.
func (a *AuthManager) ParseFromRequest(r *http.Request) (*AdminClaims, error) {
	hdr := r.Header.Get("Authorization")
	if hdr == "" || !strings.HasPrefix(strings.ToLower(hdr), "bearer ") {
		return nil, errors.New("missing token")
	}
	return a.parse(strings.TrimSpace(hdr[7:]))
}

func (a *AuthManager) parse(tok string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil || !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// authMiddleware rejects requests without a valid admin token.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.auth.secret) == 0 {
			s.log.Error().Msg("admin JWT secret is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != "admin" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
