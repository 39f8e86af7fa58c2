package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovehub/asset-manager/internal/api/shared"
	"github.com/ovehub/asset-manager/internal/domain"
)

// AuthMiddleware verifies bearer tokens issued by the platform's auth
// service and places the caller's access descriptor in the request
// context. Token issuance is out of scope; only the shared HMAC secret is
// needed for verification.
type AuthMiddleware struct {
	secret []byte
}

// NewAuthMiddleware creates an AuthMiddleware verifying with the given
// shared secret.
func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

// accessClaims is the token payload: standard claims plus the group
// memberships the scheduler's access checks run on.
type accessClaims struct {
	jwt.RegisteredClaims
	ReadGroups  []string `json:"read_groups"`
	WriteGroups []string `json:"write_groups"`
	Admin       bool     `json:"admin"`
}

// Authenticate validates the Authorization header and stores the resulting
// domain.UserAccess in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		user, err := m.verify(parts[1])
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Token expired")
			} else {
				shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(shared.SetUser(r.Context(), user)))
	})
}

func (m *AuthMiddleware) verify(token string) (domain.UserAccess, error) {
	claims := &accessClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return domain.UserAccess{}, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return domain.UserAccess{}, fmt.Errorf("%w: token carries no subject", domain.ErrUnauthorized)
	}

	return domain.UserAccess{
		Username:    claims.Subject,
		ReadGroups:  claims.ReadGroups,
		WriteGroups: claims.WriteGroups,
		Admin:       claims.Admin,
	}, nil
}
