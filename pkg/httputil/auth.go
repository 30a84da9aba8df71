package httputil

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// SessionClaims are the JWT claims issued by the auth provider.
type SessionClaims struct {
	Name     string `json:"name"`
	BranchID string `json:"branch_id"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token and attaches the acting user to the request
// context. Health checks are exempt so monitoring does not need credentials.
func Auth(cfg *config.JWTConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				Error(w, errors.Unauthorized("missing bearer token"))
				return
			}

			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := &SessionClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, errors.TokenInvalid()
				}
				return []byte(cfg.Secret), nil
			}, jwt.WithIssuer(cfg.Issuer))

			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					Error(w, errors.TokenExpired())
					return
				}
				Error(w, errors.TokenInvalid())
				return
			}

			if !token.Valid || claims.Subject == "" {
				Error(w, errors.TokenInvalid())
				return
			}

			ctx := actor.WithActor(r.Context(), &actor.Actor{
				ID:       claims.Subject,
				Name:     claims.Name,
				BranchID: claims.BranchID,
				Role:     claims.Role,
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor returns the actor from context or an unauthorized error.
// Handlers call this instead of reading session state from globals.
func RequireActor(r *http.Request) (*actor.Actor, error) {
	a := actor.FromContext(r.Context())
	if a == nil {
		return nil, errors.Unauthorized("no authenticated user")
	}
	return a, nil
}
