package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marketsite/api/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// SubjectKey is the context key for the authenticated token subject.
const SubjectKey contextKey = "subject"

// RequireAuth returns middleware that validates a Bearer JWT carrying the admin
// role and injects its subject into the request context.
func RequireAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				response.Unauthorized(w, "invalid token claims")
				return
			}
			if role, _ := claims["role"].(string); role != "admin" {
				response.Forbidden(w, "admin access required")
				return
			}

			subject, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), SubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
