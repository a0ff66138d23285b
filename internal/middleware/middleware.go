package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/minebank/bank-service/internal/config"
	"github.com/minebank/bank-service/internal/models"
	"github.com/sirupsen/logrus"
)

// AuthHeader carries the bearer token issued by /api/auth/login.
const AuthHeader = "X-Auth-Token"

type ctxKey string

const (
	loginKey ctxKey = "login"
	roleKey  ctxKey = "role"
)

// Login returns the authenticated login stored in the request context.
func Login(ctx context.Context) string {
	v, _ := ctx.Value(loginKey).(string)
	return v
}

// Role returns the authenticated role stored in the request context.
func Role(ctx context.Context) string {
	v, _ := ctx.Value(roleKey).(string)
	return v
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

// AuthMiddleware validates the X-Auth-Token header and requires the admin
// role. Requests without a valid token get 401; valid tokens with a
// non-admin role get 403.
func AuthMiddleware(cfg *config.Config) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := r.Header.Get(AuthHeader)
			if tokenString == "" {
				writeDetail(w, http.StatusUnauthorized, "Token missing")
				return
			}
			token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				writeDetail(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeDetail(w, http.StatusUnauthorized, "Invalid token")
				return
			}
			login, _ := claims["sub"].(string)
			role, _ := claims["role"].(string)
			if role != models.RoleAdmin {
				writeDetail(w, http.StatusForbidden, "Admin role required")
				return
			}
			ctx := context.WithValue(r.Context(), loginKey, login)
			ctx = context.WithValue(ctx, roleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs every request with a generated request id.
func RequestLogger(log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.WithFields(logrus.Fields{
				"request_id": uuid.NewString(),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
			}).Info("request")
		})
	}
}
