package router

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"billing-service/internal/domain"

	"go.uber.org/zap"
)

// AuthMiddleware authenticates the upstream gateway by service token and
// binds the resolved user into the request as an explicit Principal. Handlers
// and usecases receive the principal as an argument; nothing downstream reads
// session state on its own.
func AuthMiddleware(serviceToken string, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if serviceToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(serviceToken)) != 1 {
				logger.Warn("request rejected: bad service token",
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("path", r.URL.Path))
				unauthorized(w)
				return
			}

			userID := r.Header.Get("X-User-ID")
			if userID == "" {
				unauthorized(w)
				return
			}

			principal := domain.Principal{
				UserID: userID,
				Email:  r.Header.Get("X-User-Email"),
			}
			next.ServeHTTP(w, r.WithContext(domain.WithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": "unauthorized",
	})
}
