package middleware

import (
	"net/http"
	"strings"

	"github.com/inkdraft/credits/internal/handlers/render"
	"github.com/inkdraft/credits/internal/handlers/userctx"
	"github.com/inkdraft/credits/internal/models"
)

type tokenParser interface {
	// Parse access token and return the caller it belongs to
	Parse(access string) (models.Caller, error)
}

// AuthMiddleware resolves the caller from the Bearer token
// Requests without a valid token never reach the wrapped handler
func AuthMiddleware(parser tokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || access == "" {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			caller, err := parser.Parse(access)
			if err != nil {
				render.ServiceError(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := userctx.New(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
