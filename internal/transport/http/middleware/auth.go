package httpmw

import (
	"context"
	"net/http"
	"strings"

	"github.com/zonegrid/presence-service/internal/auth"
)

type ctxKey string

const (
	ctxKeyUserID ctxKey = "user_id"
	ctxKeyName   ctxKey = "display_name"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware — Bearer JWT; sub → userID в контексте запроса.
func AuthMiddleware(tokens TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") || len(h) <= 7 {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"missing bearer token"}`))
				return
			}

			claims, err := tokens.Verify(strings.TrimSpace(h[7:]))
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ctxKeyName, claims.DisplayName)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func UserIDFromCtx(ctx context.Context) string {
	if v := ctx.Value(ctxKeyUserID); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
