package auth

import (
	"context"
	"net/http"
	"time"
)

type contextKey string

const adminKey contextKey = "admin"

// ContextWithAdmin returns a new context that carries the authenticated admin subject.
func ContextWithAdmin(ctx context.Context, subject string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, adminKey, subject)
}

// AdminFromContext retrieves the authenticated admin subject from the context, if any.
func AdminFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	subject, ok := ctx.Value(adminKey).(string)
	if !ok || subject == "" {
		return "", false
	}
	return subject, true
}

// RequireAdmin rejects requests without a valid session cookie.
func RequireAdmin(signer *SessionSigner, now func() time.Time) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			subject, err := signer.Verify(cookie.Value, now())
			if err != nil {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAdmin(r.Context(), subject)))
		})
	}
}
