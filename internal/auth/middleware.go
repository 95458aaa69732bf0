package auth

import (
	"context"
	"log"
	"net/http"
	"strings"
)

type ctxKey string

const subjectKey ctxKey = "subject"

// Middleware rejects requests without a valid bearer token.
type Middleware struct {
	secret []byte
}

// New creates a Middleware that verifies tokens signed with secret.
func New(secret []byte) Middleware {
	return Middleware{secret: secret}
}

// Wrap guards next. The token subject is available through SubjectFromContext.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		subject, err := ParseToken(m.secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			log.Printf("[Auth] Rejected %s %s: %v", r.Method, r.URL.Path, err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), subject)))
	})
}

// WithSubject returns a context carrying the authenticated subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFromContext returns the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectKey).(string)
	return subject, ok && subject != ""
}
