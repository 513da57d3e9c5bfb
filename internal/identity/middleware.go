package identity

import (
	"log/slog"
	"net/http"
	"strings"
)

// Middleware resolves bearer tokens into sessions.
type Middleware struct {
	secret []byte
}

func NewMiddleware(secret []byte) Middleware {
	return Middleware{secret: secret}
}

// Wrap attaches the session of a valid bearer token to the request context.
// Requests without a token pass through anonymously and are rejected by the
// goal engine; a malformed or expired token is rejected here.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get("Authorization")
		if h == "" {
			next.ServeHTTP(w, r)
			return
		}
		if !strings.HasPrefix(h, "Bearer ") {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		s, err := ParseToken(m.secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			slog.WarnContext(r.Context(), "Rejected bearer token", "error", err, "path", r.URL.Path)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), s)))
	})
}
