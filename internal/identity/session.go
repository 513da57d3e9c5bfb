// Package identity is the boundary to the external identity provider. The
// goal engine only consumes the current session; it never creates one.
package identity

import (
	"context"
	"strings"
)

// Session is the authenticated caller.
type Session struct {
	UserID string
}

// Provider exposes the caller's session. A missing session yields ok=false.
type Provider interface {
	CurrentSession(ctx context.Context) (Session, bool)
}

type ctxKey string

const sessionKey ctxKey = "session"

// WithSession returns a child context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// FromContext extracts the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	if !ok || strings.TrimSpace(s.UserID) == "" {
		return Session{}, false
	}
	return s, true
}

// ContextProvider reads the session from the request context, where the
// HTTP middleware put it.
type ContextProvider struct{}

func (ContextProvider) CurrentSession(ctx context.Context) (Session, bool) {
	return FromContext(ctx)
}

// Static always reports the same user; used by the command-line client.
// An empty user id means signed out.
type Static string

func (s Static) CurrentSession(ctx context.Context) (Session, bool) {
	if strings.TrimSpace(string(s)) == "" {
		return FromContext(ctx)
	}
	return Session{UserID: string(s)}, true
}
