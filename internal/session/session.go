// Package session carries the authenticated caller through service calls.
package session

import (
	"context"
	"strings"
)

// Session is built once per request (or websocket connection) and passed to
// every service operation that acts on behalf of a user.
type Session struct {
	UserID    string
	SessionID string
	Role      string
	Timezone  string
}

func (s Session) Valid() bool {
	return strings.TrimSpace(s.UserID) != ""
}

type ctxKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	if !ok || !s.Valid() {
		return Session{}, false
	}
	return s, true
}
