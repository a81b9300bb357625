package router

import (
	"context"

	"github.com/openbmc-project/bmcweb-core/internal/session"
)

type ctxKey uint8

const sessionKey ctxKey = iota

// ContextWithSession attaches the authenticated session resolved by the
// gateway so downstream handlers see a single identity irrespective of
// which auth method proved it.
func ContextWithSession(ctx context.Context, sess *session.UserSession) context.Context {
	if sess == nil {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session attached by the gateway, or
// nil for an allowlisted anonymous request.
func SessionFromContext(ctx context.Context) *session.UserSession {
	sess, _ := ctx.Value(sessionKey).(*session.UserSession)
	return sess
}
