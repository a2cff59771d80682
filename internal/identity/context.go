package identity

import (
	"context"
	"net/http"
	"strings"
)

type sessionKey struct{}

// WithSession stores a verified session on ctx.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the verified session stored on ctx, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// ContextProvider issues the credential of the session stored on the context.
// It is the Provider used by dashboard request handlers.
type ContextProvider struct{}

// Token implements Provider.
func (ContextProvider) Token(ctx context.Context) (string, error) {
	if s, ok := SessionFromContext(ctx); ok {
		return s.Token, nil
	}
	return "", nil
}

// FromRequest extracts the raw session token from the named cookie, falling
// back to an Authorization bearer header.
func FromRequest(r *http.Request, cookieName string) string {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return ExtractBearerToken(r.Header.Get("Authorization"))
}

// ExtractBearerToken extracts the token from an Authorization header.
func ExtractBearerToken(authHeader string) string {
	const prefix = "Bearer "
	if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}
