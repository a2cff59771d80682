// Package identity connects the dashboard to the hosted identity provider.
//
// The dashboard relies on two things from the provider: a bearer credential
// issued on demand, and a way to tell signed-in from signed-out sessions.
// Provider covers the first, Verifier the second.
package identity

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

// ErrNoCredential is returned when the provider has no credential to issue.
var ErrNoCredential = errors.New("authentication token not available")

// Provider issues bearer credentials. An empty token with a nil error means
// the caller is signed out.
type Provider interface {
	Token(ctx context.Context) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context) (string, error)

// Token implements Provider.
func (f ProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// Require asks p for a credential and turns "none issued" into ErrNoCredential.
func Require(ctx context.Context, p Provider) (string, error) {
	if p == nil {
		return "", ErrNoCredential
	}
	token, err := p.Token(ctx)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrNoCredential
	}
	return token, nil
}

type tokenSourceProvider struct {
	src oauth2.TokenSource
}

// FromTokenSource adapts an oauth2.TokenSource. Expired or empty tokens count
// as no credential.
func FromTokenSource(src oauth2.TokenSource) Provider {
	return tokenSourceProvider{src: src}
}

func (p tokenSourceProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.src.Token()
	if err != nil {
		return "", fmt.Errorf("obtaining credential: %w", err)
	}
	if tok == nil || !tok.Valid() {
		return "", nil
	}
	return tok.AccessToken, nil
}

// Static returns a Provider that always issues token.
func Static(token string) Provider {
	return FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
}
