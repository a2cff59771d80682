package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// GitHosting identifies the provider a git token authenticates against.
type GitHosting string

const (
	GitHostingGitHub GitHosting = "github"
	GitHostingGitLab GitHosting = "gitlab"
)

// Valid reports whether h is a supported provider.
func (h GitHosting) Valid() bool {
	switch h {
	case GitHostingGitHub, GitHostingGitLab:
		return true
	}
	return false
}

// DisplayName returns the provider name as shown to users.
func (h GitHosting) DisplayName() string {
	switch h {
	case GitHostingGitHub:
		return "GitHub"
	case GitHostingGitLab:
		return "GitLab"
	}
	return string(h)
}

// ParseGitHosting accepts a provider name in any case.
func ParseGitHosting(s string) (GitHosting, error) {
	h := GitHosting(strings.ToLower(strings.TrimSpace(s)))
	if !h.Valid() {
		return "", fmt.Errorf("unsupported git hosting %q: want github or gitlab", s)
	}
	return h, nil
}

// GitToken is a stored git hosting credential. The secret itself is never
// returned by the backend; only its masked form is.
type GitToken struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	GitHosting  GitHosting `json:"git_hosting"`
	MaskedToken string     `json:"masked_token"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// GetID implements the collection key.
func (t GitToken) GetID() string { return t.ID }

// CreateGitTokenRequest is the write-only payload that carries the raw token.
type CreateGitTokenRequest struct {
	Label      string     `json:"label"`
	TokenValue string     `json:"token_value"`
	GitHosting GitHosting `json:"git_hosting"`
}

// Validate checks the request before it leaves the process.
func (r CreateGitTokenRequest) Validate() error {
	if strings.TrimSpace(r.Label) == "" {
		return errors.New("label is required")
	}
	if strings.TrimSpace(r.TokenValue) == "" {
		return errors.New("token value is required")
	}
	if !r.GitHosting.Valid() {
		return fmt.Errorf("unsupported git hosting %q", r.GitHosting)
	}
	return nil
}

// UpdateGitTokenRequest changes a subset of a token's fields. Nil fields are left alone.
type UpdateGitTokenRequest struct {
	Label      *string     `json:"label,omitempty"`
	TokenValue *string     `json:"token_value,omitempty"`
	GitHosting *GitHosting `json:"git_hosting,omitempty"`
}

// Validate rejects empty updates and unknown providers.
func (r UpdateGitTokenRequest) Validate() error {
	if r.Label == nil && r.TokenValue == nil && r.GitHosting == nil {
		return errors.New("nothing to update")
	}
	if r.Label != nil && strings.TrimSpace(*r.Label) == "" {
		return errors.New("label must not be empty")
	}
	if r.GitHosting != nil && !r.GitHosting.Valid() {
		return fmt.Errorf("unsupported git hosting %q", *r.GitHosting)
	}
	return nil
}
