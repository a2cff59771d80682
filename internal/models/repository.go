package models

import (
	"errors"
	"strings"
	"time"
)

// Repository is a repository registered with DevDox for analysis.
type Repository struct {
	ID              string     `json:"id"`
	RepoName        string     `json:"repo_name"`
	RepoAliasName   string     `json:"repo_alias_name,omitempty"`
	Description     string     `json:"description,omitempty"`
	HTMLURL         string     `json:"html_url,omitempty"`
	StargazersCount int        `json:"stargazers_count"`
	Branches        int        `json:"branches"`
	Status          string     `json:"status,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	RepoCreatedAt   *time.Time `json:"repo_created_at,omitempty"`
	// RepoUpdatedAt stays nil until the first analysis completes.
	RepoUpdatedAt *time.Time `json:"repo_updated_at"`
}

// GetID implements the collection key.
func (r Repository) GetID() string { return r.ID }

// Analyzed reports whether at least one analysis has completed.
func (r Repository) Analyzed() bool {
	return r.RepoUpdatedAt != nil
}

// ActionLabel is the label of the analysis button.
func (r Repository) ActionLabel() string {
	if r.Analyzed() {
		return "Re-analyze"
	}
	return "Analyze"
}

// DisplayName prefers the alias.
func (r Repository) DisplayName() string {
	if r.RepoAliasName != "" {
		return r.RepoAliasName
	}
	return r.RepoName
}

// ProviderRepository is a repository visible through a git token on the hosting provider.
type ProviderRepository struct {
	RepoName    string `json:"repo_name"`
	Private     bool   `json:"private"`
	Description string `json:"description,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
}

// AddRepositoryRequest registers a provider repository under a git token.
type AddRepositoryRequest struct {
	RelativePath      string `json:"relative_path"`
	RepoAliasName     string `json:"repo_alias_name"`
	RepoUserReference string `json:"repo_user_reference"`
}

// Validate requires a provider-side path.
func (r AddRepositoryRequest) Validate() error {
	if strings.TrimSpace(r.RelativePath) == "" {
		return errors.New("relative path is required")
	}
	return nil
}
