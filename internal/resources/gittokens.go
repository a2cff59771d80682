package resources

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/web/api"
)

const gitTokensEndpoint = "/api/v1/git_tokens"

// GitTokenService manages git hosting tokens.
type GitTokenService struct {
	base
}

// NewGitTokenService creates a GitTokenService.
func NewGitTokenService(client *api.Client, logger *slog.Logger) *GitTokenService {
	return &GitTokenService{base: newBase(client, logger, "resources.gittokens", "Git token")}
}

// List returns one page of tokens in masked form.
func (s *GitTokenService) List(ctx context.Context, credential string, page models.Page) ([]models.GitToken, error) {
	p, err := s.ListPage(ctx, credential, page)
	return p.Items, err
}

// ListPage is List plus the backend's total count across all pages.
func (s *GitTokenService) ListPage(ctx context.Context, credential string, page models.Page) (api.Page[models.GitToken], error) {
	raw, err := api.Get[json.RawMessage](ctx, s.client, gitTokensEndpoint, pageParams(page), credential)
	if err != nil {
		return api.Page[models.GitToken]{}, s.fail(ctx, "list", "Failed to fetch git tokens", err)
	}
	return decodePage[models.GitToken](ctx, s.base, "list", raw, "tokens", "items"), nil
}

// Create stores a new token. The raw value in req is sent once and never returned.
func (s *GitTokenService) Create(ctx context.Context, credential string, req models.CreateGitTokenRequest) (models.GitToken, error) {
	if err := req.Validate(); err != nil {
		return models.GitToken{}, s.invalid(ctx, "create", err)
	}
	raw, err := api.Post[json.RawMessage](ctx, s.client, gitTokensEndpoint, req, credential)
	if err != nil {
		return models.GitToken{}, s.fail(ctx, "create", "Failed to create git token", err)
	}
	env, err := api.DecodeEnvelope[models.GitToken](raw)
	if err != nil {
		return models.GitToken{}, s.fail(ctx, "create", "Failed to create git token", err)
	}
	return env.Data, nil
}

// Update changes the label, provider or secret of an existing token.
func (s *GitTokenService) Update(ctx context.Context, credential, id string, req models.UpdateGitTokenRequest) (models.GitToken, error) {
	if err := req.Validate(); err != nil {
		return models.GitToken{}, s.invalid(ctx, "update", err)
	}
	raw, err := api.Put[json.RawMessage](ctx, s.client, api.Path(gitTokensEndpoint, id), req, credential)
	if err != nil {
		return models.GitToken{}, s.fail(ctx, "update", "Failed to update git token", err)
	}
	env, err := api.DecodeEnvelope[models.GitToken](raw)
	if err != nil {
		return models.GitToken{}, s.fail(ctx, "update", "Failed to update git token", err)
	}
	return env.Data, nil
}

// Delete removes the token with id.
func (s *GitTokenService) Delete(ctx context.Context, credential, id string) error {
	if _, err := api.Delete[json.RawMessage](ctx, s.client, api.Path(gitTokensEndpoint, id), credential); err != nil {
		return s.fail(ctx, "delete", "Failed to delete git token", err)
	}
	return nil
}

// Validate checks the token against its hosting provider.
func (s *GitTokenService) Validate(ctx context.Context, credential, id string) (models.KeyValidation, error) {
	raw, err := api.Post[json.RawMessage](ctx, s.client, api.Path(gitTokensEndpoint, id, "validate"), nil, credential)
	if err != nil {
		return models.KeyValidation{}, s.fail(ctx, "validate", "Failed to validate git token", err)
	}
	env, err := api.DecodeEnvelope[models.KeyValidation](raw)
	if err != nil {
		return models.KeyValidation{}, s.fail(ctx, "validate", "Failed to validate git token", err)
	}
	if env.Data.Message == "" {
		env.Data.Message = env.Message
	}
	return env.Data, nil
}
