package resources

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/web/api"
)

const (
	reposEndpoint   = "/api/v1/repos"
	analyzeEndpoint = "/api/v1/repos/analyze"

	// DefaultAddMessage is shown when the backend confirms an add without a message.
	DefaultAddMessage = "Repository added successfully"
)

// RepositoryService manages repositories registered for analysis.
type RepositoryService struct {
	base
}

// NewRepositoryService creates a RepositoryService.
func NewRepositoryService(client *api.Client, logger *slog.Logger) *RepositoryService {
	return &RepositoryService{base: newBase(client, logger, "resources.repositories", "Repository")}
}

// List returns one page of registered repositories.
func (s *RepositoryService) List(ctx context.Context, credential string, page models.Page) ([]models.Repository, error) {
	p, err := s.ListPage(ctx, credential, page)
	return p.Items, err
}

// ListPage is List plus the backend's total count across all pages.
func (s *RepositoryService) ListPage(ctx context.Context, credential string, page models.Page) (api.Page[models.Repository], error) {
	raw, err := api.Get[json.RawMessage](ctx, s.client, reposEndpoint, pageParams(page), credential)
	if err != nil {
		return api.Page[models.Repository]{}, s.fail(ctx, "list", "Failed to fetch repositories", err)
	}
	return decodePage[models.Repository](ctx, s.base, "list", raw, "repos", "items"), nil
}

// Delete unregisters the repository with id.
func (s *RepositoryService) Delete(ctx context.Context, credential, id string) error {
	if _, err := api.Delete[json.RawMessage](ctx, s.client, api.Path(reposEndpoint, id), credential); err != nil {
		return s.fail(ctx, "delete", "Failed to delete repository", err)
	}
	return nil
}

// Analyze queues an analysis run. The id travels as a path segment.
func (s *RepositoryService) Analyze(ctx context.Context, credential, id string) error {
	if _, err := api.Post[json.RawMessage](ctx, s.client, api.Path(analyzeEndpoint, id), nil, credential); err != nil {
		return s.fail(ctx, "analyze", "Failed to start repository analysis", err)
	}
	return nil
}

// ListByToken returns the provider repositories visible through a git token.
func (s *RepositoryService) ListByToken(ctx context.Context, credential, tokenID string) ([]models.ProviderRepository, error) {
	raw, err := api.Get[json.RawMessage](ctx, s.client, api.Path(gitTokensEndpoint, tokenID, "repos"), nil, credential)
	if err != nil {
		return nil, s.fail(ctx, "list_by_token", "Failed to fetch repositories for this token", err)
	}
	return decodeList[models.ProviderRepository](ctx, s.base, "list_by_token", raw, "repos", "items"), nil
}

// AddRepository registers a provider repository under tokenID and returns it
// with the backend's confirmation message.
func (s *RepositoryService) AddRepository(ctx context.Context, credential, tokenID string, req models.AddRepositoryRequest) (models.Repository, string, error) {
	if err := req.Validate(); err != nil {
		return models.Repository{}, "", s.invalid(ctx, "add", err)
	}
	raw, err := api.Post[json.RawMessage](ctx, s.client, api.Path(gitTokensEndpoint, tokenID, "repos"), req, credential)
	if err != nil {
		return models.Repository{}, "", s.fail(ctx, "add", "Failed to add repository", err)
	}
	env, err := api.DecodeEnvelope[models.Repository](raw)
	if err != nil {
		return models.Repository{}, "", s.fail(ctx, "add", "Failed to add repository", err)
	}
	message := env.Message
	if message == "" {
		message = DefaultAddMessage
	}
	return env.Data, message, nil
}
