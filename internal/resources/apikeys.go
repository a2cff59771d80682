package resources

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/web/api"
)

const apiKeysEndpoint = "/api/v1/api_keys"

// APIKeyService manages DevDox API keys.
type APIKeyService struct {
	base
}

// NewAPIKeyService creates an APIKeyService.
func NewAPIKeyService(client *api.Client, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{base: newBase(client, logger, "resources.apikeys", "API key")}
}

// List returns one page of keys. Raw key material is never present in list responses.
func (s *APIKeyService) List(ctx context.Context, credential string, page models.Page) ([]models.APIKey, error) {
	p, err := s.ListPage(ctx, credential, page)
	return p.Items, err
}

// ListPage is List plus the backend's total count across all pages.
func (s *APIKeyService) ListPage(ctx context.Context, credential string, page models.Page) (api.Page[models.APIKey], error) {
	raw, err := api.Get[json.RawMessage](ctx, s.client, apiKeysEndpoint, pageParams(page), credential)
	if err != nil {
		return api.Page[models.APIKey]{}, s.fail(ctx, "list", "Failed to fetch API keys", err)
	}
	return decodePage[models.APIKey](ctx, s.base, "list", raw, "items"), nil
}

// Create generates a new key. The returned key carries the raw material once.
func (s *APIKeyService) Create(ctx context.Context, credential string) (models.APIKey, error) {
	raw, err := api.Post[json.RawMessage](ctx, s.client, apiKeysEndpoint, struct{}{}, credential)
	if err != nil {
		return models.APIKey{}, s.fail(ctx, "create", "Failed to create API key", err)
	}
	env, err := api.DecodeEnvelope[models.APIKey](raw)
	if err != nil {
		return models.APIKey{}, s.fail(ctx, "create", "Failed to create API key", err)
	}
	return env.Data, nil
}

// Delete revokes the key with id.
func (s *APIKeyService) Delete(ctx context.Context, credential, id string) error {
	if _, err := api.Delete[json.RawMessage](ctx, s.client, api.Path(apiKeysEndpoint, id), credential); err != nil {
		return s.fail(ctx, "delete", "Failed to delete API key", err)
	}
	return nil
}

// Validate asks the backend whether the key with id is still usable.
func (s *APIKeyService) Validate(ctx context.Context, credential, id string) (models.KeyValidation, error) {
	raw, err := api.Post[json.RawMessage](ctx, s.client, api.Path(apiKeysEndpoint, id, "validate"), nil, credential)
	if err != nil {
		return models.KeyValidation{}, s.fail(ctx, "validate", "Failed to validate API key", err)
	}
	env, err := api.DecodeEnvelope[models.KeyValidation](raw)
	if err != nil {
		return models.KeyValidation{}, s.fail(ctx, "validate", "Failed to validate API key", err)
	}
	if env.Data.Message == "" {
		env.Data.Message = env.Message
	}
	return env.Data, nil
}
