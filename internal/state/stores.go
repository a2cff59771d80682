package state

import (
	"context"
	"errors"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/web/api"
)

// APIKeyService is the subset of the API key service a store needs.
type APIKeyService interface {
	ListPage(ctx context.Context, credential string, page models.Page) (api.Page[models.APIKey], error)
	Create(ctx context.Context, credential string) (models.APIKey, error)
	Delete(ctx context.Context, credential, id string) error
	Validate(ctx context.Context, credential, id string) (models.KeyValidation, error)
}

// GitTokenService is the subset of the git token service a store needs.
type GitTokenService interface {
	ListPage(ctx context.Context, credential string, page models.Page) (api.Page[models.GitToken], error)
	Create(ctx context.Context, credential string, req models.CreateGitTokenRequest) (models.GitToken, error)
	Update(ctx context.Context, credential, id string, req models.UpdateGitTokenRequest) (models.GitToken, error)
	Delete(ctx context.Context, credential, id string) error
	Validate(ctx context.Context, credential, id string) (models.KeyValidation, error)
}

// RepositoryService is the subset of the repository service a store needs.
type RepositoryService interface {
	ListPage(ctx context.Context, credential string, page models.Page) (api.Page[models.Repository], error)
	Delete(ctx context.Context, credential, id string) error
	Analyze(ctx context.Context, credential, id string) error
	ListByToken(ctx context.Context, credential, tokenID string) ([]models.ProviderRepository, error)
	AddRepository(ctx context.Context, credential, tokenID string, req models.AddRepositoryRequest) (models.Repository, string, error)
}

// APIKeys holds the caller's API keys. Stored keys never carry the raw secret.
type APIKeys struct {
	*store[models.APIKey]
	svc APIKeyService
}

// NewAPIKeys creates an unmounted API key store.
func NewAPIKeys(svc APIKeyService, provider identity.Provider, opts ...Option) *APIKeys {
	list := func(ctx context.Context, cred string, page models.Page) (api.Page[models.APIKey], error) {
		keys, err := svc.ListPage(ctx, cred, page)
		for i := range keys.Items {
			keys.Items[i] = keys.Items[i].Redacted()
		}
		return keys, err
	}
	return &APIKeys{store: newStore("state.apikeys", provider, list, opts), svc: svc}
}

// Create issues a new key. The returned key carries the raw secret, which
// is shown once; the store keeps only the redacted form.
func (k *APIKeys) Create(ctx context.Context) (models.APIKey, error) {
	var created models.APIKey
	err := k.mutate(ctx, "create", func(ctx context.Context, cred string) error {
		key, err := k.svc.Create(ctx, cred)
		if err != nil {
			return err
		}
		created = key
		k.apply(func(c Collection[models.APIKey]) Collection[models.APIKey] {
			return c.AppendIfAbsent(key.Redacted())
		})
		return nil
	})
	return created, err
}

// Delete revokes the key with id and removes it from the store.
func (k *APIKeys) Delete(ctx context.Context, id string) error {
	return k.mutate(ctx, "delete", func(ctx context.Context, cred string) error {
		if err := k.svc.Delete(ctx, cred, id); err != nil {
			return err
		}
		k.apply(func(c Collection[models.APIKey]) Collection[models.APIKey] { return c.RemoveByID(id) })
		return nil
	})
}

// Validate checks the key with id against the backend.
func (k *APIKeys) Validate(ctx context.Context, id string) (models.KeyValidation, error) {
	var result models.KeyValidation
	err := k.mutate(ctx, "validate", func(ctx context.Context, cred string) error {
		v, err := k.svc.Validate(ctx, cred, id)
		result = v
		return err
	})
	return result, err
}

// GitTokens holds the caller's git hosting tokens.
type GitTokens struct {
	*store[models.GitToken]
	svc GitTokenService
}

// NewGitTokens creates an unmounted git token store.
func NewGitTokens(svc GitTokenService, provider identity.Provider, opts ...Option) *GitTokens {
	return &GitTokens{store: newStore("state.gittokens", provider, svc.ListPage, opts), svc: svc}
}

func (g *GitTokens) Create(ctx context.Context, req models.CreateGitTokenRequest) (models.GitToken, error) {
	var created models.GitToken
	err := g.mutate(ctx, "create", func(ctx context.Context, cred string) error {
		tok, err := g.svc.Create(ctx, cred, req)
		if err != nil {
			return err
		}
		created = tok
		g.apply(func(c Collection[models.GitToken]) Collection[models.GitToken] { return c.AppendIfAbsent(tok) })
		return nil
	})
	return created, err
}

func (g *GitTokens) Update(ctx context.Context, id string, req models.UpdateGitTokenRequest) (models.GitToken, error) {
	var updated models.GitToken
	err := g.mutate(ctx, "update", func(ctx context.Context, cred string) error {
		tok, err := g.svc.Update(ctx, cred, id, req)
		if err != nil {
			return err
		}
		updated = tok
		g.apply(func(c Collection[models.GitToken]) Collection[models.GitToken] { return c.Upsert(tok) })
		return nil
	})
	return updated, err
}

func (g *GitTokens) Delete(ctx context.Context, id string) error {
	return g.mutate(ctx, "delete", func(ctx context.Context, cred string) error {
		if err := g.svc.Delete(ctx, cred, id); err != nil {
			return err
		}
		g.apply(func(c Collection[models.GitToken]) Collection[models.GitToken] { return c.RemoveByID(id) })
		return nil
	})
}

func (g *GitTokens) Validate(ctx context.Context, id string) (models.KeyValidation, error) {
	var result models.KeyValidation
	err := g.mutate(ctx, "validate", func(ctx context.Context, cred string) error {
		v, err := g.svc.Validate(ctx, cred, id)
		result = v
		return err
	})
	return result, err
}

// Repositories holds the repositories registered for analysis.
type Repositories struct {
	*store[models.Repository]
	svc RepositoryService
}

// NewRepositories creates an unmounted repository store.
func NewRepositories(svc RepositoryService, provider identity.Provider, opts ...Option) *Repositories {
	return &Repositories{store: newStore("state.repositories", provider, svc.ListPage, opts), svc: svc}
}

// Add registers a provider repository under tokenID and returns the
// confirmation message.
func (r *Repositories) Add(ctx context.Context, tokenID string, req models.AddRepositoryRequest) (models.Repository, string, error) {
	var (
		added   models.Repository
		message string
	)
	err := r.mutate(ctx, "add", func(ctx context.Context, cred string) error {
		repo, msg, err := r.svc.AddRepository(ctx, cred, tokenID, req)
		if err != nil {
			return err
		}
		added, message = repo, msg
		r.apply(func(c Collection[models.Repository]) Collection[models.Repository] { return c.AppendIfAbsent(repo) })
		return nil
	})
	return added, message, err
}

func (r *Repositories) Delete(ctx context.Context, id string) error {
	return r.mutate(ctx, "delete", func(ctx context.Context, cred string) error {
		if err := r.svc.Delete(ctx, cred, id); err != nil {
			return err
		}
		r.apply(func(c Collection[models.Repository]) Collection[models.Repository] { return c.RemoveByID(id) })
		return nil
	})
}

// Analyze starts an analysis of the repository with id, then refetches so the
// new status and timestamps are visible. The returned error is the analysis
// request's; a failed refetch is left in the store error.
func (r *Repositories) Analyze(ctx context.Context, id string) error {
	err := r.mutate(ctx, "analyze", func(ctx context.Context, cred string) error {
		return r.svc.Analyze(ctx, cred, id)
	})
	if err != nil {
		return err
	}
	if err := r.Refetch(ctx); err != nil && !errors.Is(err, ErrUnmounted) {
		r.logger.WarnContext(ctx, "refetch after analyze failed", "id", id, "error", err)
	}
	return nil
}

// ListByToken lists the provider repositories reachable through tokenID.
// Failures are returned to the caller and do not touch the store error.
func (r *Repositories) ListByToken(ctx context.Context, tokenID string) ([]models.ProviderRepository, error) {
	var repos []models.ProviderRepository
	err := r.call(ctx, "list_by_token", func(ctx context.Context, cred string) error {
		var err error
		repos, err = r.svc.ListByToken(ctx, cred, tokenID)
		return err
	})
	return repos, err
}
