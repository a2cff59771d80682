package resources

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/web/api"
)

// base carries what every resource service needs.
type base struct {
	client *api.Client
	logger *slog.Logger
	entity string
}

func newBase(client *api.Client, logger *slog.Logger, component, entity string) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		client: client,
		logger: logger.With("component", component),
		entity: entity,
	}
}

// fail logs the cause and returns the translated error.
func (b base) fail(ctx context.Context, op, failMsg string, err error) error {
	translated := translate(op, b.entity, failMsg, err)
	level := slog.LevelError
	if translated.Kind == KindCanceled || translated.Kind == KindValidation {
		level = slog.LevelDebug
	}
	b.logger.Log(ctx, level, "resource request failed",
		"op", op,
		"kind", string(translated.Kind),
		"error", err,
	)
	return translated
}

// invalid returns a validation failure without contacting the backend.
func (b base) invalid(ctx context.Context, op string, err error) error {
	return b.fail(ctx, op, "", NewError(op, KindValidation, err.Error()))
}

func pageParams(page models.Page) api.Params {
	page = page.Normalize()
	return api.Params{
		"limit":  page.Limit,
		"offset": page.Offset,
	}
}

// decodePage unwraps a list envelope. Malformed payloads degrade to an empty
// page and a warning.
func decodePage[T any](ctx context.Context, b base, op string, raw json.RawMessage, keys ...string) api.Page[T] {
	page, err := api.DecodeList[T](raw, keys...)
	if err != nil {
		var envErr *api.EnvelopeError
		if errors.As(err, &envErr) {
			b.logger.WarnContext(ctx, "malformed list response, using empty result",
				"op", op,
				"reason", envErr.Reason,
			)
		}
		return api.Page[T]{Items: []T{}}
	}
	return page
}

func decodeList[T any](ctx context.Context, b base, op string, raw json.RawMessage, keys ...string) []T {
	return decodePage[T](ctx, b, op, raw, keys...).Items
}

// Services bundles the three resource services over one client.
type Services struct {
	APIKeys      *APIKeyService
	GitTokens    *GitTokenService
	Repositories *RepositoryService
}

// New constructs every resource service over client.
func New(client *api.Client, logger *slog.Logger) *Services {
	return &Services{
		APIKeys:      NewAPIKeyService(client, logger),
		GitTokens:    NewGitTokenService(client, logger),
		Repositories: NewRepositoryService(client, logger),
	}
}
