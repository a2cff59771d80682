// Package devdoxtest provides an in-memory DevDox backend for tests.
package devdoxtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/devdox/dashboard/internal/models"
)

// Token is the bearer credential the backend accepts unless changed.
const Token = "test-session-token"

// Request is a recorded inbound request.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   []byte
}

// Backend is a fake DevDox API backed by in-memory collections.
type Backend struct {
	Server *httptest.Server

	mu            sync.Mutex
	token         string
	apiKeys       []models.APIKey
	gitTokens     []models.GitToken
	repos         []models.Repository
	providerRepos map[string][]models.ProviderRepository
	overrides     map[string]http.HandlerFunc
	requests      []Request
}

// NewBackend starts a Backend and closes it when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		token:         Token,
		providerRepos: make(map[string][]models.ProviderRepository),
		overrides:     make(map[string]http.HandlerFunc),
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Server.Close)
	return b
}

// URL is the base URL of the backend.
func (b *Backend) URL() string { return b.Server.URL }

// SetToken changes the bearer credential the backend accepts.
func (b *Backend) SetToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.token = token
}

// Override replaces the handler for an exact method and path.
func (b *Backend) Override(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[method+" "+path] = h
}

// Status makes method and path answer with a bare status code.
func (b *Backend) Status(method, path string, status int) {
	b.Override(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
}

// Raw makes method and path answer with a fixed JSON body.
func (b *Backend) Raw(method, path string, status int, body string) {
	b.Override(method, path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	})
}

// Requests returns every recorded request.
func (b *Backend) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Request(nil), b.requests...)
}

// LastRequest returns the most recent request matching method and path.
func (b *Backend) LastRequest(method, path string) (Request, bool) {
	reqs := b.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

// SeedAPIKeys replaces the stored API keys.
func (b *Backend) SeedAPIKeys(keys ...models.APIKey) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.apiKeys = append([]models.APIKey(nil), keys...)
}

// SeedGitTokens replaces the stored git tokens.
func (b *Backend) SeedGitTokens(tokens ...models.GitToken) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gitTokens = append([]models.GitToken(nil), tokens...)
}

// SeedRepositories replaces the registered repositories.
func (b *Backend) SeedRepositories(repos ...models.Repository) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.repos = append([]models.Repository(nil), repos...)
}

// SeedProviderRepos sets the repositories visible through tokenID.
func (b *Backend) SeedProviderRepos(tokenID string, repos ...models.ProviderRepository) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providerRepos[tokenID] = append([]models.ProviderRepository(nil), repos...)
}

// Repositories returns the registered repositories.
func (b *Backend) Repositories() []models.Repository {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Repository(nil), b.repos...)
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.override)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(b.requireToken)

		r.Get("/api_keys", b.listAPIKeys)
		r.Post("/api_keys", b.createAPIKey)
		r.Delete("/api_keys/{id}", b.deleteAPIKey)
		r.Post("/api_keys/{id}/validate", b.validateAPIKey)

		r.Get("/git_tokens", b.listGitTokens)
		r.Post("/git_tokens", b.createGitToken)
		r.Put("/git_tokens/{id}", b.updateGitToken)
		r.Delete("/git_tokens/{id}", b.deleteGitToken)
		r.Post("/git_tokens/{id}/validate", b.validateGitToken)
		r.Get("/git_tokens/{id}/repos", b.listProviderRepos)
		r.Post("/git_tokens/{id}/repos", b.addRepository)

		r.Get("/repos", b.listRepos)
		r.Delete("/repos/{id}", b.deleteRepo)
		r.Post("/repos/analyze/{id}", b.analyzeRepo)
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		b.mu.Lock()
		b.requests = append(b.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
			Body:   body,
		})
		b.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (b *Backend) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		h, ok := b.overrides[r.Method+" "+r.URL.Path]
		b.mu.Unlock()
		if ok {
			h(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		want := "Bearer " + b.token
		b.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid or expired token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func listEnvelope[T any](r *http.Request, key string, all []T) map[string]any {
	limit, offset := models.DefaultLimit, models.DefaultOffset
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil {
		offset = v
	}

	page := []T{}
	if offset < len(all) {
		end := offset + limit
		if end > len(all) {
			end = len(all)
		}
		page = append(page, all[offset:end]...)
	}
	return map[string]any{
		"data": map[string]any{key: page, "total": len(all), "limit": limit, "offset": offset},
	}
}

func (b *Backend) listAPIKeys(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	keys := make([]models.APIKey, len(b.apiKeys))
	for i, k := range b.apiKeys {
		keys[i] = k.Redacted()
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, listEnvelope(r, "items", keys))
}

func (b *Backend) createAPIKey(w http.ResponseWriter, r *http.Request) {
	raw := "dvx_" + uuid.NewString()
	key := models.APIKey{
		ID:           uuid.NewString(),
		Key:          raw,
		MaskedAPIKey: models.MaskToken(raw),
		CreatedAt:    time.Now().UTC(),
	}
	b.mu.Lock()
	b.apiKeys = append(b.apiKeys, key)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": key})
}

func (b *Backend) deleteAPIKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, k := range b.apiKeys {
		if k.ID == id {
			b.apiKeys = append(b.apiKeys[:i], b.apiKeys[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (b *Backend) validateAPIKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range b.apiKeys {
		if k.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"data": models.KeyValidation{Valid: true, Message: "API key is valid"}})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (b *Backend) listGitTokens(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	tokens := append([]models.GitToken(nil), b.gitTokens...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, listEnvelope(r, "tokens", tokens))
}

func (b *Backend) createGitToken(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGitTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Validate() != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid payload"})
		return
	}
	tok := models.GitToken{
		ID:          uuid.NewString(),
		Label:       req.Label,
		GitHosting:  req.GitHosting,
		MaskedToken: models.MaskToken(req.TokenValue),
		CreatedAt:   time.Now().UTC(),
	}
	b.mu.Lock()
	b.gitTokens = append(b.gitTokens, tok)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"data": tok})
}

func (b *Backend) updateGitToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.UpdateGitTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid payload"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.gitTokens {
		if t.ID != id {
			continue
		}
		if req.Label != nil {
			t.Label = *req.Label
		}
		if req.GitHosting != nil {
			t.GitHosting = *req.GitHosting
		}
		if req.TokenValue != nil {
			t.MaskedToken = models.MaskToken(*req.TokenValue)
		}
		now := time.Now().UTC()
		t.UpdatedAt = &now
		b.gitTokens[i] = t
		writeJSON(w, http.StatusOK, map[string]any{"data": t})
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (b *Backend) deleteGitToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, t := range b.gitTokens {
		if t.ID == id {
			b.gitTokens = append(b.gitTokens[:i], b.gitTokens[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (b *Backend) validateGitToken(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range b.gitTokens {
		if t.ID == id {
			writeJSON(w, http.StatusOK, map[string]any{"data": models.KeyValidation{Valid: true}, "message": "Token is valid"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (b *Backend) listProviderRepos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	repos, ok := b.providerRepos[id]
	b.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "token not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"repos": repos}})
}

func (b *Backend) addRepository(w http.ResponseWriter, r *http.Request) {
	var req models.AddRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Validate() != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid payload"})
		return
	}
	now := time.Now().UTC()
	repo := models.Repository{
		ID:            uuid.NewString(),
		RepoName:      req.RelativePath,
		RepoAliasName: req.RepoAliasName,
		Status:        "pending",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	b.mu.Lock()
	b.repos = append(b.repos, repo)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"data":    repo,
		"message": fmt.Sprintf("Repository %s added", req.RelativePath),
	})
}

func (b *Backend) listRepos(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	repos := append([]models.Repository(nil), b.repos...)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, listEnvelope(r, "repos", repos))
}

func (b *Backend) deleteRepo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, repo := range b.repos {
		if repo.ID == id {
			b.repos = append(b.repos[:i], b.repos[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func (b *Backend) analyzeRepo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, repo := range b.repos {
		if repo.ID == id {
			now := time.Now().UTC()
			repo.RepoUpdatedAt = &now
			repo.Status = "analyzed"
			b.repos[i] = repo
			writeJSON(w, http.StatusAccepted, map[string]any{"data": map[string]string{"id": id}, "message": "Analysis started"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}
