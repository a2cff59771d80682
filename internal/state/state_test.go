package state

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devdox/dashboard/internal/devdoxtest"
	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/notify"
	"github.com/devdox/dashboard/internal/resources"
	"github.com/devdox/dashboard/web/api"
)

type fixture struct {
	backend  *devdoxtest.Backend
	services *resources.Services
	logs     *bytes.Buffer
	logger   *slog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend := devdoxtest.NewBackend(t)
	client, err := api.NewClient(backend.URL(), api.WithTimeout(5*time.Second))
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &fixture{backend: backend, services: resources.New(client, logger), logs: &logs, logger: logger}
}

func (f *fixture) repositories(t *testing.T, provider identity.Provider) *Repositories {
	t.Helper()
	s := NewRepositories(f.services.Repositories, provider, WithLogger(f.logger))
	t.Cleanup(s.Unmount)
	return s
}

func ids[T Identifiable](items []T) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.GetID()
	}
	return out
}

func countRequests(b *devdoxtest.Backend, method, path string) int {
	n := 0
	for _, r := range b.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func TestListCreateListHasEntityOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keys := NewAPIKeys(f.services.APIKeys, identity.Static(devdoxtest.Token))
	defer keys.Unmount()
	require.NoError(t, keys.Mount(ctx))
	assert.Empty(t, keys.Items())

	created, err := keys.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, created.Key, "raw key is returned once")

	require.NoError(t, keys.Refetch(ctx))
	items := keys.Items()
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)
	assert.Empty(t, items[0].Key, "store never keeps the raw key")
	assert.NotEmpty(t, items[0].MaskedAPIKey)

	tokens := NewGitTokens(f.services.GitTokens, identity.Static(devdoxtest.Token))
	defer tokens.Unmount()
	require.NoError(t, tokens.Mount(ctx))
	tok, err := tokens.Create(ctx, models.CreateGitTokenRequest{
		Label: "ci", TokenValue: "ghp_1234567890abcdef", GitHosting: models.GitHostingGitHub,
	})
	require.NoError(t, err)
	require.NoError(t, tokens.Refetch(ctx))
	assert.Equal(t, []string{tok.ID}, ids(tokens.Items()))
}

func TestDeleteRemovesWithoutRefetch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedRepositories(
		models.Repository{ID: "r1", RepoName: "org/one"},
		models.Repository{ID: "r2", RepoName: "org/two"},
	)

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	require.NoError(t, repos.Mount(ctx))
	require.Equal(t, []string{"r1", "r2"}, ids(repos.Items()))

	require.NoError(t, repos.Delete(ctx, "r1"))
	assert.Equal(t, []string{"r2"}, ids(repos.Items()))
	assert.Equal(t, 1, countRequests(f.backend, http.MethodGet, "/api/v1/repos"))
}

func TestAPIKeysKeepServerOrder(t *testing.T) {
	f := newFixture(t)
	f.backend.Raw(http.MethodGet, "/api/v1/api_keys", http.StatusOK,
		`{"data":{"items":[{"id":"a"},{"id":"b"},{"id":"c"}],"total":3,"limit":20,"offset":0}}`)

	keys := NewAPIKeys(f.services.APIKeys, identity.Static(devdoxtest.Token))
	defer keys.Unmount()
	require.NoError(t, keys.Mount(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, ids(keys.Items()))
}

func TestMalformedPayloadYieldsEmptyCollection(t *testing.T) {
	for _, body := range []string{`{"data":null}`, `{"data":{"items":"not-an-array"}}`} {
		t.Run(body, func(t *testing.T) {
			f := newFixture(t)
			f.backend.Raw(http.MethodGet, "/api/v1/api_keys", http.StatusOK, body)

			keys := NewAPIKeys(f.services.APIKeys, identity.Static(devdoxtest.Token))
			defer keys.Unmount()
			require.NoError(t, keys.Mount(context.Background()))

			snap := keys.Snapshot()
			assert.NotNil(t, snap.Items)
			assert.Empty(t, snap.Items)
			assert.NoError(t, snap.Err)
			assert.False(t, snap.Loading)
			assert.Contains(t, f.logs.String(), `"level":"WARN"`)
		})
	}
}

func TestUnauthorizedSetsAuthError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repos := f.repositories(t, identity.Static("expired-session"))
	err := repos.Mount(ctx)
	require.ErrorIs(t, err, resources.ErrUnauthenticated)

	snap := repos.Snapshot()
	assert.Equal(t, resources.MsgUnauthenticated, snap.ErrMessage())
	assert.NotEqual(t, resources.MsgNetwork, snap.ErrMessage())
	assert.False(t, snap.Loading)

	keys := NewAPIKeys(f.services.APIKeys, identity.Static("expired-session"))
	defer keys.Unmount()
	require.ErrorIs(t, keys.Mount(ctx), resources.ErrUnauthenticated)
	_, err = keys.Create(ctx)
	assert.ErrorIs(t, err, resources.ErrUnauthenticated)
	assert.Equal(t, resources.MsgUnauthenticated, keys.Snapshot().ErrMessage())

	err = keys.Delete(ctx, "k1")
	assert.ErrorIs(t, err, resources.ErrUnauthenticated)
}

func TestMissingCredentialFailsFast(t *testing.T) {
	f := newFixture(t)

	repos := f.repositories(t, identity.Static(""))
	err := repos.Mount(context.Background())
	require.ErrorIs(t, err, resources.ErrUnauthenticated)
	assert.Equal(t, resources.MsgNoCredential, err.Error())
	assert.Empty(t, f.backend.Requests())
	assert.False(t, repos.Snapshot().Loading)
}

func TestNoStateWritesAfterUnmount(t *testing.T) {
	f := newFixture(t)
	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	f.backend.Override(http.MethodGet, "/api/v1/repos", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-release:
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"repos":[{"id":"late"}]}}`))
	})

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	var changes int
	var mu sync.Mutex
	repos.Subscribe(func(Snapshot[models.Repository]) {
		mu.Lock()
		changes++
		mu.Unlock()
	})

	done := make(chan error, 1)
	go func() { done <- repos.Mount(context.Background()) }()

	<-started
	mu.Lock()
	before := changes
	mu.Unlock()
	repos.Unmount()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, resources.ErrCanceled)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight request was not cancelled by Unmount")
	}

	snap := repos.Snapshot()
	assert.Empty(t, snap.Items)
	assert.NoError(t, snap.Err)
	mu.Lock()
	assert.Equal(t, before, changes)
	mu.Unlock()

	assert.ErrorIs(t, repos.Refetch(context.Background()), ErrUnmounted)
	assert.False(t, repos.Mounted())
}

func TestConcurrentCreatesNeverDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keys := NewAPIKeys(f.services.APIKeys, identity.Static(devdoxtest.Token))
	defer keys.Unmount()
	require.NoError(t, keys.Mount(ctx))

	const n = 10
	var wg sync.WaitGroup
	for _i := 0; _i < n; _i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := keys.Create(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items := keys.Items()
	assert.Len(t, items, n)
	seen := map[string]bool{}
	for _, k := range items {
		assert.False(t, seen[k.ID], "duplicate id %s", k.ID)
		seen[k.ID] = true
	}

	require.NoError(t, keys.Refetch(ctx))
	assert.Len(t, keys.Items(), n)
}

// repeatingKeys returns the same key from every Create, as a replayed
// response would.
type repeatingKeys struct {
	key models.APIKey
}

func (r repeatingKeys) ListPage(context.Context, string, models.Page) (api.Page[models.APIKey], error) {
	return api.Page[models.APIKey]{Items: []models.APIKey{}}, nil
}

func (r repeatingKeys) Create(context.Context, string) (models.APIKey, error) {
	return r.key, nil
}

func (r repeatingKeys) Delete(context.Context, string, string) error { return nil }

func (r repeatingKeys) Validate(context.Context, string, string) (models.KeyValidation, error) {
	return models.KeyValidation{Valid: true}, nil
}

func TestRepeatedCreateSettlementAppendsOnce(t *testing.T) {
	ctx := context.Background()
	keys := NewAPIKeys(repeatingKeys{key: models.APIKey{ID: "k1", Key: "dvx_secretsecret"}}, identity.Static("x"))
	defer keys.Unmount()
	require.NoError(t, keys.Mount(ctx))

	for _i := 0; _i < 3; _i++ {
		_, err := keys.Create(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"k1"}, ids(keys.Items()))

	require.NoError(t, keys.Delete(ctx, "k1"))
	assert.Empty(t, keys.Items())
}

func TestGitTokenUpdateUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedGitTokens(
		models.GitToken{ID: "t1", Label: "old", GitHosting: models.GitHostingGitHub},
		models.GitToken{ID: "t2", Label: "other", GitHosting: models.GitHostingGitLab},
	)

	tokens := NewGitTokens(f.services.GitTokens, identity.Static(devdoxtest.Token))
	defer tokens.Unmount()
	require.NoError(t, tokens.Mount(ctx))

	label := "renamed"
	_, err := tokens.Update(ctx, "t1", models.UpdateGitTokenRequest{Label: &label})
	require.NoError(t, err)

	items := tokens.Items()
	require.Equal(t, []string{"t1", "t2"}, ids(items))
	assert.Equal(t, "renamed", items[0].Label)

	v, err := tokens.Validate(ctx, "t2")
	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestAnalyzeRefetches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedRepositories(models.Repository{ID: "r1", RepoName: "org/app"})

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	require.NoError(t, repos.Mount(ctx))
	assert.Equal(t, "Analyze", repos.Items()[0].ActionLabel())

	require.NoError(t, repos.Analyze(ctx, "r1"))
	assert.Equal(t, "Re-analyze", repos.Items()[0].ActionLabel())
	assert.Equal(t, 2, countRequests(f.backend, http.MethodGet, "/api/v1/repos"))

	err := repos.Analyze(ctx, "missing")
	assert.ErrorIs(t, err, resources.ErrNotFound)
	assert.Equal(t, "Repository not found", repos.Snapshot().ErrMessage())
}

func TestSubscribeSeesLoadingTransitions(t *testing.T) {
	f := newFixture(t)
	f.backend.SeedRepositories(models.Repository{ID: "r1"})

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	var snaps []Snapshot[models.Repository]
	unsubscribe := repos.Subscribe(func(s Snapshot[models.Repository]) { snaps = append(snaps, s) })
	require.NoError(t, repos.Mount(context.Background()))
	unsubscribe()

	require.Len(t, snaps, 3)
	assert.True(t, snaps[0].Loading)
	assert.Equal(t, []string{"r1"}, ids(snaps[1].Items))
	assert.False(t, snaps[2].Loading)
}

func TestAddRepositoryFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedProviderRepos("t1", models.ProviderRepository{RepoName: "org/app", Private: true})

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	require.NoError(t, repos.Mount(ctx))
	center := notify.NewCenter(notify.WithDuration(time.Hour))
	flow := NewAddRepositoryFlow(repos, center)

	flow.Open()
	assert.True(t, flow.State().Open)

	choices, err := flow.SelectToken(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, choices, 1)
	assert.Equal(t, "org/app", choices[0].RepoName)
	assert.True(t, choices[0].Private)

	repo, err := flow.Submit(ctx, choices[0].RepoName, "My App")
	require.NoError(t, err)
	assert.Equal(t, "org/app", repo.RepoName)

	req, ok := f.backend.LastRequest(http.MethodPost, "/api/v1/git_tokens/t1/repos")
	require.True(t, ok)
	var body map[string]string
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]string{
		"relative_path":       "org/app",
		"repo_alias_name":     "My App",
		"repo_user_reference": "",
	}, body)

	assert.False(t, flow.State().Open)
	notes := center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.TypeSuccess, notes[0].Type)
	assert.Equal(t, "Repository org/app added", notes[0].Message)
	assert.Equal(t, []string{repo.ID}, ids(repos.Items()))
}

func TestAddRepositoryFlowFailureStaysOpen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedProviderRepos("t1", models.ProviderRepository{RepoName: "org/app"})
	f.backend.Status(http.MethodPost, "/api/v1/git_tokens/t1/repos", http.StatusInternalServerError)

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	require.NoError(t, repos.Mount(ctx))
	center := notify.NewCenter()
	flow := NewAddRepositoryFlow(repos, center)

	_, err := flow.Submit(ctx, "org/app", "")
	require.Error(t, err)
	assert.Equal(t, ErrNoTokenSelected.Error(), err.Error())

	_, err = flow.SelectToken(ctx, "t1")
	require.NoError(t, err)
	_, err = flow.Submit(ctx, "org/app", "")
	require.Error(t, err)

	state := flow.State()
	assert.True(t, state.Open)
	assert.Equal(t, "t1", state.TokenID)
	notes := center.List()
	require.Len(t, notes, 1)
	assert.Equal(t, notify.TypeError, notes[0].Type)
	assert.Equal(t, "Failed to add repository", notes[0].Message)
	assert.Empty(t, repos.Items())
}

func TestSelectTokenCancelsPreviousListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedProviderRepos("t1", models.ProviderRepository{RepoName: "org/app"})

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	f.backend.Override(http.MethodGet, "/api/v1/git_tokens/slow/repos", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	require.NoError(t, repos.Mount(ctx))
	flow := NewAddRepositoryFlow(repos, notify.NewCenter())

	slow := make(chan error, 1)
	go func() {
		_, err := flow.SelectToken(ctx, "slow")
		slow <- err
	}()
	<-started

	choices, err := flow.SelectToken(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, choices, 1)

	select {
	case err := <-slow:
		assert.ErrorIs(t, err, resources.ErrCanceled)
	case <-time.After(5 * time.Second):
		t.Fatal("previous listing was not cancelled")
	}

	state := flow.State()
	assert.Equal(t, "t1", state.TokenID)
	assert.Len(t, state.Choices, 1)
	assert.False(t, state.Loading)
}

func TestUnmountedStoreRejectsActions(t *testing.T) {
	f := newFixture(t)
	keys := NewAPIKeys(f.services.APIKeys, identity.Static(devdoxtest.Token))

	_, err := keys.Create(context.Background())
	assert.ErrorIs(t, err, ErrUnmounted)
	assert.Empty(t, f.backend.Requests())
}

func TestAttachedStoreActsWithoutListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedRepositories(models.Repository{ID: "r1", RepoName: "org/app"})
	f.backend.Status(http.MethodGet, "/api/v1/repos", http.StatusInternalServerError)

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	repos.Attach(ctx)
	require.True(t, repos.Mounted())

	require.NoError(t, repos.Delete(ctx, "r1"))
	assert.Empty(t, f.backend.Repositories())
	assert.Zero(t, countRequests(f.backend, http.MethodGet, "/api/v1/repos"))
	assert.NoError(t, repos.Snapshot().Err)
}

func TestAnalyzeSucceedsWhenRefetchFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.backend.SeedRepositories(models.Repository{ID: "r1", RepoName: "org/app"})
	f.backend.Status(http.MethodGet, "/api/v1/repos", http.StatusInternalServerError)

	repos := f.repositories(t, identity.Static(devdoxtest.Token))
	repos.Attach(ctx)

	require.NoError(t, repos.Analyze(ctx, "r1"))
	_, ok := f.backend.LastRequest(http.MethodPost, "/api/v1/repos/analyze/r1")
	assert.True(t, ok)
	assert.Equal(t, "Failed to fetch repositories", repos.Snapshot().ErrMessage())
}

func TestTotalCountsAllPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var seeded []models.Repository
	for i := 0; i < 25; i++ {
		seeded = append(seeded, models.Repository{ID: fmt.Sprintf("r%02d", i)})
	}
	f.backend.SeedRepositories(seeded...)

	repos := NewRepositories(f.services.Repositories, identity.Static(devdoxtest.Token),
		WithLogger(f.logger), WithPage(models.Page{Limit: 20}))
	defer repos.Unmount()
	require.NoError(t, repos.Mount(ctx))

	snap := repos.Snapshot()
	assert.Len(t, snap.Items, 20)
	assert.Equal(t, 25, snap.Total)

	require.NoError(t, repos.Delete(ctx, "r00"))
	assert.Equal(t, 24, repos.Snapshot().Total)
}
