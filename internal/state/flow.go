package state

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/resources"
)

// Notifier receives user-facing outcomes of the add repository flow.
type Notifier interface {
	Success(title, message string) string
	Error(title, message string) string
}

// ErrNoTokenSelected is returned by Submit before a git token was chosen.
var ErrNoTokenSelected = errors.New("select a git token first")

// FlowState is a snapshot of an AddRepositoryFlow.
type FlowState struct {
	Open    bool
	TokenID string
	Choices []models.ProviderRepository
	Loading bool
	Err     error
}

// AddRepositoryFlow drives adding a provider repository: choose a token, pick
// one of its repositories, name it, submit.
type AddRepositoryFlow struct {
	repos    *Repositories
	notifier Notifier

	mu      sync.Mutex
	open    bool
	tokenID string
	choices []models.ProviderRepository
	loading bool
	err     error
	seq     uint64
	cancel  context.CancelFunc
}

// NewAddRepositoryFlow creates a closed flow over a mounted repository store.
func NewAddRepositoryFlow(repos *Repositories, notifier Notifier) *AddRepositoryFlow {
	return &AddRepositoryFlow{repos: repos, notifier: notifier}
}

// Open resets the flow and marks it open.
func (f *AddRepositoryFlow) Open() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
	f.open = true
}

// Close cancels any pending listing and resets the flow.
func (f *AddRepositoryFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *AddRepositoryFlow) resetLocked() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.seq++
	f.open = false
	f.tokenID = ""
	f.choices = nil
	f.loading = false
	f.err = nil
}

// State returns a copy of the current flow state.
func (f *AddRepositoryFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	choices := make([]models.ProviderRepository, len(f.choices))
	copy(choices, f.choices)
	return FlowState{Open: f.open, TokenID: f.tokenID, Choices: choices, Loading: f.loading, Err: f.err}
}

// SelectToken lists the repositories reachable through tokenID. A listing
// still in flight for a previous token is cancelled and its result dropped.
func (f *AddRepositoryFlow) SelectToken(ctx context.Context, tokenID string) ([]models.ProviderRepository, error) {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	f.seq++
	seq := f.seq
	f.cancel = cancel
	f.open = true
	f.tokenID = tokenID
	f.choices = nil
	f.loading = true
	f.err = nil
	f.mu.Unlock()

	repos, err := f.repos.ListByToken(ctx, tokenID)

	f.mu.Lock()
	defer f.mu.Unlock()
	cancel()
	if seq != f.seq {
		return nil, resources.NewError("list_by_token", resources.KindCanceled, resources.MsgCanceled)
	}
	f.cancel = nil
	f.loading = false
	if err != nil {
		f.err = err
		return nil, err
	}
	f.choices = repos
	return repos, nil
}

// Submit adds relativePath under the selected token. On success a success
// notification carries the server message and the flow closes. On failure an
// error notification is raised and the flow stays open for a retry.
func (f *AddRepositoryFlow) Submit(ctx context.Context, relativePath, alias string) (models.Repository, error) {
	f.mu.Lock()
	tokenID := f.tokenID
	f.mu.Unlock()
	if tokenID == "" {
		return models.Repository{}, resources.NewError("add", resources.KindValidation, ErrNoTokenSelected.Error())
	}

	alias = strings.TrimSpace(alias)
	if alias == "" {
		alias = relativePath
	}

	repo, message, err := f.repos.Add(ctx, tokenID, models.AddRepositoryRequest{
		RelativePath:      relativePath,
		RepoAliasName:     alias,
		RepoUserReference: "",
	})
	if err != nil {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		f.notifier.Error("Failed to add repository", resources.Message(err, "Failed to add repository"))
		return models.Repository{}, err
	}

	f.notifier.Success("Repository added", message)
	f.Close()
	return repo, nil
}
