// Package state keeps client-side collections of DevDox resources in sync with
// the backend.
//
// A store is owned by one view. It is created empty, populated on Mount,
// merged after confirmed mutations, and discarded on Unmount. After Unmount no
// state is written and in-flight requests are cancelled.
package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/resources"
	"github.com/devdox/dashboard/web/api"
)

// ErrUnmounted is returned by actions invoked on a store that is not mounted.
var ErrUnmounted = errors.New("store is not mounted")

// Snapshot is a consistent view of a store.
type Snapshot[T Identifiable] struct {
	Items []T
	// Total counts the entities across all backend pages, not only Items.
	Total   int
	Loading bool
	Err     error
}

// ErrMessage returns the presentable error text, or "".
func (s Snapshot[T]) ErrMessage() string {
	if s.Err == nil {
		return ""
	}
	return resources.Message(s.Err, "Something went wrong")
}

// Option configures a store.
type Option func(*options)

type options struct {
	logger *slog.Logger
	page   models.Page
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPage sets the page requested by Refetch.
func WithPage(page models.Page) Option {
	return func(o *options) {
		o.page = page.Normalize()
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), page: models.DefaultPage()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// store is the lifecycle and bookkeeping shared by every resource store.
type store[T Identifiable] struct {
	mu      sync.Mutex
	items   Collection[T]
	total   int
	loading bool
	err     error
	alive   bool
	life    context.Context
	cancel  context.CancelFunc

	listeners map[uint64]func(Snapshot[T])
	nextSub   uint64

	provider identity.Provider
	logger   *slog.Logger
	page     models.Page
	list     func(ctx context.Context, credential string, page models.Page) (api.Page[T], error)
}

func newStore[T Identifiable](
	component string,
	provider identity.Provider,
	list func(context.Context, string, models.Page) (api.Page[T], error),
	opts []Option,
) *store[T] {
	o := buildOptions(opts)
	return &store[T]{
		items:     NewCollection[T](),
		listeners: make(map[uint64]func(Snapshot[T])),
		provider:  provider,
		logger:    o.logger.With("component", component),
		page:      o.page,
		list:      list,
	}
}

// Mount marks the store alive and performs the initial fetch.
func (s *store[T]) Mount(ctx context.Context) error {
	s.Attach(ctx)
	return s.Refetch(ctx)
}

// Attach marks the store alive without fetching. Actions work on an attached
// store and merge their results into whatever it already holds.
func (s *store[T]) Attach(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		s.alive = true
		s.life, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	}
}

// Unmount stops all state updates and cancels in-flight requests.
func (s *store[T]) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive {
		return
	}
	s.alive = false
	s.cancel()
	clear(s.listeners)
}

// Subscribe registers fn to receive a snapshot after every state change.
// Listeners run on the goroutine that changed the state.
func (s *store[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Mounted reports whether the store is alive.
func (s *store[T]) Mounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Snapshot returns the current state.
func (s *store[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *store[T]) snapshotLocked() Snapshot[T] {
	return Snapshot[T]{Items: s.items.Items(), Total: s.total, Loading: s.loading, Err: s.err}
}

// Items returns the current collection.
func (s *store[T]) Items() []T {
	return s.Snapshot().Items
}

// Refetch replaces the collection with a full list from the backend.
// Concurrent refetches are not coalesced; the last to settle wins.
func (s *store[T]) Refetch(ctx context.Context) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	s.update(func() {
		s.loading = true
		s.err = nil
	})
	defer s.update(func() { s.loading = false })

	token, err := s.credential(ctx, "list")
	if err != nil {
		s.setErr(err)
		return err
	}

	page, err := s.list(ctx, token, s.page)
	if err != nil {
		s.setErr(err)
		return err
	}

	s.update(func() {
		s.items = s.items.Replace(page.Items)
		s.total = max(page.Total, s.items.Len())
	})
	return nil
}

// begin derives a context that ends when either ctx or the store lifecycle ends.
func (s *store[T]) begin(ctx context.Context) (context.Context, func(), error) {
	s.mu.Lock()
	alive, life := s.alive, s.life
	s.mu.Unlock()
	if !alive {
		return nil, nil, ErrUnmounted
	}

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}, nil
}

func (s *store[T]) credential(ctx context.Context, op string) (string, error) {
	token, err := identity.Require(ctx, s.provider)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, identity.ErrNoCredential) {
		s.logger.WarnContext(ctx, "identity provider failed", "op", op, "error", err)
	}
	return "", resources.MissingCredential(op)
}

// update applies fn under the lock if the store is still alive, then
// notifies listeners outside the lock.
func (s *store[T]) update(fn func()) {
	s.mu.Lock()
	if !s.alive {
		s.mu.Unlock()
		return
	}
	fn()
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot[T]), 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

func (s *store[T]) setErr(err error) {
	s.update(func() { s.err = err })
}

// apply merges a confirmed mutation. The total moves by the same amount
// as the collection.
func (s *store[T]) apply(fn func(Collection[T]) Collection[T]) {
	s.update(func() {
		before := s.items.Len()
		s.items = fn(s.items)
		s.total = max(s.total+s.items.Len()-before, s.items.Len())
	})
}

// call runs fn with a credential and the lifecycle-bound context. Failures are
// returned but not recorded.
func (s *store[T]) call(ctx context.Context, op string, fn func(ctx context.Context, credential string) error) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	token, err := s.credential(ctx, op)
	if err != nil {
		return err
	}
	return fn(ctx, token)
}

// mutate is call plus recording the failure in the store error.
func (s *store[T]) mutate(ctx context.Context, op string, fn func(ctx context.Context, credential string) error) error {
	err := s.call(ctx, op, fn)
	if err != nil && !errors.Is(err, ErrUnmounted) {
		s.setErr(err)
	}
	return err
}
