// Package shutdown stops the dashboard's components in reverse start order
// when the process is asked to exit.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout bounds a full shutdown.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when components did not stop within the timeout.
var ErrTimeout = errors.New("shutdown timeout exceeded")

// Component is something that must be stopped before exit.
type Component interface {
	Name() string
	Shutdown(ctx context.Context) error
}

// Coordinator stops registered components one at a time, last registered first.
type Coordinator struct {
	mu         sync.Mutex
	components []Component
	timeout    time.Duration
	logger     *slog.Logger
	signals    []os.Signal

	once sync.Once
	done chan struct{}
	err  error
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSignals overrides the signals Wait listens for.
func WithSignals(sig ...os.Signal) Option {
	return func(c *Coordinator) {
		c.signals = sig
	}
}

// NewCoordinator creates a Coordinator listening for SIGINT and SIGTERM.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "shutdown")
	return c
}

// Register adds a component. Components stop in reverse registration order.
func (c *Coordinator) Register(component Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component)
	c.logger.Debug("registered shutdown component", "name", component.Name())
}

// Wait blocks until ctx ends or a shutdown signal arrives, then shuts down.
func (c *Coordinator) Wait(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, c.signals...)
	defer stop()

	select {
	case <-sigCtx.Done():
		c.logger.Info("received shutdown signal", "cause", context.Cause(sigCtx))
	case <-c.done:
		return c.err
	}
	return c.Shutdown()
}

// Shutdown stops every component once. Later calls return the first result.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		c.logger.Info("initiating graceful shutdown", "timeout", c.timeout)
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		c.mu.Lock()
		components := append([]Component(nil), c.components...)
		c.mu.Unlock()

		var errs []error
		for i := len(components) - 1; i >= 0; i-- {
			comp := components[i]
			if ctx.Err() != nil {
				c.logger.Warn("shutdown timeout exceeded, skipping component", "name", comp.Name())
				errs = append(errs, fmt.Errorf("%s: %w", comp.Name(), ErrTimeout))
				continue
			}
			if err := comp.Shutdown(ctx); err != nil {
				c.logger.Error("component shutdown error", "name", comp.Name(), "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", comp.Name(), err))
				continue
			}
			c.logger.Info("component shutdown complete", "name", comp.Name())
		}

		c.err = errors.Join(errs...)
		close(c.done)
	})
	<-c.done
	return c.err
}

// Done is closed once shutdown has finished.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}
