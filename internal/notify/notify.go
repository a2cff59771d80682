// Package notify holds transient user notifications for the dashboard and CLI.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultDuration is how long an auto-closing notification stays visible.
	DefaultDuration = 5 * time.Second
	// DefaultLimit caps the notifications one center holds. Adding past it
	// drops the oldest.
	DefaultLimit = 50
	// DefaultIdleTimeout is how long a center without subscribers may go
	// unused before a Registry forgets it.
	DefaultIdleTimeout = 24 * time.Hour

	sweepInterval = time.Minute
)

// Type is the notification severity.
type Type string

const (
	TypeSuccess Type = "success"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
	TypeWarning Type = "warning"
)

// Notification is a single message shown to the user.
type Notification struct {
	ID        string        `json:"id"`
	Type      Type          `json:"type"`
	Title     string        `json:"title"`
	Message   string        `json:"message,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Duration  time.Duration `json:"duration,omitempty"`
	// Persistent notifications are never closed automatically.
	Persistent bool `json:"persistent,omitempty"`
}

// Action describes what happened to a notification.
type Action string

const (
	ActionAdded   Action = "added"
	ActionRemoved Action = "removed"
	ActionCleared Action = "cleared"
)

// Event is delivered to subscribers on every change.
type Event struct {
	Action       Action       `json:"action"`
	Notification Notification `json:"notification"`
}

const subscriberBuffer = 16

// Center stores notifications for one user.
type Center struct {
	mu       sync.Mutex
	items    []Notification
	timers   map[string]*time.Timer
	subs     map[uint64]chan Event
	nextSub  uint64
	duration time.Duration
	limit    int
	idle     time.Duration
	touched  time.Time
	logger   *slog.Logger
}

// Option configures a Center.
type Option func(*Center)

// WithDuration sets the default auto-close duration.
func WithDuration(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.duration = d
		}
	}
}

// WithLimit sets how many notifications a center keeps.
func WithLimit(n int) Option {
	return func(c *Center) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithIdleTimeout sets how long an unwatched center survives in a Registry.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Center) {
		if d > 0 {
			c.idle = d
		}
	}
}

// WithLogger sets the center logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Center) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCenter creates an empty Center.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		timers:   make(map[string]*time.Timer),
		subs:     make(map[uint64]chan Event),
		duration: DefaultDuration,
		limit:    DefaultLimit,
		idle:     DefaultIdleTimeout,
		touched:  time.Now(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "notify")
	return c
}

// Add stores n and returns its id. Unless n is persistent it is removed after
// its duration, or the center default when unset.
func (c *Center) Add(n Notification) string {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	if n.Duration <= 0 {
		n.Duration = c.duration
	}

	c.mu.Lock()
	c.touched = time.Now()
	var dropped []Notification
	if over := len(c.items) + 1 - c.limit; over > 0 {
		dropped = append(dropped, c.items[:over]...)
		c.items = append(c.items[:0:0], c.items[over:]...)
		for _, d := range dropped {
			c.stopTimerLocked(d.ID)
		}
	}
	c.items = append(c.items, n)
	if !n.Persistent {
		id := n.ID
		c.timers[id] = time.AfterFunc(n.Duration, func() { c.Remove(id) })
	}
	c.mu.Unlock()

	for _, d := range dropped {
		c.publish(Event{Action: ActionRemoved, Notification: d})
	}
	c.publish(Event{Action: ActionAdded, Notification: n})
	return n.ID
}

func (c *Center) stopTimerLocked(id string) {
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
}

// Success adds an auto-closing success notification.
func (c *Center) Success(title, message string) string {
	return c.Add(Notification{Type: TypeSuccess, Title: title, Message: message})
}

// Error adds an error notification that stays until dismissed.
func (c *Center) Error(title, message string) string {
	return c.Add(Notification{Type: TypeError, Title: title, Message: message, Persistent: true})
}

func (c *Center) Info(title, message string) string {
	return c.Add(Notification{Type: TypeInfo, Title: title, Message: message})
}

func (c *Center) Warning(title, message string) string {
	return c.Add(Notification{Type: TypeWarning, Title: title, Message: message})
}

// Remove dismisses the notification with id. It reports whether it existed.
func (c *Center) Remove(id string) bool {
	c.mu.Lock()
	var (
		removed Notification
		found   bool
	)
	for i, n := range c.items {
		if n.ID == id {
			removed, found = n, true
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			break
		}
	}
	c.stopTimerLocked(id)
	c.mu.Unlock()

	if found {
		c.publish(Event{Action: ActionRemoved, Notification: removed})
	}
	return found
}

// ClearAll dismisses every notification.
func (c *Center) ClearAll() {
	c.mu.Lock()
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.items = nil
	c.mu.Unlock()

	c.publish(Event{Action: ActionCleared})
}

// List returns the current notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Subscribe returns a channel of events and a function that closes it.
// Slow subscribers miss events rather than block the center.
func (c *Center) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	c.touched = time.Now()
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.touched = time.Now()
		if _, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(ch)
		}
	}
}

// idleAt reports whether the center has no subscribers and no activity
// since its idle timeout before now.
func (c *Center) idleAt(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) == 0 && now.Sub(c.touched) >= c.idle
}

// stop cancels every pending auto-close.
func (c *Center) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.timers {
		c.stopTimerLocked(id)
	}
}

// Close ends every subscription. The center stays usable.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Center) publish(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Warn("notification subscriber is full, dropping event", "action", ev.Action)
		}
	}
}

// Registry hands out one Center per user. Centers that sit idle past their
// idle timeout are dropped, so memory follows active users only.
type Registry struct {
	mu        sync.Mutex
	centers   map[string]*Center
	opts      []Option
	lastSweep time.Time
}

// NewRegistry creates a Registry whose centers are built with opts.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{centers: make(map[string]*Center), opts: opts, lastSweep: time.Now()}
}

// For returns the center for userID, creating it on first use.
func (r *Registry) For(userID string) *Center {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if now.Sub(r.lastSweep) >= sweepInterval {
		r.sweepLocked(now)
	}
	c, ok := r.centers[userID]
	if !ok {
		c = NewCenter(r.opts...)
		r.centers[userID] = c
	}
	c.mu.Lock()
	c.touched = now
	c.mu.Unlock()
	return c
}

// Sweep drops every center idle at now and returns how many were dropped.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sweepLocked(now)
}

func (r *Registry) sweepLocked(now time.Time) int {
	r.lastSweep = now
	n := 0
	for id, c := range r.centers {
		if c.idleAt(now) {
			c.stop()
			delete(r.centers, id)
			n++
		}
	}
	return n
}

// Len returns the number of live centers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.centers)
}

// Close ends the subscriptions of every center.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.centers {
		c.Close()
	}
}
