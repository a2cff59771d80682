// Package health reports whether the dashboard and the services it depends on are usable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"
	// StatusDegraded indicates the component works with reduced functionality.
	StatusDegraded Status = "degraded"
	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// ComponentStatus is the result of a single probe.
type ComponentStatus struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Response is the body of GET /health.
type Response struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentStatus `json:"components"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	StartedAt  string                     `json:"started_at"`
}

// Version is set at build time using ldflags.
var Version = "dev"

// Probe checks one dependency.
type Probe func(ctx context.Context) error

type check struct {
	name     string
	probe    Probe
	critical bool
}

// Checker runs registered probes concurrently.
type Checker struct {
	mu        sync.RWMutex
	checks    []check
	startTime time.Time
	version   string
	timeout   time.Duration
}

// NewChecker creates a checker with no probes.
func NewChecker(version string) *Checker {
	return &Checker{
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// SetTimeout bounds the duration of a full Check.
func (c *Checker) SetTimeout(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Critical registers a probe whose failure makes the dashboard unhealthy.
func (c *Checker) Critical(name string, probe Probe) {
	c.add(check{name: name, probe: probe, critical: true})
}

// Optional registers a probe whose failure only degrades the dashboard.
func (c *Checker) Optional(name string, probe Probe) {
	c.add(check{name: name, probe: probe})
}

func (c *Checker) add(ch check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, ch)
}

// Check runs every probe and aggregates the result.
func (c *Checker) Check(ctx context.Context) *Response {
	c.mu.RLock()
	timeout := c.timeout
	checks := append([]check(nil), c.checks...)
	c.mu.RUnlock()

	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results := make([]ComponentStatus, len(checks))
	var wg sync.WaitGroup
	for i, ch := range checks {
		i, ch := i, ch
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = run(checkCtx, ch)
		}()
	}
	wg.Wait()

	overall := StatusHealthy
	components := make(map[string]ComponentStatus, len(checks))
	for i, ch := range checks {
		components[ch.name] = results[i]
		switch results[i].Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	return &Response{
		Status:     overall,
		Components: components,
		Version:    c.version,
		Uptime:     time.Since(c.startTime).Round(time.Second).String(),
		StartedAt:  humanize.Time(c.startTime),
	}
}

func run(ctx context.Context, ch check) ComponentStatus {
	if ch.probe == nil {
		return ComponentStatus{Status: StatusUnhealthy, Message: "probe not configured"}
	}

	start := time.Now()
	err := ch.probe(ctx)
	latency := time.Since(start).Round(time.Millisecond).String()
	if err == nil {
		return ComponentStatus{Status: StatusHealthy, Message: "ok", Latency: latency}
	}

	status := StatusDegraded
	if ch.critical {
		status = StatusUnhealthy
	}
	return ComponentStatus{Status: status, Message: err.Error(), Latency: latency}
}

// Names returns the registered probe names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for _, ch := range c.checks {
		names = append(names, ch.name)
	}
	sort.Strings(names)
	return names
}

// Handler serves the aggregated health as JSON. Degraded still answers 200.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := c.Check(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		if response.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		json.NewEncoder(w).Encode(response)
	}
}
