package shutdown

import (
	"context"
	"net/http"
)

// HTTPServer stops accepting connections and waits for in-flight requests.
type HTTPServer struct {
	name   string
	server *http.Server
}

// NewHTTPServer wraps server as a Component.
func NewHTTPServer(name string, server *http.Server) *HTTPServer {
	return &HTTPServer{name: name, server: server}
}

func (c *HTTPServer) Name() string { return c.name }

func (c *HTTPServer) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

// Func adapts a function to a Component.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFunc wraps fn as a Component.
func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{name: name, fn: fn}
}

func (c *Func) Name() string { return c.name }

func (c *Func) Shutdown(ctx context.Context) error {
	return c.fn(ctx)
}
