// Package dashboard serves the DevDox web dashboard.
//
// Every request builds fresh stores over the shared resource services with the
// caller's session. Pages mount them and render; form actions only attach, so
// a failing list never blocks a mutation. Stores are unmounted on return.
package dashboard

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/notify"
	"github.com/devdox/dashboard/internal/resources"
	"github.com/devdox/dashboard/internal/state"
	"github.com/devdox/dashboard/pkg/config"
	"github.com/devdox/dashboard/pkg/logger"
	"github.com/devdox/dashboard/ui"
	"github.com/devdox/dashboard/web/health"
)

// Options wires a Server.
type Options struct {
	Services      *resources.Services
	Verifier      *identity.Verifier
	Notifications *notify.Registry
	Health        *health.Checker
	Logger        *logger.Logger
	Web           config.WebConfig
	PageLimit     int
}

// Server holds the dashboard's dependencies.
type Server struct {
	services      *resources.Services
	verifier      *identity.Verifier
	notifications *notify.Registry
	health        *health.Checker
	views         *Views
	logger        *logger.Logger
	cfg           config.WebConfig
	page          models.Page
	upgrader      websocket.Upgrader
}

// New validates opts and parses the embedded views.
func New(opts Options) (*Server, error) {
	if opts.Services == nil {
		return nil, errors.New("dashboard: services are required")
	}
	if opts.Verifier == nil {
		return nil, errors.New("dashboard: session verifier is required")
	}

	views, err := NewViews(ui.Templates())
	if err != nil {
		return nil, err
	}

	s := &Server{
		services:      opts.Services,
		verifier:      opts.Verifier,
		notifications: opts.Notifications,
		health:        opts.Health,
		views:         views,
		logger:        opts.Logger,
		cfg:           opts.Web,
		page:          models.Page{Limit: opts.PageLimit}.Normalize(),
	}
	if s.notifications == nil {
		s.notifications = notify.NewRegistry()
	}
	if s.health == nil {
		s.health = health.NewChecker(health.Version)
	}
	if s.logger == nil {
		s.logger = logger.Default()
	}
	s.logger = s.logger.WithComponent("web.dashboard")
	if s.cfg.SessionCookie == "" {
		s.cfg.SessionCookie = "__session"
	}
	if s.cfg.SignInURL == "" {
		s.cfg.SignInURL = "/sign-in"
	}
	if s.cfg.MCPURL == "" {
		s.cfg.MCPURL = config.DefaultMCPURL
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: sameOrigin}
	return s, nil
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(s.logger))
	r.Use(Recovery(s.logger))

	r.Handle("/static/*", http.StripPrefix("/static", ui.StaticHandler()))
	r.Get("/health", s.health.Handler())

	r.Group(func(r chi.Router) {
		r.Use(OptionalSession(s.verifier, s.cfg.SessionCookie))
		r.Get("/", s.handleLanding)
	})

	r.Route("/dashboard", func(r chi.Router) {
		r.Use(RequireSession(s.verifier, s.cfg.SessionCookie, s.cfg.SignInURL, s.logger))

		r.Get("/", s.handleOverview)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/getting-started", s.handleGettingStarted)

		r.Route("/repos", func(r chi.Router) {
			r.Get("/", s.handleRepos)
			r.Post("/", s.handleAddRepository)
			r.Get("/new", s.handleNewRepository)
			r.Post("/{id}/analyze", s.handleAnalyzeRepository)
			r.Post("/{id}/delete", s.handleDeleteRepository)
		})

		r.Route("/git-tokens", func(r chi.Router) {
			r.Get("/", s.handleGitTokens)
			r.Post("/", s.handleCreateGitToken)
			r.Post("/{id}/delete", s.handleDeleteGitToken)
			r.Post("/{id}/validate", s.handleValidateGitToken)
		})

		r.Route("/api-keys", func(r chi.Router) {
			r.Get("/", s.handleAPIKeys)
			r.Post("/", s.handleCreateAPIKey)
			r.Post("/{id}/delete", s.handleDeleteAPIKey)
			r.Post("/{id}/validate", s.handleValidateAPIKey)
		})
	})

	return r
}

func (s *Server) log(r *http.Request) *logger.Logger {
	return s.logger.WithContext(r.Context())
}

func (s *Server) storeOptions(r *http.Request) []state.Option {
	return []state.Option{state.WithLogger(s.log(r).Logger), state.WithPage(s.page)}
}

func (s *Server) repositories(r *http.Request) *state.Repositories {
	return state.NewRepositories(s.services.Repositories, identity.ContextProvider{}, s.storeOptions(r)...)
}

func (s *Server) gitTokens(r *http.Request) *state.GitTokens {
	return state.NewGitTokens(s.services.GitTokens, identity.ContextProvider{}, s.storeOptions(r)...)
}

func (s *Server) apiKeys(r *http.Request) *state.APIKeys {
	return state.NewAPIKeys(s.services.APIKeys, identity.ContextProvider{}, s.storeOptions(r)...)
}

// center returns the notification center of the signed-in user.
func (s *Server) center(r *http.Request) *notify.Center {
	sess, _ := identity.SessionFromContext(r.Context())
	if sess == nil {
		return s.notifications.For("")
	}
	return s.notifications.For(sess.Subject)
}

func (s *Server) handleLanding(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "landing", PageData{Title: "Repository analysis"})
}
