package dashboard

import (
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/resources"
	"github.com/devdox/dashboard/internal/state"
)

const reposPath = "/dashboard/repos"

type reposPage struct {
	Repositories []models.Repository
}

type newRepoPage struct {
	Tokens  []models.GitToken
	TokenID string
	Choices []models.ProviderRepository
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	repos := s.repositories(r)
	defer repos.Unmount()

	err := repos.Mount(r.Context())
	if s.reauthenticate(w, r, err) {
		return
	}
	s.render(w, r, http.StatusOK, "repos", PageData{
		Title:  "Repositories",
		Active: "repos",
		Error:  loadError(err),
		Data:   reposPage{Repositories: repos.Items()},
	})
}

func (s *Server) handleNewRepository(w http.ResponseWriter, r *http.Request) {
	tokens := s.gitTokens(r)
	defer tokens.Unmount()
	err := tokens.Mount(r.Context())
	if s.reauthenticate(w, r, err) {
		return
	}

	data := newRepoPage{Tokens: tokens.Items(), TokenID: r.URL.Query().Get("token")}
	pageErr := loadError(err)

	if data.TokenID != "" {
		repos := s.repositories(r)
		defer repos.Unmount()
		repos.Attach(r.Context())
		flow := state.NewAddRepositoryFlow(repos, s.center(r))
		flow.Open()
		choices, err := flow.SelectToken(r.Context(), data.TokenID)
		if s.reauthenticate(w, r, err) {
			return
		}
		if err != nil {
			pageErr = loadError(err)
		}
		data.Choices = choices
	}

	s.render(w, r, http.StatusOK, "repo_new", PageData{
		Title:  "Add repository",
		Active: "repos",
		Error:  pageErr,
		Data:   data,
	})
}

func (s *Server) handleAddRepository(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	tokenID := strings.TrimSpace(r.PostForm.Get("token_id"))
	relativePath := strings.TrimSpace(r.PostForm.Get("relative_path"))
	alias := r.PostForm.Get("alias")
	back := withQuery(reposPath+"/new", "token", tokenID)

	repos := s.repositories(r)
	defer repos.Unmount()
	repos.Attach(r.Context())

	flow := state.NewAddRepositoryFlow(repos, s.center(r))
	flow.Open()
	choices, err := flow.SelectToken(r.Context(), tokenID)
	if err != nil {
		s.handleActionError(w, r, err, "Failed to add repository", back)
		return
	}
	visible := slices.ContainsFunc(choices, func(c models.ProviderRepository) bool { return c.RepoName == relativePath })
	if !visible {
		err := resources.NewError("add", resources.KindValidation, "Repository is not visible through this token")
		s.handleActionError(w, r, err, "Failed to add repository", back)
		return
	}

	// Submit raises the notification itself on both outcomes.
	if _, err := flow.Submit(r.Context(), relativePath, alias); err != nil {
		if s.reauthenticate(w, r, err) {
			return
		}
		http.Redirect(w, r, withQuery(back, "error", resources.Message(err, fallbackMessage)), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, reposPath, http.StatusSeeOther)
}

func (s *Server) handleAnalyzeRepository(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	repos := s.repositories(r)
	defer repos.Unmount()

	repos.Attach(r.Context())
	if err := repos.Analyze(r.Context(), id); err != nil {
		s.handleActionError(w, r, err, "Failed to start analysis", reposPath)
		return
	}
	s.center(r).Info("Analysis started", "")
	http.Redirect(w, r, reposPath, http.StatusSeeOther)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	repos := s.repositories(r)
	defer repos.Unmount()

	repos.Attach(r.Context())
	if err := repos.Delete(r.Context(), id); err != nil {
		s.handleActionError(w, r, err, "Failed to delete repository", reposPath)
		return
	}
	s.center(r).Success("Repository deleted", "")
	http.Redirect(w, r, reposPath, http.StatusSeeOther)
}
