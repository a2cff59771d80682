package dashboard

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/devdox/dashboard/internal/models"
	"github.com/devdox/dashboard/internal/resources"
)

const gitTokensPath = "/dashboard/git-tokens"

type gitTokensPage struct {
	Tokens []models.GitToken
}

func (s *Server) handleGitTokens(w http.ResponseWriter, r *http.Request) {
	tokens := s.gitTokens(r)
	defer tokens.Unmount()

	err := tokens.Mount(r.Context())
	if s.reauthenticate(w, r, err) {
		return
	}
	s.render(w, r, http.StatusOK, "git_tokens", PageData{
		Title:  "Git tokens",
		Active: "git-tokens",
		Error:  loadError(err),
		Data:   gitTokensPage{Tokens: tokens.Items()},
	})
}

func (s *Server) handleCreateGitToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	hosting, err := models.ParseGitHosting(r.PostForm.Get("git_hosting"))
	if err != nil {
		s.handleActionError(w, r, resources.NewError("create", resources.KindValidation, err.Error()), "Failed to add git token", gitTokensPath)
		return
	}
	req := models.CreateGitTokenRequest{
		Label:      strings.TrimSpace(r.PostForm.Get("label")),
		TokenValue: strings.TrimSpace(r.PostForm.Get("token_value")),
		GitHosting: hosting,
	}

	tokens := s.gitTokens(r)
	defer tokens.Unmount()
	tokens.Attach(r.Context())
	if _, err := tokens.Create(r.Context(), req); err != nil {
		s.handleActionError(w, r, err, "Failed to add git token", gitTokensPath)
		return
	}
	s.center(r).Success("Git token added", req.Label)
	http.Redirect(w, r, gitTokensPath, http.StatusSeeOther)
}

func (s *Server) handleDeleteGitToken(w http.ResponseWriter, r *http.Request) {
	tokens := s.gitTokens(r)
	defer tokens.Unmount()

	tokens.Attach(r.Context())
	if err := tokens.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleActionError(w, r, err, "Failed to delete git token", gitTokensPath)
		return
	}
	s.center(r).Success("Git token deleted", "")
	http.Redirect(w, r, gitTokensPath, http.StatusSeeOther)
}

func (s *Server) handleValidateGitToken(w http.ResponseWriter, r *http.Request) {
	tokens := s.gitTokens(r)
	defer tokens.Unmount()

	tokens.Attach(r.Context())
	result, err := tokens.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleActionError(w, r, err, "Failed to validate git token", gitTokensPath)
		return
	}
	s.notifyValidation(r, "Git token", result)
	http.Redirect(w, r, gitTokensPath, http.StatusSeeOther)
}

func (s *Server) notifyValidation(r *http.Request, what string, v models.KeyValidation) {
	if v.Valid {
		s.center(r).Success(what+" is valid", v.Message)
		return
	}
	s.center(r).Warning(what+" is not valid", v.Message)
}
