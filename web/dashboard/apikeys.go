package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devdox/dashboard/internal/models"
)

const apiKeysPath = "/dashboard/api-keys"

type apiKeysPage struct {
	Keys []models.APIKey
	// Revealed is set only on the response to a create.
	Revealed *models.APIKey
}

func (s *Server) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	keys := s.apiKeys(r)
	defer keys.Unmount()

	err := keys.Mount(r.Context())
	if s.reauthenticate(w, r, err) {
		return
	}
	s.render(w, r, http.StatusOK, "api_keys", PageData{
		Title:  "API keys",
		Active: "api-keys",
		Error:  loadError(err),
		Data:   apiKeysPage{Keys: keys.Items()},
	})
}

// handleCreateAPIKey renders the new key in the response body instead of
// redirecting, so the raw key never appears in a URL or a later page.
func (s *Server) handleCreateAPIKey(w http.ResponseWriter, r *http.Request) {
	keys := s.apiKeys(r)
	defer keys.Unmount()

	keys.Attach(r.Context())
	created, err := keys.Create(r.Context())
	if err != nil {
		s.handleActionError(w, r, err, "Failed to create API key", apiKeysPath)
		return
	}

	// The key exists now; a failed listing only degrades the table.
	listErr := keys.Refetch(r.Context())

	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, http.StatusCreated, "api_keys", PageData{
		Title:  "API keys",
		Active: "api-keys",
		Flash:  "API key created",
		Error:  loadError(listErr),
		Data:   apiKeysPage{Keys: keys.Items(), Revealed: &created},
	})
}

func (s *Server) handleDeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	keys := s.apiKeys(r)
	defer keys.Unmount()

	keys.Attach(r.Context())
	if err := keys.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.handleActionError(w, r, err, "Failed to revoke API key", apiKeysPath)
		return
	}
	s.center(r).Success("API key revoked", "")
	http.Redirect(w, r, apiKeysPath, http.StatusSeeOther)
}

func (s *Server) handleValidateAPIKey(w http.ResponseWriter, r *http.Request) {
	keys := s.apiKeys(r)
	defer keys.Unmount()

	keys.Attach(r.Context())
	result, err := keys.Validate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleActionError(w, r, err, "Failed to validate API key", apiKeysPath)
		return
	}
	s.notifyValidation(r, "API key", result)
	http.Redirect(w, r, apiKeysPath, http.StatusSeeOther)
}
