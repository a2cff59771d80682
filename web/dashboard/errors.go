package dashboard

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/devdox/dashboard/internal/resources"
)

const fallbackMessage = "Something went wrong"

// reauthenticate reports whether err means the session is no longer accepted
// by the backend. If so it clears the session and redirects to sign in.
func (s *Server) reauthenticate(w http.ResponseWriter, r *http.Request, err error) bool {
	if !errors.Is(err, resources.ErrUnauthenticated) {
		return false
	}
	s.log(r).DebugContext(r.Context(), "authentication error, redirecting to sign in", "error", err)
	clearSession(w, s.cfg.SessionCookie)
	http.Redirect(w, r, signInRedirect(s.cfg.SignInURL, r), http.StatusFound)
	return true
}

// handleActionError answers a failed form action: unauthenticated sessions
// go to sign in, anything else returns to redirectTo with the message.
func (s *Server) handleActionError(w http.ResponseWriter, r *http.Request, err error, title, redirectTo string) {
	if s.reauthenticate(w, r, err) {
		return
	}
	msg := resources.Message(err, fallbackMessage)
	s.center(r).Error(title, msg)
	http.Redirect(w, r, withQuery(redirectTo, "error", msg), http.StatusSeeOther)
}

func withQuery(target, key, value string) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

// loadError is the passive error text shown on a page whose store failed to load.
func loadError(err error) string {
	if err == nil {
		return ""
	}
	return resources.Message(err, fallbackMessage)
}
