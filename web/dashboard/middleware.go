package dashboard

import (
	"net/http"
	"net/url"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/devdox/dashboard/internal/identity"
	"github.com/devdox/dashboard/pkg/logger"
)

// RequestLogger logs every request once it completes and puts the request id
// on the context for downstream loggers.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			requestID := middleware.GetReqID(r.Context())
			r = r.WithContext(logger.ContextWithRequestID(r.Context(), requestID))

			defer func() {
				log.InfoContext(r.Context(), "request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start).String(),
					"request_id", requestID,
					"remote_addr", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// Recovery turns a handler panic into a 500 page and logs the stack.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				correlationID := uuid.NewString()
				log.Error("panic recovered",
					"error", rec,
					"correlation_id", correlationID,
					"stack_trace", string(debug.Stack()),
					"request_id", middleware.GetReqID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
				)
				http.Error(w, "An unexpected error occurred (reference "+correlationID+")", http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession admits only requests carrying a valid session. Others are
// sent to the sign-in page with a redirect_url back to where they were going.
func RequireSession(verifier *identity.Verifier, cookieName, signInURL string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := identity.FromRequest(r, cookieName)
			if token == "" {
				http.Redirect(w, r, signInRedirect(signInURL, r), http.StatusFound)
				return
			}

			sess, err := verifier.Verify(token)
			if err != nil {
				log.DebugContext(r.Context(), "session rejected, redirecting to sign in", "error", err)
				clearSession(w, cookieName)
				http.Redirect(w, r, signInRedirect(signInURL, r), http.StatusFound)
				return
			}

			ctx := identity.WithSession(r.Context(), sess)
			ctx = logger.ContextWithUserID(ctx, sess.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalSession attaches a valid session when present and never redirects.
func OptionalSession(verifier *identity.Verifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := identity.FromRequest(r, cookieName); token != "" {
				if sess, err := verifier.Verify(token); err == nil {
					r = r.WithContext(identity.WithSession(r.Context(), sess))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func signInRedirect(signInURL string, r *http.Request) string {
	u, err := url.Parse(signInURL)
	if err != nil {
		return signInURL
	}
	q := u.Query()
	q.Set("redirect_url", r.URL.RequestURI())
	u.RawQuery = q.Encode()
	return u.String()
}

func clearSession(w http.ResponseWriter, cookieName string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sameOrigin accepts websocket upgrades from pages served by this host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}
