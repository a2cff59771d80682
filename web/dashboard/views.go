package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"

	"github.com/devdox/dashboard/internal/identity"
)

// PageData is passed to every page template.
type PageData struct {
	Title     string
	Active    string
	Session   *identity.Session
	SignInURL string
	Error     string
	Flash     string
	Data      any
}

const buttonBase = "inline-flex items-center justify-center rounded-md px-4 py-2 text-sm font-medium transition-colors"

var buttonVariants = map[string]string{
	"primary":   "bg-indigo-600 text-white hover:bg-indigo-500",
	"secondary": "border border-slate-300 bg-white text-slate-700 hover:bg-slate-50",
	"danger":    "bg-red-600 text-white hover:bg-red-500",
}

// buttonClass merges the variant and extra classes over the base button
// classes; later classes win on conflicts.
func buttonClass(variant, extra string) string {
	return twmerge.Merge(buttonBase, buttonVariants[variant], extra)
}

func navClass(active, name string) string {
	base := "text-sm text-slate-600 hover:text-slate-900"
	if active == name {
		return twmerge.Merge(base, "font-semibold text-slate-900")
	}
	return base
}

var funcs = template.FuncMap{
	"button":      buttonClass,
	"navClass":    navClass,
	"comma":       func(n int) string { return humanize.Comma(int64(n)) },
	"placeholder": func() string { return APIKeyPlaceholder },
	"since": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return humanize.Time(*t)
	},
	"sinceTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return humanize.Time(t)
	},
}

var pages = []string{"landing", "overview", "repos", "repo_new", "git_tokens", "api_keys", "getting_started"}

// Views holds one template set per page, each sharing the layout.
type Views struct {
	pages map[string]*template.Template
}

// NewViews parses layout.html plus every page from fsys.
func NewViews(fsys fs.FS) (*Views, error) {
	base, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parsing layout: %w", err)
	}

	v := &Views{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.Must(base.Clone()).ParseFS(fsys, name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// Component returns the page as a templ component.
func (v *Views) Component(page string, data PageData) (templ.Component, error) {
	t, ok := v.pages[page]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", page)
	}
	return templ.FromGoHTML(t.Lookup("layout"), data), nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data PageData) {
	data.Session, _ = identity.SessionFromContext(r.Context())
	data.SignInURL = s.cfg.SignInURL
	if data.Error == "" {
		data.Error = r.URL.Query().Get("error")
	}
	if data.Flash == "" {
		data.Flash = r.URL.Query().Get("flash")
	}

	var buf bytes.Buffer
	comp, err := s.views.Component(page, data)
	if err == nil {
		err = comp.Render(r.Context(), &buf)
	}
	if err != nil {
		s.log(r).ErrorContext(r.Context(), "failed to render page", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
