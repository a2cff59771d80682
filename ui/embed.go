// Package ui embeds the dashboard's HTML templates and static assets.
package ui

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static/*
var static embed.FS

// Templates returns the template files rooted at the templates directory.
func Templates() fs.FS {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic("failed to get templates subdirectory: " + err.Error())
	}
	return sub
}

// StaticHandler serves embedded assets. Mount it under a prefix with
// http.StripPrefix.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic("failed to get static subdirectory: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(sub))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAssetPath(r.URL.Path) {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fileServer.ServeHTTP(w, r)
	})
}

var assetExtensions = map[string]bool{
	".js": true, ".css": true, ".svg": true, ".ico": true, ".png": true, ".woff2": true,
}

// isAssetPath reports whether p names a file rather than a directory listing.
func isAssetPath(p string) bool {
	if strings.HasSuffix(p, "/") {
		return false
	}
	return assetExtensions[path.Ext(p)]
}
