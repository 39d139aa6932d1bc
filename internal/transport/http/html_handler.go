package http

import (
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"petrodash/internal/config"
)

// pageData is passed to the dashboard index template
type pageData struct {
	AppName string
	Version string
}

// ServeDashboard serves index.html from webDir as a template
func ServeDashboard(webDir, version string, logger *slog.Logger) http.HandlerFunc {
	indexPath := filepath.Join(webDir, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(indexPath); os.IsNotExist(err) {
			http.Error(w, "Dashboard page not found", http.StatusNotFound)
			return
		}
		serveHTML(w, r, indexPath, pageData{AppName: config.AppName, Version: version}, logger)
	}
}

// StaticFiles serves the dashboard assets under /static/. Directory listings
// are not served.
func StaticFiles(webDir string) http.Handler {
	fs := http.FileServer(http.Dir(filepath.Join(webDir, "static")))
	return http.StripPrefix("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		fs.ServeHTTP(w, r)
	}))
}

// serveHTML renders an HTML template with proper headers
func serveHTML(w http.ResponseWriter, r *http.Request, filePath string, data any, logger *slog.Logger) {
	tmpl, err := template.ParseFiles(filePath)
	if err != nil {
		logger.ErrorContext(r.Context(), "failed to parse page",
			slog.String("path", filePath),
			slog.String("error", err.Error()))
		http.Error(w, "Error loading page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := tmpl.Execute(w, data); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("path", filePath),
			slog.String("error", err.Error()))
	}
}
