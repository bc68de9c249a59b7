// Package handler contains the HTTP request handlers: they parse requests,
// call the service layer, and render templates or issue redirects. Business
// rules live in internal/service, not here.
package handler

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
)

// pageNames are the renderable pages. Each page template defines a "content"
// block that base.html pulls in, so every page is parsed as its own template
// set paired with the base layout.
var pageNames = []string{"login", "coleccion", "add", "edit"}

// Renderer holds the parsed template sets. Templates are parsed once at
// startup and shared read-only by all requests.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses all page templates from templateDir.
func NewRenderer(templateDir string, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))

	for _, name := range pageNames {
		tmpl, err := template.ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes the named page with the given data.
//
// Template failures after the first byte can't change the response status
// anymore, so we log and send a 500 on a best-effort basis.
func (rd *Renderer) Render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown template requested", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
