package api

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/rs/zerolog"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	tmpl   *template.Template
	logger zerolog.Logger
}

func newPages(logger zerolog.Logger) *pages {
	return &pages{
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
		logger: logger,
	}
}

type connectView struct {
	Shop      string
	Connected bool
	Error     string
}

type errorView struct {
	Title   string
	Message string
}

type indexView struct {
	Connected bool
	Shop      string
}

// render buffers the template so a failure can still produce a clean 500.
func (p *pages) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		p.logger.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (p *pages) renderError(w http.ResponseWriter, status int, title, message string) {
	p.render(w, status, "error.html", errorView{Title: title, Message: message})
}
