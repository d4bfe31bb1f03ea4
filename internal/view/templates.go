package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/storefront/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// Flash is a dismissable notice shown above the page content.
type Flash struct {
	Kind    string
	Message string
}

// Refresh makes the page navigate to URL after Delay.
type Refresh struct {
	URL   string
	Delay time.Duration
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	Flash       *Flash
	CurrentPath string
	// Online is false while the backend is unreachable; forms render disabled.
	Online    bool
	CartCount int64
	Refresh   *Refresh
	Data      any
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"money": func(d decimal.Decimal) string {
			return d.StringFixed(2)
		},
		// css marks a style declaration built by the server as safe.
		"css": func(s string) template.CSS {
			return template.CSS(s)
		},
		"seconds": func(d time.Duration) string {
			return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
		},
		"millis": func(d time.Duration) int64 {
			return d.Milliseconds()
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData and a 200 status.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus executes a named template into a buffer and writes it with status. Nothing
// is written when execution fails.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}
