// Package web embeds the dashboard templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates parses every page with the shared helper funcs.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
}

// Static serves the files under static/.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// FuncMap holds the helpers the templates use.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"comma":     func(n int) string { return humanize.Comma(int64(n)) },
		"ago":       Ago,
		"date":      formatDate,
		"isPercent": func(v string) bool { return strings.HasSuffix(v, "%") },
	}
}

// Ago renders an RFC3339 timestamp relative to now, e.g. "3 minutes ago".
// Anything unparseable is returned unchanged.
func Ago(ts *string) string {
	if ts == nil || *ts == "" {
		return "never"
	}
	t, err := time.Parse(time.RFC3339, *ts)
	if err != nil {
		return *ts
	}
	return humanize.Time(t)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("January 2, 2006")
}
