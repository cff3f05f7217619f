// Package templates holds the HTML pages served by the API.
package templates

import (
	"embed"
	"html/template"
)

//go:embed *.html
var FS embed.FS

// LoadTemplates parses every embedded page.
func LoadTemplates() (*template.Template, error) {
	return template.ParseFS(FS, "*.html")
}
