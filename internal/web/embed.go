package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
)

//go:embed templates
var TemplatesFS embed.FS

//go:embed static
var StaticFS embed.FS

const (
	layoutPath = "templates/layouts/base.html"
	pagesDir   = "templates/pages"
)

// Templates holds one parsed template set per page. Pages get separate sets
// because every page defines the same block names.
type Templates map[string]*template.Template

// ExecuteTemplate renders the page called name.
func (t Templates) ExecuteTemplate(w io.Writer, name string, data interface{}) error {
	page, ok := t[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	return page.Execute(w, data)
}

// LoadTemplates parses every page under templates/pages together with the
// base layout.
func LoadTemplates() (Templates, error) {
	return loadTemplates(TemplatesFS)
}

func loadTemplates(fsys fs.FS) (Templates, error) {
	layout, err := fs.ReadFile(fsys, layoutPath)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}

	pages, err := fs.Glob(fsys, path.Join(pagesDir, "*.html"))
	if err != nil {
		return nil, err
	}

	out := make(Templates, len(pages))
	for _, p := range pages {
		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", p, err)
		}

		name := path.Base(p)
		page, err := template.New(name).Parse(string(layout))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", name, err)
		}
		if _, err := page.Parse(string(content)); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		out[name] = page
	}

	return out, nil
}

// GetStaticFS returns the static assets rooted at static/.
func GetStaticFS() (fs.FS, error) {
	return fs.Sub(StaticFS, "static")
}
