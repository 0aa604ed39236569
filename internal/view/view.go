// Package view renders the server-side HTML pages from templates embedded
// at build time.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var files embed.FS

var pageNames = []string{
	"index",
	"menu",
	"orders",
	"create_order",
	"order_detail",
	"kitchen",
}

type View struct {
	pages map[string]*template.Template
}

// New parses every page template against the shared layout.
func New() (*View, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &View{pages: pages}, nil
}

// Render writes the named page to w.
func (v *View) Render(w io.Writer, name string, data interface{}) error {
	t, ok := v.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %s", name)
	}
	return t.ExecuteTemplate(w, "layout.html", data)
}
