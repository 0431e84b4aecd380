package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var files embed.FS

// Pages known to Render.
const (
	PageIndex   = "index"
	PageCensus  = "census"
	PageTransit = "transit"
	PageSurvey  = "survey"
)

var pages = map[string]*template.Template{}

func init() {
	layout := template.Must(template.ParseFS(files, "templates/layout.html"))
	for _, p := range []string{PageIndex, PageCensus, PageTransit, PageSurvey} {
		t := template.Must(layout.Clone())
		pages[p] = template.Must(t.ParseFS(files, "templates/"+p+".html"))
	}
}

// View is the data handed to every page; Data is page specific.
type View struct {
	Title string
	Page  string
	Data  any
}

// Render executes a page into a buffer first so a template error still
// produces a clean 500.
func Render(w http.ResponseWriter, page, title string, data any) error {
	t, ok := pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", View{Title: title, Page: page, Data: data}); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
