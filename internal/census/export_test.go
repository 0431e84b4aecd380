package census

import "net/http"

// SetRenderPage swaps the page renderer and returns a func restoring it.
func SetRenderPage(f func(w http.ResponseWriter, page, title string, data any) error) func() {
	prev := renderPage
	renderPage = f
	return func() { renderPage = prev }
}
