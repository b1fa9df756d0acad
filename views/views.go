// Package views renders the application's HTML pages from embedded
// templates.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rcopley/faved/models"
	"github.com/rcopley/faved/webutil"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// BookmarksData is everything the bookmarks page shows: the full bookmark
// list, the account's current email (empty when unset), and an optional
// validation error to surface inline.
type BookmarksData struct {
	Username  string
	Email     string
	Bookmarks []models.Bookmark
	Error     string
}

// RenderHome writes the landing page.
func RenderHome(w http.ResponseWriter) error {
	return render(w, http.StatusOK, "home.html", nil)
}

// RenderBookmarks writes the bookmarks page with the given status code
// (200 normally, 422 when surfacing a validation error).
func RenderBookmarks(w http.ResponseWriter, status int, data BookmarksData) error {
	return render(w, status, "bookmarks.html", data)
}

func render(w http.ResponseWriter, status int, name string, data any) error {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeHTMLUTF8)
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		// Headers are gone at this point; all we can do is report it.
		return fmt.Errorf("views: failed to render %s: %w", name, err)
	}
	return nil
}
