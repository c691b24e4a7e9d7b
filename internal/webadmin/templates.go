// ABOUTME: Template rendering functions for the console UI
// ABOUTME: Loads templates from the embedded filesystem once and renders pages and partials

package webadmin

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/2389/simplevista/internal/router"
	"github.com/2389/simplevista/internal/session"
)

// templates holds the parsed page and partial templates
type templates struct {
	view     *template.Template
	notFound *template.Template
	partials *template.Template
}

func mustParseTemplates() *templates {
	return &templates{
		view:     template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/view.html", "templates/partials/*.html")),
		notFound: template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/not_found.html")),
		partials: template.Must(template.ParseFS(templateFS, "templates/partials/*.html")),
	}
}

// navItem is a sidebar entry resolved against the base path
type navItem struct {
	Name   string
	Icon   string
	Href   string
	Active bool
}

// pageData is shared by every full page
type pageData struct {
	Title     string
	BasePath  string
	View      router.View
	Sidebar   []navItem
	Admin     *session.AdminUser
	AdminName string
	CSRFToken string
	Chat      chatLog
}

func (a *Admin) pageData(r *http.Request, view router.View) *pageData {
	data := &pageData{
		Title:     view.Title(),
		BasePath:  a.BasePath(),
		View:      view,
		Admin:     a.currentAdmin(r),
		AdminName: "unknown admin",
		CSRFToken: getCSRFToken(r),
	}
	if data.Admin != nil {
		data.AdminName = data.Admin.DisplayName()
	}

	current, _ := a.routes.ResolveUnder(a.BasePath(), r.URL.Path)
	for _, item := range a.routes.Sidebar() {
		data.Sidebar = append(data.Sidebar, navItem{
			Name:   item.Name,
			Icon:   item.Icon,
			Href:   router.JoinBase(a.BasePath(), item.Route),
			Active: current.Path == item.Route,
		})
	}
	return data
}

// render writes a full page; an empty view renders the not-found page
func (a *Admin) render(w http.ResponseWriter, status int, view router.View, data *pageData) {
	tmpl := a.templates.view
	if view == "" {
		tmpl = a.templates.notFound
	}
	a.execute(w, status, tmpl, "base", data)
}

// renderPartial writes a named htmx partial
func (a *Admin) renderPartial(w http.ResponseWriter, status int, name string, data any) {
	a.execute(w, status, a.templates.partials, name, data)
}

// execute renders name into a buffer before writing the response
func (a *Admin) execute(w http.ResponseWriter, status int, tmpl *template.Template, name string, data any) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("failed to render template", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
