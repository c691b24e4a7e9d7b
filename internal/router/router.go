// ABOUTME: Static route table mapping URL paths to console views
// ABOUTME: Also derives the sidebar navigation shown on every page

package router

import (
	"strings"
)

// DefaultBasePath is the prefix the console is served under.
const DefaultBasePath = "/simplevista/"

// View identifies a console page.
type View string

// Console views.
const (
	Home       View = "home"
	AdminUsers View = "admin-users"
	Users      View = "users"
	Clients    View = "clients"
	Providers  View = "providers"
)

// Title returns the human-readable page title.
func (v View) Title() string {
	switch v {
	case Home:
		return "Home"
	case AdminUsers:
		return "Admin Users"
	case Users:
		return "Users"
	case Clients:
		return "Clients"
	case Providers:
		return "Providers"
	default:
		return string(v)
	}
}

// Route binds a path to a view.
type Route struct {
	Path string
	View View
}

// NavItem is one sidebar entry.
type NavItem struct {
	Name  string
	Icon  string
	Route string
}

// Table is an immutable list of routes and sidebar entries.
type Table struct {
	routes  []Route
	sidebar []NavItem
}

var defaultTable = &Table{
	routes: []Route{
		{Path: "/", View: Home},
		{Path: "/users", View: Users},
		{Path: "/clients", View: Clients},
		{Path: "/providers", View: Providers},
		{Path: "/admin-users", View: AdminUsers},
	},
	sidebar: []NavItem{
		{Name: "Home", Icon: "🏠", Route: "/"},
		{Name: "Admin Users", Icon: "👨‍👩‍👧‍👦", Route: "/admin-users"},
		{Name: "Users", Icon: "👥", Route: "/users"},
		{Name: "Clients", Icon: "👤", Route: "/clients"},
		{Name: "Providers", Icon: "🚚", Route: "/providers"},
	},
}

// Default returns the console's route table.
func Default() *Table {
	return defaultTable
}

// Resolve looks up path in the default table.
func Resolve(path string) (Route, bool) {
	return defaultTable.Resolve(path)
}

// Resolve returns the route whose path equals path exactly.
func (t *Table) Resolve(path string) (Route, bool) {
	for _, r := range t.routes {
		if r.Path == path {
			return r, true
		}
	}
	return Route{}, false
}

// ResolveUnder strips base from path and resolves the remainder.
// Paths outside base never match.
func (t *Table) ResolveUnder(base, path string) (Route, bool) {
	rel, ok := StripBase(base, path)
	if !ok {
		return Route{}, false
	}
	return t.Resolve(rel)
}

// Routes returns a copy of the route list in declaration order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Sidebar returns a copy of the sidebar entries in display order.
func (t *Table) Sidebar() []NavItem {
	return append([]NavItem(nil), t.sidebar...)
}

// StripBase returns path relative to base, always starting with "/".
// The base itself, with or without its trailing slash, maps to "/".
func StripBase(base, path string) (string, bool) {
	base = "/" + strings.Trim(base, "/")
	if base == "/" {
		return path, strings.HasPrefix(path, "/")
	}
	if path == base {
		return "/", true
	}
	rest, ok := strings.CutPrefix(path, base+"/")
	if !ok {
		return "", false
	}
	return "/" + rest, true
}

// JoinBase prefixes a route path with base.
func JoinBase(base, path string) string {
	base = strings.TrimSuffix("/"+strings.Trim(base, "/"), "/")
	if path == "/" {
		return base + "/"
	}
	return base + path
}
