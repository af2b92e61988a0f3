// Package guard protects routes that need a signed-in user.
package guard

import (
	"context"
	"strings"
	
	"github.com/katatrina/feedpush/internal/auth"
)

type Route struct {
	Path         string
	Name         string
	RequiresAuth bool
}

// Routes is the route table of the feed application.
var Routes = []Route{
	{Path: "/", Name: "Home"},
	{Path: "/feed", Name: "Feed", RequiresAuth: true},
	{Path: "/posts/new", Name: "NewPost", RequiresAuth: true},
	{Path: "/profile", Name: "Profile", RequiresAuth: true},
	{Path: "/login", Name: "Login"},
	{Path: "/register", Name: "Register"},
}

const LoginPath = "/login"

// Guard decides where a navigation ends up.
type Guard struct {
	routes   []Route
	provider auth.Provider
}

func New(provider auth.Provider, routes ...Route) *Guard {
	if len(routes) == 0 {
		routes = Routes
	}
	return &Guard{routes: routes, provider: provider}
}

// Match returns the route for path.
func (g *Guard) Match(path string) (Route, bool) {
	path = normalize(path)
	for _, route := range g.routes {
		if route.Path == path {
			return route, true
		}
	}
	return Route{}, false
}

// BeforeEach returns the path to navigate to: LoginPath when path needs a
// signed-in user and there is none, path itself otherwise.
func (g *Guard) BeforeEach(ctx context.Context, path string) string {
	route, ok := g.Match(path)
	if ok && route.RequiresAuth && g.provider.CurrentUser(ctx) == nil {
		return LoginPath
	}
	return path
}

// Redirect reports where navigating to path is sent instead, if anywhere.
func (g *Guard) Redirect(ctx context.Context, path string) (string, bool) {
	target := g.BeforeEach(ctx, path)
	return target, target != path
}

func normalize(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}
