package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Route struct {
	Method  string
	Path    string
	Name    string
	Handler echo.HandlerFunc
}

// Routes lists every endpoint in registration order.
func (h *Handler) Routes() []Route {
	return []Route{
		// API
		{http.MethodGet, "/posts", "posts.list", h.ListPosts},
		{http.MethodGet, "/posts/:id", "posts.get", h.GetPost},
		{http.MethodPost, "/posts", "posts.create", h.CreatePost},
		{http.MethodPut, "/posts/:id", "posts.update", h.UpdatePost},
		{http.MethodDelete, "/posts/:id", "posts.delete", h.DeletePost},

		// Frontend
		{http.MethodGet, "/", "index", h.Index},
		{http.MethodGet, "/posts/:id/view", "posts.view", h.ViewPost},
		{http.MethodGet, "/admin.html", "admin", h.Admin},
		{http.MethodGet, "/login", "login.form", h.GetLoginForm},
		{http.MethodPost, "/login", "login", h.Login},
		{http.MethodGet, "/logout", "logout", h.Logout},
	}
}

// Register adds routes to e in order.
func Register(e *echo.Echo, routes []Route) {
	for _, r := range routes {
		e.Add(r.Method, r.Path, r.Handler).Name = r.Name
	}
}
