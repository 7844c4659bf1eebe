// Package router assembles the gin engine: middleware stack and API routes.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIVersion is the path segment every resource group is mounted under.
const APIVersion = "v1"

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// RouteGroup holds the routes of one resource until it is mounted.
type RouteGroup struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

// Group starts a route group at prefix. Middleware runs before every route in it.
func Group(prefix string, middleware ...gin.HandlerFunc) *RouteGroup {
	return &RouteGroup{prefix: prefix, middleware: middleware}
}

// Handle adds a route; the chained form keeps small groups on one line.
func (g *RouteGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *RouteGroup {
	g.routes = append(g.routes, route{method: method, path: path, handlers: handlers})
	return g
}

func (g *RouteGroup) GET(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.Handle(http.MethodGet, path, handlers...)
}

func (g *RouteGroup) POST(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.Handle(http.MethodPost, path, handlers...)
}

func (g *RouteGroup) PUT(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.Handle(http.MethodPut, path, handlers...)
}

func (g *RouteGroup) DELETE(path string, handlers ...gin.HandlerFunc) *RouteGroup {
	return g.Handle(http.MethodDelete, path, handlers...)
}

// Prefix is the path the group mounts at, relative to the API root.
func (g *RouteGroup) Prefix() string { return g.prefix }

func (g *RouteGroup) mount(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix, g.middleware...)
	for _, r := range g.routes {
		rg.Handle(r.method, r.path, r.handlers...)
	}
}

// Mount attaches groups under /api/<version>. A nil group is skipped so
// optional handlers can be passed straight through.
func Mount(engine *gin.Engine, version string, groups ...*RouteGroup) {
	api := engine.Group("/api/" + version)
	for _, g := range groups {
		if g != nil {
			g.mount(api)
		}
	}
}
