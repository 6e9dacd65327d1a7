// Package router mounts the HTTP route groups of the pricing API under a
// versioned base path.
package router

import (
	"net/http"
	"path"
	"sort"

	"github.com/gin-gonic/gin"
)

// Mounter attaches its routes to the versioned API group
type Mounter interface {
	Mount(api *gin.RouterGroup) []Route
}

// Route describes one mounted endpoint
type Route struct {
	Group  string
	Method string
	Path   string
}

// Router collects route groups and mounts them on an engine
type Router struct {
	engine   *gin.Engine
	version  string
	mounters []Mounter
}

// Option configures a Router
type Option func(*Router)

// WithAPIVersion sets the version segment of the base path (default "v1")
func WithAPIVersion(version string) Option {
	return func(r *Router) {
		r.version = version
	}
}

// New creates a Router on engine
func New(engine *gin.Engine, opts ...Option) *Router {
	r := &Router{engine: engine, version: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BasePath returns the prefix every group is mounted under
func (r *Router) BasePath() string {
	return "/api/" + r.version
}

// Add queues groups for mounting
func (r *Router) Add(mounters ...Mounter) *Router {
	r.mounters = append(r.mounters, mounters...)
	return r
}

// Setup mounts every queued group and returns the mounted routes sorted by path
func (r *Router) Setup() []Route {
	api := r.engine.Group(r.BasePath())
	var routes []Route
	for _, m := range r.mounters {
		routes = append(routes, m.Mount(api)...)
	}
	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	return routes
}

// Group is a set of routes under one prefix sharing middleware
type Group struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []groupRoute
}

type groupRoute struct {
	method  string
	path    string
	handler gin.HandlerFunc
}

// NewGroup creates a route group. middleware runs before every handler of
// the group.
func NewGroup(name, prefix string, middleware ...gin.HandlerFunc) *Group {
	return &Group{name: name, prefix: prefix, middleware: middleware}
}

// Name returns the group name
func (g *Group) Name() string { return g.name }

// GET adds a GET route
func (g *Group) GET(relativePath string, h gin.HandlerFunc) *Group {
	return g.add(http.MethodGet, relativePath, h)
}

// POST adds a POST route
func (g *Group) POST(relativePath string, h gin.HandlerFunc) *Group {
	return g.add(http.MethodPost, relativePath, h)
}

// PUT adds a PUT route
func (g *Group) PUT(relativePath string, h gin.HandlerFunc) *Group {
	return g.add(http.MethodPut, relativePath, h)
}

func (g *Group) add(method, relativePath string, h gin.HandlerFunc) *Group {
	g.routes = append(g.routes, groupRoute{method: method, path: relativePath, handler: h})
	return g
}

// Mount implements Mounter
func (g *Group) Mount(api *gin.RouterGroup) []Route {
	rg := api.Group(g.prefix, g.middleware...)
	mounted := make([]Route, 0, len(g.routes))
	for _, rt := range g.routes {
		rg.Handle(rt.method, rt.path, rt.handler)
		mounted = append(mounted, Route{
			Group:  g.name,
			Method: rt.method,
			Path:   path.Join(rg.BasePath(), rt.path),
		})
	}
	return mounted
}
