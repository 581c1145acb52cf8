// Package router assembles the gin engine: the middleware chain and the
// finance API route groups.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// DefaultAPIVersion is the path segment every API group is mounted under
const DefaultAPIVersion = "v1"

// RouteRegistrar mounts its routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects registrars and mounts them under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion overrides DefaultAPIVersion
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// NewRouter creates a Router for engine
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: DefaultAPIVersion}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars for Setup
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

// Setup mounts every registrar; middleware runs for the whole API group
func (r *Router) Setup(middleware ...gin.HandlerFunc) {
	api := r.engine.Group("/api/"+r.apiVersion, middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// DomainGroup is the route table of one business area. Middleware given to
// Writes runs only in front of POST routes, which is where the
// Idempotency-Key guard sits.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	writes     []gin.HandlerFunc
	routes     []route
}

// NewDomainGroup creates an empty group mounted at prefix
func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

// Use adds middleware for every route in the group
func (dg *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.middleware = append(dg.middleware, middleware...)
	return dg
}

// Writes adds middleware for the group's POST routes only
func (dg *DomainGroup) Writes(middleware ...gin.HandlerFunc) *DomainGroup {
	dg.writes = append(dg.writes, middleware...)
	return dg
}

// GET adds a read route
func (dg *DomainGroup) GET(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: http.MethodGet, path: path, handlers: handlers})
	return dg
}

// POST adds a write route
func (dg *DomainGroup) POST(path string, handlers ...gin.HandlerFunc) *DomainGroup {
	dg.routes = append(dg.routes, route{method: http.MethodPost, path: path, handlers: handlers})
	return dg
}

// RegisterRoutes implements RouteRegistrar
func (dg *DomainGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(dg.prefix, dg.middleware...)
	for _, r := range dg.routes {
		handlers := r.handlers
		if r.method == http.MethodPost && len(dg.writes) > 0 {
			handlers = append(append([]gin.HandlerFunc{}, dg.writes...), r.handlers...)
		}
		group.Handle(r.method, r.path, handlers...)
	}
}

// Name returns the group name
func (dg *DomainGroup) Name() string { return dg.name }

// Prefix returns the mount prefix
func (dg *DomainGroup) Prefix() string { return dg.prefix }
