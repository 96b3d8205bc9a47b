// Package router maps a request path onto a handler through an ordered
// table of exact and prefix routes.
package router

import (
	"slices"
	"strconv"
	"strings"

	"github.com/lghartmann/formhttpd/internal/form"
	"github.com/lghartmann/formhttpd/internal/request"
	"github.com/lghartmann/formhttpd/internal/response"
)

type Kind int

const (
	Exact Kind = iota
	Prefix
)

// ArgumentError is the reason given when a prefix route's id segment is
// missing or not a number.
const ArgumentError = "Couldn't get arguments from url"

type Handler func(c *Call) response.Response

type Route struct {
	Kind    Kind
	Pattern string
	// Methods lists the accepted methods. Empty accepts any method and
	// leaves the check to the handler.
	Methods []string
	Handler Handler

	argIndex int
}

func (r Route) matches(path string) bool {
	if r.Kind == Exact {
		return path == r.Pattern
	}
	return strings.HasPrefix(path, r.Pattern)
}

func (r Route) allows(method string) bool {
	return len(r.Methods) == 0 || slices.Contains(r.Methods, method)
}

// Call is what a handler sees of the request.
type Call struct {
	Method string
	// Path has the query component removed.
	Path  string
	Query form.Values
	// Form is nil when the request carried no body.
	Form form.Values

	arg string
}

// Arg returns the path segment following a prefix route's pattern.
func (c *Call) Arg() string {
	return c.arg
}

func (c *Call) IntArg() (int, bool) {
	n, err := strconv.Atoi(c.arg)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Allow reports whether the call's method is one of methods.
func (c *Call) Allow(methods ...string) bool {
	return slices.Contains(methods, c.Method)
}

type Router struct {
	exact  []Route
	prefix []Route
}

func New() *Router {
	return &Router{}
}

func (rt *Router) Exact(pattern string, handler Handler, methods ...string) {
	rt.exact = append(rt.exact, Route{Kind: Exact, Pattern: pattern, Methods: methods, Handler: handler})
}

// Prefix registers a route matching every path that starts with pattern.
// The segment right after the pattern is exposed as the call's argument.
func (rt *Router) Prefix(pattern string, handler Handler, methods ...string) {
	rt.prefix = append(rt.prefix, Route{
		Kind:     Prefix,
		Pattern:  pattern,
		Methods:  methods,
		Handler:  handler,
		argIndex: strings.Count(pattern, "/"),
	})
}

// Routes lists the table in evaluation order.
func (rt *Router) Routes() []Route {
	return append(slices.Clone(rt.exact), rt.prefix...)
}

// Match finds the route for path, which must already be stripped of its
// query. Exact routes are tried before prefix routes.
func (rt *Router) Match(path string) (*Route, bool) {
	for i := range rt.exact {
		if rt.exact[i].matches(path) {
			return &rt.exact[i], true
		}
	}
	for i := range rt.prefix {
		if rt.prefix[i].matches(path) {
			return &rt.prefix[i], true
		}
	}
	return nil, false
}

func (rt *Router) Dispatch(req *request.Request) response.Response {
	path := req.Path()
	route, ok := rt.Match(path)
	if !ok {
		return response.NotFound()
	}
	if !route.allows(req.RequestLine.Method) {
		return response.MethodNotAllowed()
	}

	call := &Call{
		Method: req.RequestLine.Method,
		Path:   path,
		Query:  req.Query(),
		Form:   req.Form,
	}
	if route.Kind == Prefix {
		call.arg = segment(path, route.argIndex)
	}
	return route.Handler(call)
}

// ServeRequest lets a Router be handed straight to the server.
func (rt *Router) ServeRequest(req *request.Request) response.Response {
	return rt.Dispatch(req)
}

func segment(path string, index int) string {
	parts := strings.Split(path, "/")
	if index >= len(parts) {
		return ""
	}
	return parts[index]
}

// WithID wraps fn so it only runs once the call carries an integer
// argument; otherwise the call fails with a 500 naming the bad url.
func WithID(fn func(c *Call, id int) response.Response) Handler {
	return func(c *Call) response.Response {
		id, ok := c.IntArg()
		if !ok {
			return response.InternalServerError(ArgumentError)
		}
		return fn(c, id)
	}
}
