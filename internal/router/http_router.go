package router

import (
	"regexp"
	"strings"

	"github.com/valyala/fasthttp"

	"straddlebot/internal/handler"
	"straddlebot/internal/metrics"
)

type Router struct {
	statusController *handler.StatusHandler
	routes           []route
}

type route struct {
	method  string
	pattern *regexp.Regexp
	handler fasthttp.RequestHandler
	params  []string
}

func NewRouter(statusController *handler.StatusHandler) *Router {
	r := &Router{
		statusController: statusController,
		routes:           make([]route, 0),
	}
	r.setupRoutes()
	return r
}

func (r *Router) Handler(ctx *fasthttp.RequestCtx) {
	r.setupCORS(ctx)

	if string(ctx.Method()) == "OPTIONS" {
		ctx.Response.SetStatusCode(204)
		return
	}

	method := string(ctx.Method())
	path := string(ctx.Path())

	for _, route := range r.routes {
		if route.method == method {
			matches := route.pattern.FindStringSubmatch(path)
			if matches != nil {
				for i, param := range route.params {
					if i+1 < len(matches) {
						ctx.SetUserValue(param, matches[i+1])
					}
				}
				route.handler(ctx)
				return
			}
		}
	}
	ctx.Response.SetStatusCode(404)
	ctx.Response.Header.Set("Content-Type", "application/json")
	ctx.Response.SetBodyString(`{"error": "Not Found", "message": "The requested resource was not found"}`)
}

func (r *Router) setupCORS(ctx *fasthttp.RequestCtx) {
	ctx.Response.Header.Set("Access-Control-Allow-Origin", "*")
	ctx.Response.Header.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	ctx.Response.Header.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept-Encoding")
}

func (r *Router) setupRoutes() {
	r.addRoute("GET", "/health", r.statusController.Health)
	r.addRoute("GET", "/api/v1/status", r.statusController.Status)
	r.addRoute("GET", "/api/v1/cycles", r.statusController.Cycles)
	r.addRoute("GET", "/api/v1/orders/([^/]+)", r.statusController.OpenOrders)
	r.addRoute("GET", "/metrics", metrics.Handler())
}

func (r *Router) addRoute(method, pattern string, handler fasthttp.RequestHandler) {
	regex, params := r.patternToRegex(pattern)
	r.routes = append(r.routes, route{
		method:  method,
		pattern: regex,
		handler: handler,
		params:  params,
	})
}

func (r *Router) patternToRegex(pattern string) (*regexp.Regexp, []string) {
	var params []string

	groupCount := strings.Count(pattern, "([^/]+)")

	if strings.Contains(pattern, "/api/v1/orders/") && groupCount == 1 {
		params = []string{"symbol"}
	} else if groupCount > 0 {
		for i := 0; i < groupCount; i++ {
			params = append(params, "param"+string(rune('0'+i)))
		}
	}

	regex := regexp.MustCompile("^" + pattern + "$")
	return regex, params
}
