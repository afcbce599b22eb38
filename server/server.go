package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/scaffold-dashboard/auth"
	"github.com/jrsteele09/scaffold-dashboard/backend"
	"github.com/jrsteele09/scaffold-dashboard/internal/config"
	"github.com/jrsteele09/scaffold-dashboard/internal/metrics"
	"github.com/jrsteele09/scaffold-dashboard/server/resetflow"
	"github.com/jrsteele09/scaffold-dashboard/sessions"
	"github.com/rs/zerolog/log"
)

// Services holds everything the server talks to.
type Services struct {
	Sessions   *auth.Manager   // Session lifecycle
	API        *backend.Client // REST API client authenticated through auth.Transport
	ResetFlows resetflow.Repo  // Password reset state between pages
	Metrics    *metrics.Metrics
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	handler    http.Handler
	routes     []string
	fileServer http.Handler
	config     config.Config
	codec      *sessions.Codec
	sessions   *auth.Manager
	api        *backend.Client
	resetFlows resetflow.Repo
	metrics    *metrics.Metrics
}

func New(config config.Config, services Services) (*Server, error) {
	if services.Sessions == nil || services.API == nil {
		return nil, fmt.Errorf("[Server New] session manager and API client are required")
	}
	codec, err := sessions.NewCodec(config.GetSessionSecret())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create session codec: %w", err)
	}
	if services.ResetFlows == nil {
		services.ResetFlows = resetflow.NewInMemoryRepo()
	}

	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		config:     config,
		codec:      codec,
		sessions:   services.Sessions,
		api:        services.API,
		resetFlows: services.ResetFlows,
		metrics:    services.Metrics,
	}
	s.fileServer = FileServerHandler()

	s.initRoutes()
	s.handler = s.RouteGuard(s.mux)
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Debug().Msgf("[%-19s] %s", colourMethod(method), path)
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// mustParseTemplate is used while registering routes; a broken embedded
// template is a build defect.
func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
