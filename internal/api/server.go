// Package api exposes the node's HTTP surface: connection management,
// direct LED commands, choreography control, and observability
// endpoints, all described via OpenAPI.
package api

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/sirius3/lednode/internal/animation"
	"github.com/sirius3/lednode/internal/controller"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/logging"
	"github.com/sirius3/lednode/internal/version"
)

// Options carries the server's dependencies and auth settings.
type Options struct {
	AuthUsername      string
	AuthPassword      string
	Controller        *controller.Controller
	Engine            *animation.Engine
	Bus               *events.Bus
	PrometheusHandler http.Handler
}

// Server is the Huma v2 API server over the stdlib mux.
type Server struct {
	api        huma.API
	mux        *http.ServeMux
	httpServer *http.Server
	options    *Options
	logger     *slog.Logger
}

// NewServer builds the API server and registers every route.
func NewServer(opts *Options) *Server {
	mux := http.NewServeMux()

	config := huma.DefaultConfig("LEDNode API", version.String())
	config.Info.Description = "BLE LED peripheral control API"
	config.Servers = []*huma.Server{}
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"basicAuth": {
			Type:   "http",
			Scheme: "basic",
		},
	}

	s := &Server{
		api:     humago.New(mux, config),
		mux:     mux,
		options: opts,
		logger:  logging.GetLogger("api"),
	}

	s.api.UseMiddleware(HTTPLoggingMiddleware)
	if opts.AuthUsername != "" && opts.AuthPassword != "" {
		s.api.UseMiddleware(s.basicAuthMiddleware(opts.AuthUsername, opts.AuthPassword))
	}

	// Prometheus scrapes without credentials.
	if opts.PrometheusHandler != nil {
		mux.Handle("GET /metrics", opts.PrometheusHandler)
	}

	s.registerRoutes()
	return s
}

// basicAuthMiddleware enforces HTTP basic auth on operations that carry
// a security requirement. SSE clients may pass base64 credentials via
// the auth query parameter since EventSource cannot set headers.
func (s *Server) basicAuthMiddleware(username, password string) func(huma.Context, func(huma.Context)) {
	unauthorized := func(ctx huma.Context, msg string) {
		ctx.SetHeader("WWW-Authenticate", `Basic realm="LEDNode API"`)
		huma.WriteErr(s.api, ctx, http.StatusUnauthorized, msg)
	}

	return func(ctx huma.Context, next func(huma.Context)) {
		op := ctx.Operation()
		if op != nil && len(op.Security) == 0 {
			next(ctx)
			return
		}

		var encoded string
		if header := ctx.Header("Authorization"); header != "" {
			const prefix = "Basic "
			if !strings.HasPrefix(header, prefix) {
				unauthorized(ctx, "Invalid authentication type")
				return
			}
			encoded = header[len(prefix):]
		} else {
			encoded = ctx.Query("auth")
		}
		if encoded == "" {
			unauthorized(ctx, "Authentication required")
			return
		}

		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			unauthorized(ctx, "Invalid credentials format")
			return
		}
		parts := strings.SplitN(string(decoded), ":", 2)
		if len(parts) != 2 || parts[0] != username || parts[1] != password {
			unauthorized(ctx, "Invalid credentials")
			return
		}
		next(ctx)
	}
}

// Start serves HTTP on addr until Stop or a listener error.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting API server", "addr", addr)
	s.logger.Info("OpenAPI documentation available", "url", "http://"+addr+"/docs")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}
	return s.httpServer.ListenAndServe()
}

// Stop closes the server without waiting for open connections.
func (s *Server) Stop() error {
	s.logger.Info("stopping API server")
	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// GetAPI returns the Huma API instance, used by tests.
func (s *Server) GetAPI() huma.API {
	return s.api
}

func (s *Server) registerRoutes() {
	type HealthResponse struct {
		Body struct {
			Status string `json:"status" example:"ok" doc:"Service health"`
		}
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/api/health",
		Summary:     "Health",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*HealthResponse, error) {
		resp := &HealthResponse{}
		resp.Body.Status = "ok"
		return resp, nil
	})

	type VersionResponse struct {
		Body version.Info
	}
	huma.Register(s.api, huma.Operation{
		OperationID: "get-version",
		Method:      http.MethodGet,
		Path:        "/api/version",
		Summary:     "Version",
		Tags:        []string{"system"},
		Security:    []map[string][]string{},
	}, func(ctx context.Context, input *struct{}) (*VersionResponse, error) {
		return &VersionResponse{Body: version.Get()}, nil
	})

	s.registerDeviceRoutes()
	s.registerCommandRoutes()
	s.registerAnimationRoutes()
	s.registerAmbientRoutes()
	s.registerLogRoutes()
	s.registerEventRoutes()
}

// withAuth returns the security requirement for basic auth.
func withAuth() []map[string][]string {
	return []map[string][]string{
		{"basicAuth": {}},
	}
}
