// Package server provides the HTTP handlers and routing for the MCP server.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"ghl-mcp/internal/config"
	"ghl-mcp/internal/ghl"
	"ghl-mcp/internal/tools"
	"ghl-mcp/internal/version"
)

// Name identifies this server in health and info responses.
const Name = "ghl-mcp-server"

// maxBodyBytes bounds the size of a tool call request body.
const maxBodyBytes = 1 << 20

var _ tools.Caller = (*ghl.Client)(nil)

// Server contains the configured router, tool registry, and config for the MCP server.
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	registry *tools.Registry
}

// New constructs a Server with middleware and routes configured.
func New(cfg *config.Config, registry *tools.Registry) *Server {
	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		registry: registry,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/", s.handleInfo)
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/mcp", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/tools", s.handleListTools)
		r.Get("/list_tools", s.handleListTools)
		r.Post("/call", s.handleCall)
		r.Post("/call_tool", s.handleCall)
		r.Get("/resources", s.handleListResources)
		r.Get("/resources/read", s.handleReadResource)
	})

	s.router.Route("/tools", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/", s.handleListTools)
		r.Post("/{name}", s.handleCallByPath)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.MCPToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.MCPToken {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: ErrorBody{Kind: "Unauthorized", Message: "unauthorized"}})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":            "GHL MCP Server",
		"version":         version.GetVersion(),
		"description":     "Model Connection Protocol server for GoHighLevel integration",
		"available_tools": s.registry.Names(),
		"status":          "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "server": Name})
}

func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, ToolList{Tools: s.registry.List()})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	name := req.Name
	if name == "" {
		name = req.ToolName
	}
	if name == "" {
		s.writeError(w, r, &tools.ValidationError{Field: "name", Message: "missing required field: name"})
		return
	}
	s.invoke(w, r, name, req.Arguments)
}

func (s *Server) handleCallByPath(w http.ResponseWriter, r *http.Request) {
	var req CallRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invoke(w, r, chi.URLParam(r, "name"), req.Arguments)
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request, name string, args tools.Arguments) {
	start := time.Now()
	result, err := s.registry.Invoke(r.Context(), name, args)
	if err != nil {
		var upErr *ghl.UpstreamError
		if errors.As(err, &upErr) && upErr.IsAuthError() {
			log.Error().Err(err).Str("tool", name).Msg("GoHighLevel rejected the API key")
		} else {
			log.Warn().Err(err).Str("tool", name).Dur("elapsed", time.Since(start)).Msg("Tool call failed")
		}
		s.writeError(w, r, err)
		return
	}
	log.Info().Str("tool", name).Dur("elapsed", time.Since(start)).Msg("Tool call succeeded")
	writeJSON(w, http.StatusOK, CallResult{Result: result})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("Request failed")
	}
	writeJSON(w, status, ErrorResponse{Error: body})
}

// decodeBody decodes a JSON request body of at most maxBodyBytes. An empty body decodes to the zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &tools.ValidationError{Field: "body", Message: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)}
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return &tools.ValidationError{Message: "invalid json: " + err.Error()}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to write response")
	}
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("elapsed", time.Since(start)).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}
