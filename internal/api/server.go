package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"

	"github.com/cexll/redesign/internal/auth"
	"github.com/cexll/redesign/internal/concurrency"
	"github.com/cexll/redesign/internal/feedback"
	"github.com/cexll/redesign/internal/mcpclient"
	"github.com/cexll/redesign/internal/session"
)

// ServiceName is reported by the health and root endpoints.
const ServiceName = "Visual Feedback Integration"

// Version is the API version reported to clients.
const Version = "1.0.0"

// Capabilities lists what POST /api/feedback offers.
var Capabilities = []string{
	"annotation-processing",
	"task-generation",
	"agent-prompt-export",
	"markdown-report",
	"feedback-sessions",
}

// MCPProxy is the subset of the MCP client manager exposed over HTTP.
type MCPProxy interface {
	Initialize(ctx context.Context) error
	ConnectedServers() []string
	IsConnected(server string) bool
	ListAllTools(ctx context.Context) []mcpclient.ToolInfo
	ListAllResources(ctx context.Context) []mcpclient.ResourceInfo
	ListAllPrompts(ctx context.Context) []mcpclient.PromptInfo
	CallTool(ctx context.Context, server, tool string, args map[string]any) (*mcp.CallToolResult, error)
	ReadResource(ctx context.Context, server, uri string) (*mcp.ReadResourceResult, error)
	GetPrompt(ctx context.Context, server, prompt string, args map[string]string) (*mcp.GetPromptResult, error)
}

// Publisher files an export outside the service and returns a link to it.
type Publisher interface {
	Publish(ctx context.Context, exp *feedback.Export) (string, error)
}

// Options configures a Server.
type Options struct {
	Pipeline       *feedback.Pipeline
	Sessions       *session.Store
	MCP            MCPProxy
	Publisher      Publisher
	Project        string
	PageURL        string
	MaxAnnotations int
	MaxSessions    int
	JWTSecret      []byte
	AllowedOrigins []string
	Now            func() time.Time
}

// Server serves the feedback API.
type Server struct {
	pipeline       *feedback.Pipeline
	sessions       *session.Store
	mcp            MCPProxy
	publisher      Publisher
	publishing     *concurrency.Manager
	project        string
	pageURL        string
	maxAnnotations int
	jwtSecret      []byte
	allowedOrigins []string
	now            func() time.Time
}

// NewServer creates a Server. Nil collaborators get in-memory defaults. A nil
// MCP proxy disables the /api/mcp routes and a nil publisher disables session
// publishing.
func NewServer(opts Options) *Server {
	s := &Server{
		pipeline:       opts.Pipeline,
		sessions:       opts.Sessions,
		mcp:            opts.MCP,
		publisher:      opts.Publisher,
		publishing:     concurrency.NewManager(),
		project:        opts.Project,
		pageURL:        opts.PageURL,
		maxAnnotations: opts.MaxAnnotations,
		jwtSecret:      opts.JWTSecret,
		allowedOrigins: opts.AllowedOrigins,
		now:            opts.Now,
	}
	if s.pipeline == nil {
		s.pipeline = feedback.NewPipeline(nil)
	}
	if s.sessions == nil {
		s.sessions = session.NewStore(s.maxAnnotations, session.WithMaxSessions(opts.MaxSessions))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if len(s.allowedOrigins) == 0 {
		s.allowedOrigins = []string{"*"}
	}
	return s
}

// RegisterRoutes registers the API routes on r. Routes under /api require a
// bearer token when a JWT secret is configured.
func (s *Server) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	if len(s.jwtSecret) > 0 {
		api.Use(auth.New(s.jwtSecret).Wrap)
	}

	api.HandleFunc("/feedback", s.handleFeedbackInfo).Methods(http.MethodGet)
	api.HandleFunc("/feedback", s.handleFeedback).Methods(http.MethodPost)

	api.HandleFunc("/sessions", s.handleStartSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/annotations", s.handleAddAnnotation).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/annotations/{annotationID}", s.handleRemoveAnnotation).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/end", s.handleEndSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/export", s.handleExportSession).Methods(http.MethodGet)
	if s.publisher != nil {
		api.HandleFunc("/sessions/{id}/publish", s.handlePublishSession).Methods(http.MethodPost)
	}

	if s.mcp != nil {
		api.HandleFunc("/mcp", s.handleMCPList).Methods(http.MethodGet)
		api.HandleFunc("/mcp", s.handleMCPCall).Methods(http.MethodPost)
	}
}

// Handler returns the full HTTP handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	s.RegisterRoutes(r)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})
	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	routes := []string{"GET /health", "GET /api/feedback", "POST /api/feedback", "/api/sessions"}
	if s.mcp != nil {
		routes = append(routes, "GET /api/mcp", "POST /api/mcp")
	}
	if s.publisher != nil {
		routes = append(routes, "POST /api/sessions/{id}/publish")
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": ServiceName,
		"version": Version,
		"routes":  routes,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Feedback API] Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
