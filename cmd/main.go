package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"github.com/cexll/redesign/internal/api"
	"github.com/cexll/redesign/internal/config"
	"github.com/cexll/redesign/internal/mcpclient"
	"github.com/cexll/redesign/internal/publish"
	"github.com/cexll/redesign/internal/session"
)

var (
	loadDotEnv         = godotenv.Load
	loadMCPConfig      = mcpclient.LoadConfig
	newMCPManager      = func(cfg *mcpclient.Config) *mcpclient.Manager { return mcpclient.NewManager(cfg) }
	newPublisher       = func(token, repo string) (api.Publisher, error) {
		return publish.NewIssuePublisher(publish.NewClient(token), repo)
	}
	defaultListenServe = http.ListenAndServe
)

func main() {
	if err := run(context.Background(), defaultListenServe); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run(ctx context.Context, serve func(string, http.Handler) error) error {
	// Load .env file (ignore error if file doesn't exist)
	_ = loadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log.Printf("Starting feedback server...")
	log.Printf("Port: %d", cfg.Port)
	log.Printf("Project: %s", cfg.ProjectName)
	log.Printf("Fix selection: %s, max annotations: %d, max sessions: %d", cfg.FixSelection, cfg.MaxAnnotations, cfg.MaxSessions)
	if cfg.KeywordsFile != "" {
		log.Printf("Keyword tables: %s", cfg.KeywordsFile)
	}
	if cfg.AuthEnabled() {
		log.Printf("API authentication: bearer token required")
	}

	pipeline, err := cfg.NewPipeline()
	if err != nil {
		return fmt.Errorf("failed to build feedback pipeline: %w", err)
	}

	opts := api.Options{
		Pipeline:       pipeline,
		Sessions:       session.NewStore(cfg.MaxAnnotations, session.WithMaxSessions(cfg.MaxSessions)),
		Project:        cfg.ProjectName,
		PageURL:        cfg.PageURL,
		MaxAnnotations: cfg.MaxAnnotations,
		JWTSecret:      []byte(cfg.APIJWTSecret),
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}
	if !cfg.AuthEnabled() {
		opts.JWTSecret = nil
	}

	// MCP servers connect lazily on the first /api/mcp request
	if cfg.MCPEnabled {
		mcpCfg, err := loadMCPConfig(cfg.MCPServersFile)
		if err != nil {
			return fmt.Errorf("failed to load MCP servers: %w", err)
		}
		manager := newMCPManager(mcpCfg)
		defer func() {
			if err := manager.Shutdown(); err != nil {
				log.Printf("[MCP] Shutdown error: %v", err)
			}
		}()
		opts.MCP = manager
		log.Printf("MCP servers configured: %d", len(mcpCfg.Servers))
	}

	if cfg.PublishEnabled() {
		publisher, err := newPublisher(cfg.GitHubToken, cfg.GitHubRepo)
		if err != nil {
			return fmt.Errorf("failed to create issue publisher: %w", err)
		}
		opts.Publisher = publisher
		log.Printf("Session publishing: github.com/%s", cfg.GitHubRepo)
	}

	server := api.NewServer(opts)

	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Printf("Server listening on %s", addr)
	log.Printf("Feedback endpoint: http://localhost%s/api/feedback", addr)
	log.Printf("Health check: http://localhost%s/health", addr)

	if err := serve(addr, server.Handler()); err != nil {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}
