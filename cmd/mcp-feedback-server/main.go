package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cexll/redesign/internal/config"
)

func main() {
	// 1. Load configuration (.env is optional)
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[MCP Feedback Server] Invalid configuration: %v", err)
	}

	log.Println("[MCP Feedback Server] Starting Visual Feedback MCP Server v1.0.0")
	log.Printf("[MCP Feedback Server] Project: %s", cfg.ProjectName)

	// 2. Create MCP server
	handler, err := NewHandler(cfg)
	if err != nil {
		log.Fatalf("[MCP Feedback Server] Failed to build pipeline: %v", err)
	}
	server := newServer(handler)

	// 3. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("[MCP Feedback Server] Received shutdown signal")
		cancel()
	}()

	// 4. Start server with stdio transport
	log.Println("[MCP Feedback Server] Starting on stdio transport...")
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		log.Fatalf("[MCP Feedback Server] Server error: %v", err)
	}
	log.Println("[MCP Feedback Server] Server stopped gracefully")
}
