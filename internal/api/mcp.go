package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cexll/redesign/internal/mcpclient"
)

// MCPRequest is the body of POST /api/mcp.
type MCPRequest struct {
	Action string         `json:"action"`
	Server string         `json:"server"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
}

const (
	actionCallTool     = "call_tool"
	actionReadResource = "read_resource"
	actionGetPrompt    = "get_prompt"
)

func (s *Server) handleMCPList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.mcp.Initialize(ctx); err != nil {
		log.Printf("[MCP API] Error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to query MCP servers")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"servers":   s.mcp.ConnectedServers(),
		"tools":     s.mcp.ListAllTools(ctx),
		"resources": s.mcp.ListAllResources(ctx),
		"prompts":   s.mcp.ListAllPrompts(ctx),
	})
}

func (s *Server) handleMCPCall(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := s.mcp.Initialize(ctx); err != nil {
		log.Printf("[MCP API] Error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var req MCPRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Action == "" || req.Server == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: action, server, name")
		return
	}
	if !s.mcp.IsConnected(req.Server) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":     "Server \"" + req.Server + "\" is not connected",
			"connected": s.mcp.ConnectedServers(),
		})
		return
	}

	var (
		result any
		err    error
	)
	switch req.Action {
	case actionCallTool:
		result, err = s.mcp.CallTool(ctx, req.Server, req.Name, req.Args)
	case actionReadResource:
		result, err = s.mcp.ReadResource(ctx, req.Server, req.Name)
	case actionGetPrompt:
		result, err = s.mcp.GetPrompt(ctx, req.Server, req.Name, stringArgs(req.Args))
	default:
		writeError(w, http.StatusBadRequest, "Invalid action. Must be: call_tool, read_resource, get_prompt")
		return
	}
	if err != nil {
		log.Printf("[MCP API] %s %s/%s failed: %v", req.Action, req.Server, req.Name, err)
		status := http.StatusInternalServerError
		if errors.Is(err, mcpclient.ErrNotConnected) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

// stringArgs keeps the string-valued arguments; prompt arguments are strings.
func stringArgs(args map[string]any) map[string]string {
	out := make(map[string]string, len(args))
	for k, v := range args {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
