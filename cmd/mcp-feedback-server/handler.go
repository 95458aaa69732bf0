package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cexll/redesign/internal/config"
	"github.com/cexll/redesign/internal/feedback"
	"github.com/cexll/redesign/internal/prompt"
)

const keywordsURI = "feedback://keywords"

// ProcessFeedbackParams defines the input parameters for the process_feedback tool.
// Annotations are decoded by the pipeline so timestamps may be strings or epoch millis.
type ProcessFeedbackParams struct {
	Annotations any    `json:"annotations" jsonschema:"array of annotation objects with id, element and comment"`
	ProjectName string `json:"projectName,omitempty" jsonschema:"project name shown in the report"`
	PageURL     string `json:"pageUrl,omitempty" jsonschema:"URL of the annotated page"`
	Format      string `json:"format,omitempty" jsonschema:"markdown, prompt or json (default markdown)"`
}

// ProcessFeedbackResult is the structured part of the tool result.
type ProcessFeedbackResult struct {
	Summary       string          `json:"summary"`
	TaskCount     int             `json:"taskCount"`
	CriticalCount int             `json:"criticalCount"`
	Counts        feedback.Counts `json:"counts"`
}

// Handler serves the feedback tool, prompt and resource.
type Handler struct {
	pipeline       *feedback.Pipeline
	maxAnnotations int
	project        string
	pageURL        string
	now            func() time.Time
}

// NewHandler builds a Handler from the service configuration.
func NewHandler(cfg *config.Config) (*Handler, error) {
	pipeline, err := cfg.NewPipeline()
	if err != nil {
		return nil, err
	}
	return &Handler{
		pipeline:       pipeline,
		maxAnnotations: cfg.MaxAnnotations,
		project:        cfg.ProjectName,
		pageURL:        cfg.PageURL,
		now:            time.Now,
	}, nil
}

func (h *Handler) export(raw []byte, project, pageURL string) (*feedback.Export, error) {
	annotations, err := feedback.DecodeAnnotations(raw, h.maxAnnotations)
	if err != nil {
		return nil, err
	}
	if project == "" {
		project = h.project
	}
	if pageURL == "" {
		pageURL = h.pageURL
	}
	return h.pipeline.Export(annotations, feedback.ExportOptions{
		Project: project,
		PageURL: pageURL,
		Now:     h.now,
	}), nil
}

// HandleProcessFeedback handles the process_feedback tool call
func (h *Handler) HandleProcessFeedback(
	ctx context.Context,
	req *mcp.CallToolRequest,
	params ProcessFeedbackParams,
) (*mcp.CallToolResult, ProcessFeedbackResult, error) {
	log.Printf("[MCP Feedback Server] Received process_feedback request")

	if params.Annotations == nil {
		return nil, ProcessFeedbackResult{}, fmt.Errorf("annotations parameter is required")
	}
	format, err := prompt.ParseFormat(params.Format)
	if err != nil {
		return nil, ProcessFeedbackResult{}, err
	}

	raw, err := json.Marshal(params.Annotations)
	if err != nil {
		return nil, ProcessFeedbackResult{}, fmt.Errorf("invalid annotations: %w", err)
	}
	exp, err := h.export(raw, params.ProjectName, params.PageURL)
	if err != nil {
		log.Printf("[MCP Feedback Server] Rejected annotations: %v", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Error: %v", err)}},
			IsError: true,
		}, ProcessFeedbackResult{}, nil
	}

	var text string
	switch format {
	case prompt.FormatJSON:
		b, err := json.MarshalIndent(exp, "", "  ")
		if err != nil {
			return nil, ProcessFeedbackResult{}, err
		}
		text = string(b)
	default:
		text, err = prompt.Render(exp, format)
		if err != nil {
			return nil, ProcessFeedbackResult{}, err
		}
	}

	counts := exp.Counts()
	result := ProcessFeedbackResult{
		Summary:       exp.Summary,
		TaskCount:     len(exp.Tasks),
		CriticalCount: counts.Critical,
		Counts:        counts,
	}
	log.Printf("[MCP Feedback Server] Produced %d tasks (%d critical)", result.TaskCount, result.CriticalCount)

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, result, nil
}

// HandleRedesignPrompt renders the agent prompt for the annotations argument.
func (h *Handler) HandleRedesignPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	raw := args["annotations"]
	if raw == "" {
		return nil, fmt.Errorf("annotations argument is required")
	}

	exp, err := h.export([]byte(raw), args["projectName"], args["pageUrl"])
	if err != nil {
		return nil, err
	}

	return &mcp.GetPromptResult{
		Description: exp.Summary,
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: prompt.RenderPrompt(exp)}},
		},
	}, nil
}

// HandleKeywords returns the active keyword tables as JSON.
func (h *Handler) HandleKeywords(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	tables := h.pipeline.Synthesizer().Classifier().Tables()
	b, err := json.MarshalIndent(tables, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: keywordsURI, MIMEType: "application/json", Text: string(b)}},
	}, nil
}

// newServer registers the tool, prompt and resource on a new MCP server.
func newServer(h *Handler) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "feedback-server",
		Version: "v1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "process_feedback",
		Description: "Classify visual feedback annotations into prioritized redesign tasks and render a report",
	}, h.HandleProcessFeedback)
	log.Println("[MCP Feedback Server] Registered tool: process_feedback")

	server.AddPrompt(&mcp.Prompt{
		Name:        "redesign_tasks",
		Description: "Agent prompt listing redesign tasks for a set of annotations",
		Arguments: []*mcp.PromptArgument{
			{Name: "annotations", Description: "JSON array of annotations", Required: true},
			{Name: "projectName", Description: "Project name"},
			{Name: "pageUrl", Description: "Annotated page URL"},
		},
	}, h.HandleRedesignPrompt)
	log.Println("[MCP Feedback Server] Registered prompt: redesign_tasks")

	server.AddResource(&mcp.Resource{
		URI:         keywordsURI,
		Name:        "keywords",
		Description: "Keyword tables used to classify feedback",
		MIMEType:    "application/json",
	}, h.HandleKeywords)
	log.Println("[MCP Feedback Server] Registered resource: " + keywordsURI)

	return server
}
