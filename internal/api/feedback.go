package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/cexll/redesign/internal/feedback"
	"github.com/cexll/redesign/internal/prompt"
	"github.com/cexll/redesign/internal/session"
)

// maxBodyBytes bounds request bodies read by the feedback handlers.
const maxBodyBytes = 8 << 20

// FeedbackResponse is the body returned by POST /api/feedback.
type FeedbackResponse struct {
	Success       bool             `json:"success"`
	Export        *feedback.Export `json:"export"`
	Prompt        string           `json:"prompt"`
	Markdown      string           `json:"markdown"`
	TaskCount     int              `json:"taskCount"`
	CriticalCount int              `json:"criticalCount"`
	Counts        feedback.Counts  `json:"counts"`
}

func (s *Server) handleFeedbackInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"service":      ServiceName,
		"version":      Version,
		"capabilities": Capabilities,
	})
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	req, err := feedback.DecodeRequest(body, s.maxAnnotations)
	if err != nil {
		log.Printf("[Feedback API] Rejected request: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	project := firstNonEmpty(req.ProjectName, s.project)
	pageURL := firstNonEmpty(req.PageURL, r.Header.Get("Referer"), s.pageURL)

	exp := s.pipeline.Export(req.Annotations, feedback.ExportOptions{
		Project: project,
		PageURL: pageURL,
		Now:     s.now,
	})
	counts := exp.Counts()

	log.Printf("[Feedback API] Processed %d annotations into %d tasks (%d critical)",
		len(exp.Annotations), len(exp.Tasks), counts.Critical)

	writeJSON(w, http.StatusOK, FeedbackResponse{
		Success:       true,
		Export:        exp,
		Prompt:        prompt.RenderPrompt(exp),
		Markdown:      prompt.RenderMarkdown(exp),
		TaskCount:     len(exp.Tasks),
		CriticalCount: counts.Critical,
		Counts:        counts,
	})
}

// statusFor maps domain errors to HTTP status codes.
// readBody reads the capped request body, writing 413 when the cap is hit and
// 400 for any other read failure.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err == nil {
		return body, true
	}
	log.Printf("[Feedback API] Error reading body: %v", err)
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
		return nil, false
	}
	writeError(w, http.StatusBadRequest, "failed to read request body")
	return nil, false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrAnnotationNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInactive):
		return http.StatusConflict
	case errors.Is(err, session.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, feedback.ErrTooManyAnnotations),
		errors.Is(err, feedback.ErrInvalidJSON),
		errors.Is(err, feedback.ErrNotArray),
		errors.Is(err, feedback.ErrInvalidAnnotation),
		errors.Is(err, feedback.ErrMissingComment):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
