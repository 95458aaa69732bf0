package api

import (
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cexll/redesign/internal/feedback"
	"github.com/cexll/redesign/internal/prompt"
)

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Start()
	if err != nil {
		log.Printf("[Feedback API] Cannot start session: %v", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	log.Printf("[Feedback API] Started session %s", sess.ID)
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"sessions": s.sessions.List()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleAddAnnotation(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	a, err := feedback.DecodeAnnotation(body)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	added, err := s.sessions.AddAnnotation(mux.Vars(r)["id"], a)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleRemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.sessions.RemoveAnnotation(vars["id"], vars["annotationID"]); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.End(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	log.Printf("[Feedback API] Ended session %s with %d annotations", sess.ID, len(sess.Annotations))
	writeJSON(w, http.StatusOK, sess)
}

// handleExportSession runs the pipeline over a session's annotations. The
// session may still be active.
func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	format, err := prompt.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if r.URL.Query().Get("format") == "" {
		format = prompt.FormatJSON
	}

	exp := s.pipeline.Export(sess.Annotations, feedback.ExportOptions{
		Project: firstNonEmpty(r.URL.Query().Get("project"), s.project),
		PageURL: firstNonEmpty(r.URL.Query().Get("pageUrl"), s.pageURL),
		Now:     s.now,
	})

	switch format {
	case prompt.FormatJSON:
		writeJSON(w, http.StatusOK, exp)
	case prompt.FormatMarkdown:
		writeText(w, "text/markdown; charset=utf-8", prompt.RenderMarkdown(exp))
	default:
		writeText(w, "text/plain; charset=utf-8", prompt.RenderPrompt(exp))
	}
}

// handlePublishSession files the session's export as a GitHub issue. A second
// request for the same session while one is in flight gets 409.
func (s *Server) handlePublishSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	release, ok := s.publishing.TryAcquire(id)
	if !ok {
		writeError(w, http.StatusConflict, "session is already being published")
		return
	}
	defer release()

	exp := s.pipeline.Export(sess.Annotations, feedback.ExportOptions{
		Project: s.project,
		PageURL: s.pageURL,
		Now:     s.now,
	})
	url, err := s.publisher.Publish(r.Context(), exp)
	if err != nil {
		log.Printf("[Feedback API] Failed to publish session %s: %v", id, err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	log.Printf("[Feedback API] Published session %s to %s", id, url)
	writeJSON(w, http.StatusCreated, map[string]any{
		"url":       url,
		"taskCount": len(exp.Tasks),
	})
}

func writeText(w http.ResponseWriter, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}
