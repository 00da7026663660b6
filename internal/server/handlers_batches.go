package server

import (
	"context"
	"net/http"
	"reflect"
	"time"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/types"
)

// GenerateRequest represents the request body for starting a generation batch
type GenerateRequest struct {
	Pages     []string `json:"pages"`
	LivePages []string `json:"live_pages,omitempty"`
	Mode      string   `json:"mode,omitempty"`
}

// UploadRequest represents the request body for starting an upload batch
type UploadRequest struct {
	// Pages are generated file names; empty uploads every file for the platform.
	Pages []string `json:"pages,omitempty"`
	// Summary is the edit summary recorded on the wiki.
	Summary string `json:"summary,omitempty"`
}

// BatchResponse is returned when a batch is accepted.
type BatchResponse struct {
	Status string `json:"status"`
	Kind   string `json:"kind"`
	Total  int    `json:"total"`
	Mode   string `json:"mode,omitempty"`
}

// handleGenerate starts a generation batch in the background
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req GenerateRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	mode := types.ParseEditMode(req.Mode)
	total := pipeline.TotalPages(req.Pages, req.LivePages, mode)
	if total == 0 {
		s.errorFrom(w, &ErrValidation{Field: "pages", Message: "no pages selected"})
		return
	}
	if s.newClient == nil {
		s.errorFrom(w, &ErrNotConfigured{What: "LLM client"})
		return
	}

	// Batches outlive the request.
	client, err := s.newClient(context.Background())
	if err != nil {
		s.errorFrom(w, &ErrUpstream{Message: "failed to create LLM client", Cause: err})
		return
	}

	_, err = s.manager.Start(db.KindGenerate, id, total, req.Pages, func(ctx context.Context, p *pipeline.Progress) (*types.BatchResult, error) {
		defer client.Close()
		return pipeline.RunGeneration(ctx, s.store, pipeline.GenerateOptions{
			ProjectID:  id,
			Pages:      req.Pages,
			LivePages:  req.LivePages,
			Mode:       mode,
			Client:     client,
			NewAdapter: s.newAdapter,
			Progress:   p,
			Logger:     s.logger,
			Ledger:     s.ledger,
			Metrics:    s.metrics,
		})
	})
	if err != nil {
		client.Close()
		s.errorFrom(w, err)
		return
	}

	s.logger.Info("generation batch started", "project", id, "mode", string(mode), "total", total)
	s.jsonResponse(w, http.StatusAccepted, BatchResponse{Status: "started", Kind: db.KindGenerate, Total: total, Mode: string(mode)})
}

func (s *Server) handleGenerateProgress(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.manager.Snapshot(db.KindGenerate, r.PathValue("id")))
}

// handleGenerateStream streams generation progress as SSE until the batch finishes
func (s *Server) handleGenerateStream(w http.ResponseWriter, r *http.Request) {
	s.streamProgress(w, r, db.KindGenerate)
}

func (s *Server) streamProgress(w http.ResponseWriter, r *http.Request, kind string) {
	id := r.PathValue("id")
	snap := s.manager.Snapshot(kind, id)
	if snap.Status == pipeline.StatusUnknown {
		s.errorResponse(w, http.StatusNotFound, "no batch has been started for this project")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	var last pipeline.Snapshot
	first := true
	for {
		if first || !reflect.DeepEqual(snap, last) {
			if snap.Done() {
				sse.WriteComplete(snap)
				return
			}
			if err := sse.WriteEvent("progress", snap); err != nil {
				s.logger.Debug("progress stream closed", "project", id, "error", err)
				return
			}
			last, first = snap, false
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap = s.manager.Snapshot(kind, id)
		}
	}
}

// handleUpload starts an upload batch in the background
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var req UploadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	_, err := s.manager.Start(db.KindUpload, id, len(req.Pages), nil, func(ctx context.Context, p *pipeline.Progress) (*types.BatchResult, error) {
		return pipeline.RunUpload(ctx, s.store, pipeline.UploadOptions{
			ProjectID:  id,
			Pages:      req.Pages,
			NewAdapter: s.newAdapter,
			Delay:      s.uploadDelay,
			Summary:    req.Summary,
			Progress:   p,
			Logger:     s.logger,
			Ledger:     s.ledger,
			Metrics:    s.metrics,
		})
	})
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	s.logger.Info("upload batch started", "project", id, "files", len(req.Pages))
	s.jsonResponse(w, http.StatusAccepted, BatchResponse{Status: "started", Kind: db.KindUpload, Total: len(req.Pages)})
}

func (s *Server) handleUploadProgress(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, s.manager.Snapshot(db.KindUpload, r.PathValue("id")))
}
