package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/types"
)

const defaultLivePageLimit = 500

// PageResponse is one generated or live page.
type PageResponse struct {
	FileName string `json:"filename,omitempty"`
	Title    string `json:"title"`
	Content  string `json:"content"`
}

// SaveLivePageRequest writes content straight to the wiki.
type SaveLivePageRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Summary string `json:"summary,omitempty"`
}

// handleReview lists generated pages, narrowed to the latest generation batch
// unless ?all=true, together with the link placement audit
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	showAll, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	review, err := s.store.Review(id, s.manager.LastRunTitles(id), showAll)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, review)
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	name := r.PathValue("filename")
	content, err := s.store.ReadPage(id, name)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, PageResponse{
		FileName: name,
		Title:    types.TitleFromFileName(name),
		Content:  content,
	})
}

// liveAdapter builds and logs in the adapter of the {id} project.
func (s *Server) liveAdapter(ctx context.Context, w http.ResponseWriter, r *http.Request) (platform.Adapter, bool) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return nil, false
	}
	adapter, err := s.newAdapter(p)
	if err != nil {
		s.errorFrom(w, err)
		return nil, false
	}
	ok, err := adapter.Login(ctx)
	if err != nil || !ok {
		s.errorFrom(w, &ErrUpstream{Message: pipeline.ErrLoginFailed.Error(), Cause: err})
		return nil, false
	}
	return adapter, true
}

func (s *Server) handleListLivePages(w http.ResponseWriter, r *http.Request) {
	limit := defaultLivePageLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.errorFrom(w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	adapter, ok := s.liveAdapter(r.Context(), w, r)
	if !ok {
		return
	}
	pages, err := adapter.ListPages(r.Context(), limit)
	if err != nil {
		s.errorFrom(w, &ErrUpstream{Message: "failed to list wiki pages", Cause: err})
		return
	}
	if pages == nil {
		pages = []string{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"pages":    pages,
		"count":    len(pages),
		"platform": adapter.PlatformName(),
	})
}

func (s *Server) handleGetLivePage(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	if title == "" {
		s.errorFrom(w, &ErrValidation{Field: "title", Message: "is required"})
		return
	}

	adapter, ok := s.liveAdapter(r.Context(), w, r)
	if !ok {
		return
	}
	content, found, err := adapter.GetPage(r.Context(), title)
	if err != nil {
		s.errorFrom(w, &ErrUpstream{Message: "failed to fetch wiki page", Cause: err})
		return
	}
	if !found {
		s.errorResponse(w, http.StatusNotFound, "page not found on wiki")
		return
	}
	s.jsonResponse(w, http.StatusOK, PageResponse{Title: title, Content: content})
}

func (s *Server) handleSaveLivePage(w http.ResponseWriter, r *http.Request) {
	var req SaveLivePageRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		s.errorFrom(w, &ErrValidation{Field: "title", Message: "is required"})
		return
	}

	adapter, ok := s.liveAdapter(r.Context(), w, r)
	if !ok {
		return
	}
	saved, err := adapter.UploadPage(r.Context(), req.Title, req.Content, req.Summary)
	if err != nil {
		s.errorFrom(w, &ErrUpstream{Message: "failed to save wiki page", Cause: err})
		return
	}
	if !saved {
		s.errorFrom(w, &ErrUpstream{Message: "wiki rejected the edit"})
		return
	}
	s.metrics.PageUploaded(adapter.PlatformName(), "success")
	s.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "title": req.Title})
}
