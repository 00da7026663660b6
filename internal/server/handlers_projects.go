package server

import (
	"net/http"

	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/types"
)

// ConnectionRequest tests either a saved project or inline credentials.
type ConnectionRequest struct {
	ProjectID string         `json:"project_id,omitempty"`
	Project   *types.Project `json:"project,omitempty"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, _ *http.Request) {
	projects, err := s.store.List()
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var p types.Project
	if !s.decodeJSON(w, r, &p) {
		return
	}
	p.ID = ""
	created, err := s.store.Create(&p)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.logger.Info("created project", "project", created.ID, "platform", string(created.Platform))
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

// handleUpdateProject replaces name, platform and credentials; id and
// creation time stay as stored.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	existing, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return
	}

	var p types.Project
	if !s.decodeJSON(w, r, &p) {
		return
	}
	p.ID = existing.ID
	p.CreatedAt = existing.CreatedAt
	p.Platform = types.NormalizePlatform(string(p.Platform))
	if p.MediaWiki != nil && p.MediaWiki.APIPath == "" {
		p.MediaWiki.APIPath = types.DefaultAPIPath
	}
	if err := p.Validate(); err != nil {
		s.errorFrom(w, err)
		return
	}
	if err := s.store.Save(&p); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, &p)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	p := req.Project
	if req.ProjectID != "" {
		stored, err := s.store.Get(req.ProjectID)
		if err != nil {
			s.errorFrom(w, err)
			return
		}
		p = stored
	}
	if p == nil {
		s.errorFrom(w, &ErrValidation{Message: "project_id or project is required"})
		return
	}
	p.Platform = types.NormalizePlatform(string(p.Platform))
	if p.Name == "" {
		p.Name = "connection test"
	}
	if err := p.Validate(); err != nil {
		s.errorFrom(w, err)
		return
	}

	adapter, err := s.newAdapter(p)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	result := adapter.TestConnection(r.Context())
	s.logger.Info("connection test", "platform", adapter.PlatformName(), "success", result.Success)
	s.jsonResponse(w, http.StatusOK, struct {
		Platform string `json:"platform"`
		platform.ConnectionResult
	}{Platform: adapter.PlatformName(), ConnectionResult: result})
}
