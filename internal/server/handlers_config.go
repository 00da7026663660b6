package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/jonathan/wiki-generator/internal/structure"
	"github.com/jonathan/wiki-generator/internal/types"
)

// ImportRequest carries pasted YAML when the body is JSON.
type ImportRequest struct {
	YAML string `json:"yaml"`
}

// projectID resolves the {id} path value to an existing project.
func (s *Server) projectID(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		s.errorFrom(w, err)
		return "", false
	}
	return p.ID, true
}

func (s *Server) handleGetStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	cfg, err := s.store.Structure(id)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if cfg == nil {
		cfg = &types.StructureConfig{DefaultCategory: types.DefaultCategory, Pages: []types.PageSpec{}}
	}
	s.jsonResponse(w, http.StatusOK, cfg)
}

func (s *Server) handlePutStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var cfg types.StructureConfig
	if !s.decodeJSON(w, r, &cfg) {
		return
	}
	s.saveStructure(w, id, &cfg)
}

// handleImportStructure accepts pasted YAML, either as the raw body or as
// {"yaml": "..."}, normalises it and replaces pages.yaml.
func (s *Server) handleImportStructure(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	raw := string(body)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req ImportRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		raw = req.YAML
	}

	cfg, err := structure.NormalizeImport(raw)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	s.saveStructure(w, id, cfg)
}

func (s *Server) saveStructure(w http.ResponseWriter, id string, cfg *types.StructureConfig) {
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = types.DefaultCategory
	}
	for i := range cfg.Pages {
		cfg.Pages[i].Title = strings.TrimSpace(cfg.Pages[i].Title)
	}
	if cfg.Pages == nil {
		cfg.Pages = []types.PageSpec{}
	}
	if err := cfg.Validate(); err != nil {
		s.errorFrom(w, &ErrValidation{Field: "pages", Message: err.Error()})
		return
	}
	if err := s.store.SaveStructure(id, cfg); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.logger.Info("saved structure", "project", id, "pages", len(cfg.Pages))
	s.jsonResponse(w, http.StatusOK, cfg)
}

func (s *Server) handleGetLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	bank, err := s.store.LinkBank(id)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if bank.Links == nil {
		bank.Links = []types.LinkEntry{}
	}
	s.jsonResponse(w, http.StatusOK, bank)
}

func (s *Server) handlePutLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var bank types.LinkBankConfig
	if !s.decodeJSON(w, r, &bank) {
		return
	}
	if err := bank.Validate(); err != nil {
		s.errorFrom(w, &ErrValidation{Field: "links", Message: err.Error()})
		return
	}
	if err := s.store.SaveLinkBank(id, &bank); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, &bank)
}

func (s *Server) handleGetMaskingLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	bank, err := s.store.MaskingBank(id)
	if err != nil {
		s.errorFrom(w, err)
		return
	}
	if bank.MaskingLinks == nil {
		bank.MaskingLinks = []types.MaskingLink{}
	}
	s.jsonResponse(w, http.StatusOK, bank)
}

func (s *Server) handlePutMaskingLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := s.projectID(w, r)
	if !ok {
		return
	}
	var bank types.MaskingBankConfig
	if !s.decodeJSON(w, r, &bank) {
		return
	}
	if err := bank.Validate(); err != nil {
		s.errorFrom(w, &ErrValidation{Field: "masking_links", Message: err.Error()})
		return
	}
	if err := s.store.SaveMaskingBank(id, &bank); err != nil {
		s.errorFrom(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, &bank)
}
