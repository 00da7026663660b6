// Package project stores wiki projects on the filesystem.
//
// Each project lives in <root>/<id>/ with config.json (name, platform, credentials),
// pages.yaml, links.yaml, masking_links.yaml and a generated/ directory holding one
// file per page.
package project

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/jonathan/wiki-generator/internal/schemas"
	"github.com/jonathan/wiki-generator/internal/structure"
	"github.com/jonathan/wiki-generator/internal/types"
)

const (
	configFile   = "config.json"
	pagesFile    = "pages.yaml"
	linksFile    = "links.yaml"
	maskingFile  = "masking_links.yaml"
	generatedDir = "generated"
)

// Store is a directory of projects.
type Store struct {
	root string
	now  func() time.Time
}

// NewStore returns a store rooted at dir. The directory is created lazily.
func NewStore(dir string) *Store {
	return &Store{root: dir, now: time.Now}
}

// Root returns the projects directory.
func (s *Store) Root() string { return s.root }

// Dir returns the directory of one project.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

// GeneratedDir returns the directory generated pages are written to.
func (s *Store) GeneratedDir(id string) string {
	return filepath.Join(s.Dir(id), generatedDir)
}

// NewID returns an 8-character project id.
func NewID() string {
	return uuid.NewString()[:8]
}

// Create validates p, assigns an id and creation time, and writes config.json.
func (s *Store) Create(p *types.Project) (*types.Project, error) {
	p.Platform = types.NormalizePlatform(string(p.Platform))
	if p.MediaWiki != nil && p.MediaWiki.APIPath == "" {
		p.MediaWiki.APIPath = types.DefaultAPIPath
	}
	if err := p.Validate(); err != nil {
		return nil, &Error{Message: "invalid project", Cause: err}
	}
	p.ID = NewID()
	p.CreatedAt = s.now().UTC()
	if err := s.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Save writes config.json for an existing project id.
func (s *Store) Save(p *types.Project) error {
	if !validID(p.ID) {
		return &Error{ProjectID: p.ID, Message: "invalid project id"}
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return &Error{ProjectID: p.ID, Message: "failed to encode config", Cause: err}
	}
	return s.write(p.ID, configFile, data)
}

// Get loads a project. Missing projects yield ErrNotFound.
func (s *Store) Get(id string) (*types.Project, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.Dir(id), configFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{ProjectID: id, Message: "failed to read config", Cause: err}
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{ProjectID: id, Message: "failed to parse config", Cause: err}
	}
	if err := schemas.Validate(schemas.Project, doc); err != nil {
		return nil, &Error{ProjectID: id, Message: "config does not match schema", Cause: err}
	}
	var p types.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &Error{ProjectID: id, Message: "failed to decode config", Cause: err}
	}
	p.ID = id
	p.Platform = types.NormalizePlatform(string(p.Platform))
	return &p, nil
}

// List returns every project, newest first. Directories without a readable config.json are skipped.
func (s *Store) List() ([]*types.Project, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []*types.Project{}, nil
	}
	if err != nil {
		return nil, &Error{Message: "failed to read projects directory", Cause: err}
	}

	projects := make([]*types.Project, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		p, err := s.Get(e.Name())
		if err != nil {
			continue
		}
		projects = append(projects, p)
	}
	sort.SliceStable(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

// Structure loads pages.yaml. A project without one yields nil, nil.
func (s *Store) Structure(id string) (*types.StructureConfig, error) {
	path := filepath.Join(s.Dir(id), pagesFile)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return structure.LoadStructure(path)
}

// SaveStructure validates and writes pages.yaml.
func (s *Store) SaveStructure(id string, cfg *types.StructureConfig) error {
	if err := cfg.Validate(); err != nil {
		return &Error{ProjectID: id, Message: "invalid structure", Cause: err}
	}
	return s.writeYAML(id, pagesFile, cfg)
}

// LinkBank loads links.yaml; missing files yield an empty bank.
func (s *Store) LinkBank(id string) (*types.LinkBankConfig, error) {
	return structure.LoadLinkBank(filepath.Join(s.Dir(id), linksFile))
}

// SaveLinkBank validates and writes links.yaml.
func (s *Store) SaveLinkBank(id string, cfg *types.LinkBankConfig) error {
	if cfg.Links == nil {
		cfg.Links = []types.LinkEntry{}
	}
	if err := cfg.Validate(); err != nil {
		return &Error{ProjectID: id, Message: "invalid link bank", Cause: err}
	}
	return s.writeYAML(id, linksFile, cfg)
}

// MaskingBank loads masking_links.yaml; missing files yield an empty bank.
func (s *Store) MaskingBank(id string) (*types.MaskingBankConfig, error) {
	return structure.LoadMaskingBank(filepath.Join(s.Dir(id), maskingFile))
}

// SaveMaskingBank validates and writes masking_links.yaml.
func (s *Store) SaveMaskingBank(id string, cfg *types.MaskingBankConfig) error {
	if cfg.MaskingLinks == nil {
		cfg.MaskingLinks = []types.MaskingLink{}
	}
	if err := cfg.Validate(); err != nil {
		return &Error{ProjectID: id, Message: "invalid masking bank", Cause: err}
	}
	return s.writeYAML(id, maskingFile, cfg)
}

func (s *Store) writeYAML(id, name string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return &Error{ProjectID: id, Message: "failed to encode " + name, Cause: err}
	}
	return s.write(id, name, data)
}

func (s *Store) write(id, name string, data []byte) error {
	dir := s.Dir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &Error{ProjectID: id, Message: "failed to create project directory", Cause: err}
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return &Error{ProjectID: id, Message: "failed to write " + name, Cause: err}
	}
	return nil
}

// validID rejects ids that could leave the projects directory.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
