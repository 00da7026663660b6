// Package structure loads and validates the YAML documents that describe a wiki project:
// the page structure, the primary link bank and the masking link bank.
package structure

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/wiki-generator/internal/schemas"
	"github.com/jonathan/wiki-generator/internal/types"
)

// LoadStructure reads and validates a pages.yaml file.
func LoadStructure(path string) (*types.StructureConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read structure file", Cause: err}
	}
	cfg, err := ParseStructure(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// ParseStructure decodes, schema-checks and validates structure YAML.
func ParseStructure(data []byte) (*types.StructureConfig, error) {
	var cfg types.StructureConfig
	if err := decode(data, schemas.Structure, &cfg); err != nil {
		return nil, err
	}
	if cfg.DefaultCategory == "" {
		cfg.DefaultCategory = types.DefaultCategory
	}
	for i := range cfg.Pages {
		cfg.Pages[i].Title = strings.TrimSpace(cfg.Pages[i].Title)
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Message: "invalid structure", Cause: err}
	}
	return &cfg, nil
}

// LoadLinkBank reads links.yaml. A missing file yields an empty bank.
func LoadLinkBank(path string) (*types.LinkBankConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &types.LinkBankConfig{}, nil
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read link bank", Cause: err}
	}
	cfg, err := ParseLinkBank(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// ParseLinkBank decodes and validates link bank YAML.
func ParseLinkBank(data []byte) (*types.LinkBankConfig, error) {
	var cfg types.LinkBankConfig
	if err := decode(data, schemas.LinkBank, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Message: "invalid link bank", Cause: err}
	}
	return &cfg, nil
}

// LoadMaskingBank reads masking_links.yaml. A missing file yields an empty bank.
func LoadMaskingBank(path string) (*types.MaskingBankConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &types.MaskingBankConfig{}, nil
	}
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "failed to read masking bank", Cause: err}
	}
	cfg, err := ParseMaskingBank(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return cfg, nil
}

// ParseMaskingBank decodes and validates masking bank YAML.
func ParseMaskingBank(data []byte) (*types.MaskingBankConfig, error) {
	var cfg types.MaskingBankConfig
	if err := decode(data, schemas.MaskingBank, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, &ConfigError{Message: "invalid masking bank", Cause: err}
	}
	return &cfg, nil
}

// decode runs the schema check on the generic document before decoding into out.
func decode(data []byte, schemaName string, out any) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return &ConfigError{Message: "YAML parse error", Cause: err}
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if _, ok := doc.(map[string]any); !ok {
		return &ConfigError{Message: "YAML must define a mapping at the top level"}
	}
	if err := schemas.Validate(schemaName, doc); err != nil {
		return &ConfigError{Message: "schema validation failed", Cause: err}
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return &ConfigError{Message: "YAML decode error", Cause: err}
	}
	return nil
}

func withPath(err error, path string) error {
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Path == "" {
		cfgErr.Path = path
	}
	return err
}
