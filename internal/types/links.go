package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// LinkEntry is a primary link bank entry. Count is the per-run quota; zero means unlimited.
type LinkEntry struct {
	URL     string   `yaml:"url" json:"url" validate:"required,url"`
	Anchors []string `yaml:"anchors,omitempty" json:"anchors,omitempty"`
	Count   int      `yaml:"count" json:"count" validate:"gte=0"`
}

// Unlimited reports whether the entry has no quota.
func (l LinkEntry) Unlimited() bool {
	return l.Count == 0
}

// MaskingLink is a non-commercial reference link. Masking links have no quota.
type MaskingLink struct {
	URL     string   `yaml:"url" json:"url" validate:"required,url"`
	Anchors []string `yaml:"anchors,omitempty" json:"anchors,omitempty"`
}

// AsEntry converts the masking link to an unlimited LinkEntry.
func (m MaskingLink) AsEntry() LinkEntry {
	return LinkEntry{URL: m.URL, Anchors: m.Anchors}
}

// LinkBankConfig is the parsed links.yaml of a project.
type LinkBankConfig struct {
	Links []LinkEntry `yaml:"links" json:"links" validate:"dive"`
}

// Validate checks entries and URL uniqueness.
func (c *LinkBankConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Links))
	for _, l := range c.Links {
		if seen[l.URL] {
			return fmt.Errorf("duplicate link url %q", l.URL)
		}
		seen[l.URL] = true
	}
	return nil
}

// MaskingBankConfig is the parsed masking_links.yaml of a project.
type MaskingBankConfig struct {
	MaskingLinks []MaskingLink `yaml:"masking_links" json:"masking_links" validate:"dive"`
}

// Validate checks entries.
func (c *MaskingBankConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}
