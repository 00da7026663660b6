// Package types provides type definitions for structured data used throughout the wiki-generator system.
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Format is the markup dialect a page is generated in.
type Format string

const (
	// FormatMediaWiki is MediaWiki wikitext (also used for Miraheze).
	FormatMediaWiki Format = "mediawiki"
	// FormatConfluence is Confluence storage format (XHTML-compatible).
	FormatConfluence Format = "confluence"
)

// DefaultCategory is used when neither the page nor the structure specifies one.
const DefaultCategory = "General"

// ParseFormat normalises a format or platform name. Empty input yields FormatMediaWiki.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mediawiki", "miraheze":
		return FormatMediaWiki, nil
	case "confluence":
		return FormatConfluence, nil
	default:
		return "", fmt.Errorf("unknown content format %q", s)
	}
}

// Extension returns the generated file suffix for the format.
func (f Format) Extension() string {
	if f == FormatConfluence {
		return ".html"
	}
	return ".wiki"
}

// StyleConfig holds the writing-style rules fed into the system prompt.
type StyleConfig struct {
	Tone    string   `yaml:"tone,omitempty" json:"tone,omitempty"`
	Include []string `yaml:"include,omitempty" json:"include,omitempty"`
	Avoid   []string `yaml:"avoid,omitempty" json:"avoid,omitempty"`
}

// PageSpec describes a single page to generate.
type PageSpec struct {
	Title         string   `yaml:"title" json:"title" validate:"required"`
	Category      string   `yaml:"category,omitempty" json:"category,omitempty"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	KeyPoints     []string `yaml:"key_points,omitempty" json:"key_points,omitempty"`
	RelatedPages  []string `yaml:"related_pages,omitempty" json:"related_pages,omitempty"`
	ExternalLinks []string `yaml:"external_links,omitempty" json:"external_links,omitempty"`
	FormatHint    string   `yaml:"format,omitempty" json:"format,omitempty"`
}

// CategoryOr returns the page category, or fallback when unset.
func (p PageSpec) CategoryOr(fallback string) string {
	if p.Category != "" {
		return p.Category
	}
	if fallback != "" {
		return fallback
	}
	return DefaultCategory
}

// StructureConfig is the parsed pages.yaml of a project.
type StructureConfig struct {
	WikiName        string      `yaml:"wiki_name,omitempty" json:"wiki_name,omitempty"`
	DefaultCategory string      `yaml:"default_category,omitempty" json:"default_category,omitempty"`
	Style           StyleConfig `yaml:"style,omitempty" json:"style,omitempty"`
	ContentFormat   string      `yaml:"content_format,omitempty" json:"content_format,omitempty"`
	Pages           []PageSpec  `yaml:"pages" json:"pages" validate:"dive"`
}

// Validate checks required fields and title uniqueness.
func (c *StructureConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Pages))
	for _, p := range c.Pages {
		key := strings.ToLower(strings.TrimSpace(p.Title))
		if seen[key] {
			return fmt.Errorf("duplicate page title %q", p.Title)
		}
		seen[key] = true
	}
	if _, err := ParseFormat(c.ContentFormat); err != nil {
		return err
	}
	return nil
}

// FindPage looks a page up by title, case-insensitively.
func (c *StructureConfig) FindPage(title string) (PageSpec, bool) {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, p := range c.Pages {
		if strings.ToLower(p.Title) == want {
			return p, true
		}
	}
	return PageSpec{}, false
}
