package structure

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/wiki-generator/internal/types"
)

// importDoc accepts both the flat layout (pages at top level) and the nested "wiki:" layout.
type importDoc struct {
	WikiName        string       `yaml:"wiki_name"`
	DefaultCategory string       `yaml:"default_category"`
	Pages           []yaml.Node  `yaml:"pages"`
	Wiki            *importBlock `yaml:"wiki"`
}

type importBlock struct {
	Name            string      `yaml:"name"`
	DefaultCategory string      `yaml:"default_category"`
	Pages           []yaml.Node `yaml:"pages"`
}

type importPage struct {
	Title        any      `yaml:"title"`
	Category     string   `yaml:"category"`
	Description  string   `yaml:"description"`
	KeyPoints    []string `yaml:"key_points"`
	RelatedPages []string `yaml:"related_pages"`
}

// NormalizeImport parses pasted YAML and returns a normalised structure.
// Pages that are not mappings or have no title are dropped.
func NormalizeImport(raw string) (*types.StructureConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, &ConfigError{Message: "YAML input is empty"}
	}

	var probe any
	if err := yaml.Unmarshal([]byte(raw), &probe); err != nil {
		return nil, &ConfigError{Message: "YAML parse error", Cause: err}
	}
	if _, ok := probe.(map[string]any); !ok {
		return nil, &ConfigError{Message: "YAML must define a mapping at the top level"}
	}

	var doc importDoc
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ConfigError{Message: "pages must be a list", Cause: err}
	}

	block := doc.Wiki
	if block == nil {
		block = &importBlock{}
	}

	nodes := doc.Pages
	if len(nodes) == 0 {
		nodes = block.Pages
	}

	defaultCategory := firstNonEmpty(doc.DefaultCategory, block.DefaultCategory, types.DefaultCategory)

	out := &types.StructureConfig{
		WikiName:        firstNonEmpty(doc.WikiName, block.Name),
		DefaultCategory: defaultCategory,
		Pages:           make([]types.PageSpec, 0, len(nodes)),
	}

	for i := range nodes {
		node := &nodes[i]
		if node.Kind != yaml.MappingNode {
			continue
		}
		var p importPage
		if err := node.Decode(&p); err != nil {
			continue
		}
		title := ""
		if p.Title != nil {
			title = strings.TrimSpace(fmt.Sprint(p.Title))
		}
		if title == "" {
			continue
		}
		out.Pages = append(out.Pages, types.PageSpec{
			Title:        title,
			Category:     firstNonEmpty(p.Category, defaultCategory),
			Description:  p.Description,
			KeyPoints:    nonNil(p.KeyPoints),
			RelatedPages: nonNil(p.RelatedPages),
		})
	}

	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
