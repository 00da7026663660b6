package structure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/wiki-generator/internal/types"
)

const samplePages = `
wiki_name: Australian Gambling Help
default_category: Regulation
content_format: mediawiki
style:
  tone: encyclopaedic, neutral
  include:
    - Lead paragraph
  avoid:
    - Marketing language
pages:
  - title: BetStop
    category: Tools
    description: National self-exclusion register
    key_points:
      - How to register
      - Duration options
    related_pages: [ACMA]
    external_links: [https://www.betstop.gov.au]
  - title: ACMA
    format: Include a timeline table
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStructure(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pages.yaml", samplePages)

	cfg, err := LoadStructure(path)
	require.NoError(t, err)

	assert.Equal(t, "Australian Gambling Help", cfg.WikiName)
	assert.Equal(t, "Regulation", cfg.DefaultCategory)
	require.Len(t, cfg.Pages, 2)
	assert.Equal(t, []string{"How to register", "Duration options"}, cfg.Pages[0].KeyPoints)
	assert.Equal(t, "Include a timeline table", cfg.Pages[1].FormatHint)
	assert.Equal(t, []string{"Marketing language"}, cfg.Style.Avoid)
}

func TestParseStructure_DefaultsCategory(t *testing.T) {
	cfg, err := ParseStructure([]byte("pages:\n  - title: Only\n"))
	require.NoError(t, err)
	assert.Equal(t, types.DefaultCategory, cfg.DefaultCategory)
}

func TestParseStructure_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"not a mapping", "- a\n- b\n", "mapping"},
		{"missing title", "pages:\n  - description: x\n", "schema validation failed"},
		{"duplicate title", "pages:\n  - title: A\n  - title: a\n", "duplicate page title"},
		{"bad yaml", "pages: [\n", "YAML parse error"},
		{"bad format", "content_format: markdown\n", "schema validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStructure([]byte(tt.yaml))
			require.Error(t, err)
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadStructure_MissingFile(t *testing.T) {
	_, err := LoadStructure(filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Path, "nope.yaml")
}

func TestLoadLinkBank(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "links.yaml", `
links:
  - url: https://a.example
    anchors: [a, "a casino"]
    count: 1
  - url: https://b.example
    anchors: [b]
    count: 0
`)

	cfg, err := LoadLinkBank(path)
	require.NoError(t, err)
	require.Len(t, cfg.Links, 2)
	assert.Equal(t, 1, cfg.Links[0].Count)
	assert.True(t, cfg.Links[1].Unlimited())
}

func TestLoadLinkBank_MissingFileIsEmpty(t *testing.T) {
	cfg, err := LoadLinkBank(filepath.Join(t.TempDir(), "links.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Links)
}

func TestLoadLinkBank_Invalid(t *testing.T) {
	path := writeFile(t, t.TempDir(), "links.yaml", "links:\n  - anchors: [a]\n")
	_, err := LoadLinkBank(path)
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, path, cfgErr.Path)
}

func TestLoadMaskingBank(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "masking_links.yaml", `
masking_links:
  - url: https://www.acma.gov.au
    anchors: [ACMA]
`)
	cfg, err := LoadMaskingBank(path)
	require.NoError(t, err)
	require.Len(t, cfg.MaskingLinks, 1)
	assert.Equal(t, "https://www.acma.gov.au", cfg.MaskingLinks[0].URL)

	empty, err := LoadMaskingBank(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, empty.MaskingLinks)
}
