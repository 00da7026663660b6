package types

import (
	"strings"
	"time"
)

// GeneratedPage is the output of one generation or edit pass.
type GeneratedPage struct {
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Format      Format    `json:"format"`
	GeneratedAt time.Time `json:"generated_at"`
}

// FileName returns the on-disk name for the page.
func (g *GeneratedPage) FileName() string {
	return PageFileName(g.Title, g.Format)
}

// PageFileName maps a title to a generated file name: spaces and slashes become underscores.
func PageFileName(title string, format Format) string {
	name := strings.ReplaceAll(title, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name + format.Extension()
}

// TitleFromFileName reverses PageFileName as far as possible (underscores become spaces).
func TitleFromFileName(filename string) string {
	base := strings.TrimSuffix(filename, FormatConfluence.Extension())
	base = strings.TrimSuffix(base, FormatMediaWiki.Extension())
	return strings.ReplaceAll(base, "_", " ")
}

// EditMode selects how a generation batch treats each page.
type EditMode string

const (
	// ModeFull generates the article from scratch.
	ModeFull EditMode = "full"
	// ModeAddMasking weaves masking links into existing content.
	ModeAddMasking EditMode = "add_masking"
	// ModeAddOperator weaves eligible primary links into existing content.
	ModeAddOperator EditMode = "add_operator"
)

// ParseEditMode returns the mode, falling back to ModeFull for unknown values.
func ParseEditMode(s string) EditMode {
	switch EditMode(s) {
	case ModeAddMasking, ModeAddOperator:
		return EditMode(s)
	default:
		return ModeFull
	}
}

// IsEdit reports whether the mode is an edit pass.
func (m EditMode) IsEdit() bool {
	return m == ModeAddMasking || m == ModeAddOperator
}
