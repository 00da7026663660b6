// Package prompting assembles the system and per-page prompts sent to the model.
// Every function here is pure: identical inputs give byte-identical output.
package prompting

import (
	"strings"

	"github.com/jonathan/wiki-generator/internal/prompts"
	"github.com/jonathan/wiki-generator/internal/types"
)

// OutputRequirementsMarker is the heading that closes every page prompt.
// The link bank section is inserted immediately before it.
const OutputRequirementsMarker = "## Output Requirements"

const (
	defaultWikiName    = "Wiki"
	defaultTone        = "encyclopaedic, neutral"
	defaultSpaceKey    = "SPACE"
	defaultDescription = "No description provided"
)

// BuildSystemPrompt renders tone, required and forbidden elements and the
// syntax reference for the target format.
func BuildSystemPrompt(cfg *types.StructureConfig, format types.Format, spaceKey string) string {
	wikiName, tone := defaultWikiName, defaultTone
	var style types.StyleConfig
	if cfg != nil {
		style = cfg.Style
		if cfg.WikiName != "" {
			wikiName = cfg.WikiName
		}
	}
	if style.Tone != "" {
		tone = style.Tone
	}
	if spaceKey == "" {
		spaceKey = defaultSpaceKey
	}
	format = dialect(format)

	var b strings.Builder
	b.WriteString(prompts.Render(prompts.Generation, "system-intro-"+string(format), map[string]string{
		"WikiName": wikiName,
		"Tone":     tone,
	}))

	b.WriteString("\n## Required Elements\n")
	writeBullets(&b, style.Include)
	b.WriteString("\n## Avoid\n")
	writeBullets(&b, style.Avoid)

	b.WriteString(prompts.Render(prompts.Generation, "system-reference-"+string(format), map[string]string{
		"SpaceKey": spaceKey,
	}))
	return b.String()
}

// BuildPagePrompt renders the user prompt for one page, ending with the
// format-specific output requirements block.
func BuildPagePrompt(page types.PageSpec, defaultCategory string, format types.Format) string {
	category := page.CategoryOr(defaultCategory)
	description := page.Description
	if description == "" {
		description = defaultDescription
	}

	format = dialect(format)
	platformName := "MediaWiki"
	if format == types.FormatConfluence {
		platformName = "Confluence"
	}

	var b strings.Builder
	b.WriteString(prompts.Render(prompts.Generation, "page-intro", map[string]string{
		"PlatformName": platformName,
		"Title":        page.Title,
		"Category":     category,
		"Description":  description,
	}))
	writeBullets(&b, page.KeyPoints)

	if len(page.RelatedPages) > 0 {
		b.WriteString("\n## Related Pages (for See Also section)\n")
		for _, related := range page.RelatedPages {
			b.WriteString("- ")
			b.WriteString(InternalLink(related, format))
			b.WriteString("\n")
		}
	}

	if len(page.ExternalLinks) > 0 {
		b.WriteString("\n## External Links to Include\n")
		writeBullets(&b, page.ExternalLinks)
	}

	if page.FormatHint != "" {
		b.WriteString("\n## Special Format Instructions\n")
		b.WriteString(page.FormatHint)
		b.WriteString("\n")
	}

	b.WriteString(prompts.Render(prompts.Generation, "output-requirements-"+string(format), map[string]string{
		"Category": category,
	}))
	return b.String()
}

// InternalLink renders a link to another page of the same wiki in the
// platform's native syntax.
func InternalLink(title string, format types.Format) string {
	if format == types.FormatConfluence {
		return `<ac:link><ri:page ri:content-title="` + escapeAttr(title) + `"/></ac:link>`
	}
	return "[[" + title + "]]"
}

// InsertBeforeOutputRequirements places section directly ahead of the first
// output requirements heading, or appends it when the heading is absent.
func InsertBeforeOutputRequirements(prompt, section string) string {
	idx := strings.Index(prompt, OutputRequirementsMarker)
	if idx < 0 {
		return prompt + section
	}
	return prompt[:idx] + section + prompt[idx:]
}

// dialect treats anything that is not Confluence as MediaWiki.
func dialect(f types.Format) types.Format {
	if f == types.FormatConfluence {
		return f
	}
	return types.FormatMediaWiki
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

func escapeAttr(s string) string {
	return attrEscaper.Replace(s)
}
