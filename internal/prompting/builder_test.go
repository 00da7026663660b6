package prompting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/wiki-generator/internal/types"
)

func sampleConfig() *types.StructureConfig {
	return &types.StructureConfig{
		WikiName:        "Gambling Help",
		DefaultCategory: "Regulation",
		Style: types.StyleConfig{
			Tone:    "plain, factual",
			Include: []string{"Lead paragraph", "Summary table"},
			Avoid:   []string{"Marketing language"},
		},
	}
}

func samplePage() types.PageSpec {
	return types.PageSpec{
		Title:         "BetStop",
		Category:      "Tools",
		Description:   "National self-exclusion register",
		KeyPoints:     []string{"How to register", "Duration options"},
		RelatedPages:  []string{"ACMA"},
		ExternalLinks: []string{"https://www.betstop.gov.au"},
		FormatHint:    "Include a timeline table",
	}
}

func TestBuildSystemPrompt_MediaWiki(t *testing.T) {
	out := BuildSystemPrompt(sampleConfig(), types.FormatMediaWiki, "")

	assert.True(t, strings.HasPrefix(out, `You are an expert wiki content writer creating pages for the "Gambling Help".`))
	assert.Contains(t, out, "- Tone: plain, factual\n")
	assert.Contains(t, out, "## Required Elements\n- Lead paragraph\n- Summary table\n")
	assert.Contains(t, out, "## Avoid\n- Marketing language\n")
	assert.Contains(t, out, "## MediaWiki Syntax Reference")
	assert.NotContains(t, out, "Confluence")
}

func TestBuildSystemPrompt_ConfluenceDefaults(t *testing.T) {
	out := BuildSystemPrompt(&types.StructureConfig{}, types.FormatConfluence, "")

	assert.Contains(t, out, `pages for the "Wiki"`)
	assert.Contains(t, out, "- Tone: encyclopaedic, neutral")
	assert.Contains(t, out, `ri:space-key="SPACE"`)
	assert.Contains(t, out, "## Confluence Storage Format Reference")
	assert.NotContains(t, out, "[[")
}

func TestBuildSystemPrompt_SpaceKey(t *testing.T) {
	out := BuildSystemPrompt(nil, types.FormatConfluence, "DOCS")
	assert.Contains(t, out, `ri:space-key="DOCS"`)
}

func TestBuildPagePrompt_MediaWiki(t *testing.T) {
	out := BuildPagePrompt(samplePage(), "Regulation", types.FormatMediaWiki)

	assert.True(t, strings.HasPrefix(out, `Generate a complete MediaWiki page for: "BetStop"`))
	assert.Contains(t, out, "- Category: Tools\n")
	assert.Contains(t, out, "- Description: National self-exclusion register\n")
	assert.Contains(t, out, "## Key Points to Cover\n- How to register\n- Duration options\n")
	assert.Contains(t, out, "## Related Pages (for See Also section)\n- [[ACMA]]\n")
	assert.Contains(t, out, "## External Links to Include\n- https://www.betstop.gov.au\n")
	assert.Contains(t, out, "## Special Format Instructions\nInclude a timeline table\n")
	assert.Contains(t, out, "[[Category:Tools]]")
	assert.Equal(t, 1, strings.Count(out, OutputRequirementsMarker))
}

func TestBuildPagePrompt_Confluence(t *testing.T) {
	out := BuildPagePrompt(samplePage(), "Regulation", types.FormatConfluence)

	assert.True(t, strings.HasPrefix(out, `Generate a complete Confluence page for: "BetStop"`))
	assert.Contains(t, out, `- <ac:link><ri:page ri:content-title="ACMA"/></ac:link>`)
	assert.Contains(t, out, "<h2>See Also</h2>")
	assert.NotContains(t, out, "[[")
}

func TestBuildPagePrompt_Defaults(t *testing.T) {
	tests := []struct {
		name            string
		defaultCategory string
		want            string
	}{
		{"falls back to default category", "Regulation", "- Category: Regulation\n"},
		{"falls back to General", "", "- Category: General\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := BuildPagePrompt(types.PageSpec{Title: "Bare"}, tt.defaultCategory, types.FormatMediaWiki)
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "- Description: No description provided\n")
			assert.NotContains(t, out, "## Related Pages")
			assert.NotContains(t, out, "## Special Format Instructions")
		})
	}
}

func TestBuildersArePure(t *testing.T) {
	cfg, page := sampleConfig(), samplePage()
	for _, format := range []types.Format{types.FormatMediaWiki, types.FormatConfluence} {
		assert.Equal(t, BuildSystemPrompt(cfg, format, "K"), BuildSystemPrompt(cfg, format, "K"))
		assert.Equal(t, BuildPagePrompt(page, "X", format), BuildPagePrompt(page, "X", format))
	}
}

func TestInsertBeforeOutputRequirements(t *testing.T) {
	prompt := "intro\n\n## Output Requirements\n1. x\n"
	out := InsertBeforeOutputRequirements(prompt, "\n## Links\n- a\n")
	assert.Equal(t, "intro\n\n\n## Links\n- a\n## Output Requirements\n1. x\n", out)

	assert.Equal(t, "no marker\n## Links\n", InsertBeforeOutputRequirements("no marker", "\n## Links\n"))
}

func TestInternalLink_EscapesTitle(t *testing.T) {
	assert.Equal(t, `<ac:link><ri:page ri:content-title="Q&amp;A &quot;Tips&quot;"/></ac:link>`,
		InternalLink(`Q&A "Tips"`, types.FormatConfluence))
	assert.Equal(t, "[[Q&A]]", InternalLink("Q&A", types.FormatMediaWiki))
}
