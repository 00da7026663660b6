// Package generation produces wiki articles from page specs and weaves link
// bank links into existing articles.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/wiki-generator/internal/linkbank"
	"github.com/jonathan/wiki-generator/internal/llm"
	"github.com/jonathan/wiki-generator/internal/prompting"
	"github.com/jonathan/wiki-generator/internal/prompts"
	"github.com/jonathan/wiki-generator/internal/types"
)

// State is the position of a generator call in its lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StatePromptBuilt   State = "prompt_built"
	StateLinksInjected State = "links_injected"
	StateModelCalled   State = "model_called"
	StatePostProcessed State = "post_processed"
	StateDone          State = "done"
	StateFailed        State = "failed"
)

const (
	generateTemperature = 0.3
	editTemperature     = 0.2
	maxTokens           = 4000
	maskingSampleSize   = 3
)

// Config holds the per-batch generator settings.
type Config struct {
	// Format overrides the structure's content_format.
	Format types.Format
	// SpaceKey is the Confluence space used in storage links.
	SpaceKey string
	// GeneratorID is written into the metadata block. Defaults to "wikigen (<model>)".
	GeneratorID string
	Logger      *slog.Logger
	// Now is the clock used for metadata timestamps.
	Now func() time.Time
}

// Generator builds prompts, calls the model and accounts link usage for one batch.
type Generator struct {
	client       llm.Client
	tracker      *linkbank.Tracker
	structure    *types.StructureConfig
	format       types.Format
	spaceKey     string
	generatorID  string
	systemPrompt string
	logger       *slog.Logger
	now          func() time.Time

	mu        sync.Mutex
	lastState State
}

// New returns a generator for one batch. The tracker must not be shared with another batch.
func New(client llm.Client, tracker *linkbank.Tracker, structure *types.StructureConfig, cfg Config) (*Generator, error) {
	if client == nil {
		return nil, fmt.Errorf("llm client is required")
	}
	if structure == nil {
		structure = &types.StructureConfig{}
	}
	if tracker == nil {
		tracker = linkbank.New()
	}

	format := cfg.Format
	if format == "" {
		parsed, err := types.ParseFormat(structure.ContentFormat)
		if err != nil {
			return nil, err
		}
		format = parsed
	}
	if format != types.FormatConfluence {
		format = types.FormatMediaWiki
	}

	g := &Generator{
		client:      client,
		tracker:     tracker,
		structure:   structure,
		format:      format,
		spaceKey:    cfg.SpaceKey,
		generatorID: cfg.GeneratorID,
		logger:      cfg.Logger,
		now:         cfg.Now,
		lastState:   StateIdle,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.generatorID == "" {
		g.generatorID = fmt.Sprintf("wikigen (%s)", client.GetModel(llm.TierAdvanced))
	}
	g.systemPrompt = prompting.BuildSystemPrompt(structure, format, cfg.SpaceKey)
	return g, nil
}

// Format returns the content format the generator writes.
func (g *Generator) Format() types.Format { return g.format }

// Tracker returns the link bank tracker of the batch.
func (g *Generator) Tracker() *linkbank.Tracker { return g.tracker }

// Page looks a title up in the batch's structure.
func (g *Generator) Page(title string) (types.PageSpec, bool) {
	return g.structure.FindPage(title)
}

// LastState returns the state the most recent call ended in.
func (g *Generator) LastState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastState
}

func (g *Generator) setState(s State) {
	g.mu.Lock()
	g.lastState = s
	g.mu.Unlock()
}

// GeneratePage writes a full article for page.
func (g *Generator) GeneratePage(ctx context.Context, page types.PageSpec) (*types.GeneratedPage, error) {
	g.setState(StateIdle)
	category := page.CategoryOr(g.structure.DefaultCategory)

	userPrompt := prompting.BuildPagePrompt(page, g.structure.DefaultCategory, g.format)
	g.setState(StatePromptBuilt)

	eligible := g.tracker.EligibleLinks()
	section, masking := g.linksSection(eligible)
	if section != "" {
		userPrompt = prompting.InsertBeforeOutputRequirements(userPrompt, section)
		g.logger.Debug("injected link bank section", "page", page.Title, "eligible", len(eligible), "masking", len(masking))
	} else {
		g.logger.Warn("no eligible links for page", "page", page.Title)
	}
	g.setState(StateLinksInjected)

	content, err := g.client.Generate(ctx, llm.Request{
		System:      g.systemPrompt,
		Prompt:      userPrompt,
		Tier:        llm.TierAdvanced,
		Temperature: generateTemperature,
		MaxTokens:   maxTokens,
	})
	g.setState(StateModelCalled)
	if err != nil {
		g.setState(StateFailed)
		return nil, &GenerationError{Page: page.Title, Message: "model call failed", Cause: err}
	}

	body := g.postProcess(content)
	if body == "" {
		g.setState(StateFailed)
		return nil, &GenerationError{Page: page.Title, Message: "empty reply", Cause: ErrNoContent}
	}
	g.setState(StatePostProcessed)

	recorded := map[string]bool{}
	found := 0
	for _, l := range eligible {
		if !recorded[l.URL] && linkbank.Contains(content, l.URL) {
			recorded[l.URL] = true
			g.tracker.RecordUsage(l.URL)
			found++
			g.logger.Debug("link included", "page", page.Title, "url", l.URL)
		}
	}
	for _, m := range masking {
		if !recorded[m.URL] && linkbank.Contains(content, m.URL) {
			recorded[m.URL] = true
			g.tracker.RecordUsage(m.URL)
		}
	}
	g.logger.Info("generated page", "page", page.Title, "eligible", len(eligible), "found", found)

	now := g.now()
	out := &types.GeneratedPage{
		Title:       page.Title,
		Content:     g.metadata(now, page.Title, category) + body,
		Format:      g.format,
		GeneratedAt: now,
	}
	g.setState(StateDone)
	return out, nil
}

// AddLinksToExisting asks the model to weave links into existing without
// changing anything else. add_masking uses a random masking sample and leaves
// usage untouched; add_operator uses every eligible primary link and records
// the ones found in the result. With no links to add, existing is returned as is.
func (g *Generator) AddLinksToExisting(ctx context.Context, existing string, page types.PageSpec, mode types.EditMode) (string, error) {
	g.setState(StateIdle)

	var (
		entries   []types.LinkEntry
		linkType  string
		countHint string
	)
	switch mode {
	case types.ModeAddMasking:
		for _, m := range g.tracker.SampleMasking(maskingSampleSize) {
			entries = append(entries, m.AsEntry())
		}
		linkType, countHint = "non-commercial reference", "1-2"
	case types.ModeAddOperator:
		entries = g.tracker.EligibleLinks()
		linkType, countHint = "external", "all contextually relevant"
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	lines := linkLines(entries)
	if len(lines) == 0 {
		g.logger.Info("no links available for edit pass", "page", page.Title, "mode", string(mode))
		g.setState(StateDone)
		return existing, nil
	}

	protect := "edit-protect-operator"
	if mode == types.ModeAddMasking {
		protect = "edit-protect-masking"
	}

	var b strings.Builder
	b.WriteString(prompts.Render(prompts.Generation, "edit-intro", map[string]string{
		"CountHint": countHint,
		"LinkType":  linkType,
	}))
	b.WriteString(prompts.MustGet(prompts.Generation, protect))
	b.WriteString(prompts.Render(prompts.Generation, "edit-rules", map[string]string{
		"SyntaxNote": prompts.MustGet(prompts.Generation, "edit-syntax-"+string(g.format)),
	}))
	g.setState(StatePromptBuilt)

	b.WriteString(strings.Join(lines, "\n"))
	g.setState(StateLinksInjected)
	b.WriteString("\n\nExisting article:\n")
	b.WriteString(existing)

	g.logger.Info("adding links to existing page", "page", page.Title, "mode", string(mode), "links", len(lines))
	content, err := g.client.Generate(ctx, llm.Request{
		System:      g.systemPrompt,
		Prompt:      b.String(),
		Tier:        llm.TierAdvanced,
		Temperature: editTemperature,
		MaxTokens:   maxTokens,
	})
	g.setState(StateModelCalled)
	if err != nil {
		g.setState(StateFailed)
		return "", &GenerationError{Page: page.Title, Message: "edit pass failed", Cause: err}
	}

	out := g.postProcess(content)
	if out == "" {
		g.setState(StateFailed)
		return "", &GenerationError{Page: page.Title, Message: "empty edit reply", Cause: ErrNoContent}
	}
	g.setState(StatePostProcessed)

	if mode == types.ModeAddOperator {
		recorded := map[string]bool{}
		for _, l := range entries {
			if !recorded[l.URL] && linkbank.Contains(content, l.URL) {
				recorded[l.URL] = true
				g.tracker.RecordUsage(l.URL)
				g.logger.Debug("link included", "page", page.Title, "url", l.URL)
			}
		}
	}

	g.setState(StateDone)
	return out, nil
}

// postProcess strips a wrapping code fence and, for Confluence, converts
// internal page anchors to storage links.
func (g *Generator) postProcess(content string) string {
	content = llm.StripCodeFence(content)
	if g.format == types.FormatConfluence {
		content = RewriteConfluenceInternalLinks(content, g.spaceKey)
	}
	return content
}

func (g *Generator) metadata(ts time.Time, title, category string) string {
	return fmt.Sprintf("<!--\n    Generated: %s\n    Page: %s\n    Category: %s\n    Generator: %s\n-->\n",
		ts.Format(time.RFC3339), title, category, g.generatorID)
}

// linksSection renders the link bank block for the page prompt plus the
// masking sample it embedded. Both are empty when nothing is eligible.
func (g *Generator) linksSection(eligible []types.LinkEntry) (string, []types.MaskingLink) {
	if len(eligible) == 0 {
		return "", nil
	}

	syntaxNote := prompts.MustGet(prompts.Generation, "linkbank-syntax-"+string(g.format))
	lines := []string{
		"\n## Global Link Bank (External Links)",
		prompts.MustGet(prompts.Generation, "linkbank-header"),
		prompts.MustGet(prompts.Generation, "linkbank-placement-"+string(g.format)),
		syntaxNote,
	}
	lines = append(lines, linkLines(eligible)...)

	masking := g.tracker.SampleMasking(maskingSampleSize)
	if len(masking) > 0 {
		entries := make([]types.LinkEntry, 0, len(masking))
		for _, m := range masking {
			entries = append(entries, m.AsEntry())
		}
		lines = append(lines, "", "## Natural Reference Links", prompts.MustGet(prompts.Generation, "masking-header"), syntaxNote)
		lines = append(lines, linkLines(entries)...)
	}
	return strings.Join(lines, "\n") + "\n", masking
}

// linkLines lists entries with their anchor options. Entries without anchors are omitted.
func linkLines(entries []types.LinkEntry) []string {
	lines := make([]string, 0, len(entries))
	for _, l := range entries {
		if l.URL == "" || len(l.Anchors) == 0 {
			continue
		}
		quoted := make([]string, len(l.Anchors))
		for i, a := range l.Anchors {
			quoted[i] = `"` + a + `"`
		}
		lines = append(lines, fmt.Sprintf("- URL: %s (anchor options: %s)", l.URL, strings.Join(quoted, ", ")))
	}
	return lines
}
