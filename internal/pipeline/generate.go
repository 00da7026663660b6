package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/generation"
	"github.com/jonathan/wiki-generator/internal/linkbank"
	"github.com/jonathan/wiki-generator/internal/llm"
	"github.com/jonathan/wiki-generator/internal/observability"
	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/types"
)

// GenerateOptions holds configuration for one generation batch
type GenerateOptions struct {
	ProjectID string
	// Pages are structure titles; generated or edited from local files.
	Pages []string
	// LivePages are wiki titles fetched from the platform. Only used in edit modes.
	LivePages []string
	Mode      types.EditMode
	Client    llm.Client
	// NewAdapter builds the adapter for live pages. Defaults to DefaultAdapterFactory.
	NewAdapter     AdapterFactory
	TrackerOptions []linkbank.Option
	Progress       *Progress
	Logger         *slog.Logger
	Ledger         db.Ledger
	Metrics        *observability.Metrics
}

// TotalPages is the number of pages a batch will process: live pages only
// count in edit modes.
func TotalPages(pages, livePages []string, mode types.EditMode) int {
	if mode.IsEdit() {
		return len(pages) + len(livePages)
	}
	return len(pages)
}

// RunGeneration generates or edits the selected pages sequentially and writes
// each result to the project's generated directory. Per-page failures are
// recorded and the batch continues; an error is returned only when setup fails.
func RunGeneration(ctx context.Context, store *project.Store, opts GenerateOptions) (*types.BatchResult, error) {
	mode := types.ParseEditMode(string(opts.Mode))
	logger := loggerOr(opts.Logger).With("project", opts.ProjectID, "mode", string(mode))
	progress := opts.Progress
	if progress == nil {
		progress = NewProgress(db.KindGenerate, TotalPages(opts.Pages, opts.LivePages, mode), nil)
	}
	defer opts.Metrics.BatchStarted(db.KindGenerate)()

	run := startRun(ctx, opts.Ledger, logger, opts.ProjectID, db.KindGenerate, string(mode),
		TotalPages(opts.Pages, opts.LivePages, mode))

	proj, gen, err := setupGenerator(store, opts, logger)
	if err != nil {
		logger.Error("generation setup failed", "error", err)
		progress.Abort(err)
		run.finish(ctx, progress.Result(), err)
		return progress.Result(), err
	}
	logger.Info("starting generation", "pages", len(opts.Pages), "live_pages", len(opts.LivePages),
		"links", gen.Tracker().Summary())

	record := func(title string, err error) {
		if err != nil {
			progress.Fail(title, err)
		} else {
			progress.Succeed(title)
		}
		run.page(ctx, title, err)
		opts.Metrics.PageProcessed(string(mode), pageStatus(err))
	}

	for _, title := range opts.Pages {
		progress.Begin(StatusGenerating, title)
		record(title, generateLocal(ctx, store, gen, proj.ID, title, mode, logger))
	}

	if len(opts.LivePages) > 0 && mode.IsEdit() {
		newAdapter := opts.NewAdapter
		if newAdapter == nil {
			newAdapter = DefaultAdapterFactory(logger)
		}
		adapter, loginErr := loginLive(ctx, newAdapter, proj, logger)

		for _, title := range opts.LivePages {
			progress.Begin(StatusGenerating, title)
			if loginErr != nil {
				logger.Warn("skipping live page: not logged in", "page", title)
				record(title, loginErr)
				continue
			}
			record(title, editLive(ctx, store, gen, adapter, proj.ID, title, mode, logger))
		}
	} else if len(opts.LivePages) > 0 {
		logger.Info("ignoring live pages outside edit modes", "live_pages", len(opts.LivePages))
	}

	progress.Complete()
	result := progress.Result()
	run.finish(ctx, result, nil)
	logger.Info("generation complete", "success", len(result.Success), "failed", len(result.Failed),
		"links", gen.Tracker().Summary())
	return result, nil
}

func setupGenerator(store *project.Store, opts GenerateOptions, logger *slog.Logger) (*types.Project, *generation.Generator, error) {
	proj, err := store.Get(opts.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	structure, err := store.Structure(proj.ID)
	if err != nil {
		return nil, nil, err
	}
	if structure == nil {
		return nil, nil, ErrNoStructure
	}
	links, err := store.LinkBank(proj.ID)
	if err != nil {
		return nil, nil, err
	}
	if len(links.Links) == 0 {
		logger.Warn("no links found in link bank")
	}
	masking, err := store.MaskingBank(proj.ID)
	if err != nil {
		return nil, nil, err
	}

	tracker := linkbank.New(opts.TrackerOptions...)
	tracker.Load(links.Links)
	tracker.LoadMasking(masking.MaskingLinks)

	client := opts.Client
	if client != nil {
		client = opts.Metrics.InstrumentClient(client)
	}
	gen, err := generation.New(client, tracker, structure, generation.Config{
		Format:   proj.Platform.Format(),
		SpaceKey: proj.SpaceKey(),
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return proj, gen, nil
}

func generateLocal(ctx context.Context, store *project.Store, gen *generation.Generator, projectID, title string, mode types.EditMode, logger *slog.Logger) error {
	page, ok := gen.Page(title)
	if !ok {
		logger.Warn("selected page not in structure", "page", title)
		return fmt.Errorf("%w: %q", ErrUnknownPage, title)
	}

	var out *types.GeneratedPage
	if mode.IsEdit() {
		existing, found, err := store.ReadGenerated(projectID, page.Title, gen.Format())
		if err != nil {
			return err
		}
		if !found {
			logger.Warn("skipping page: no existing content for edit pass", "page", page.Title)
			return ErrNoExistingContent
		}
		content, err := gen.AddLinksToExisting(ctx, existing, page, mode)
		if err != nil {
			return err
		}
		out = &types.GeneratedPage{Title: page.Title, Content: content, Format: gen.Format(), GeneratedAt: time.Now()}
	} else {
		var err error
		if out, err = gen.GeneratePage(ctx, page); err != nil {
			logger.Error("page generation failed", "page", page.Title, "error", err)
			return err
		}
	}

	_, err := store.WritePage(projectID, out)
	return err
}

func loginLive(ctx context.Context, newAdapter AdapterFactory, proj *types.Project, logger *slog.Logger) (platform.Adapter, error) {
	adapter, err := newAdapter(proj)
	if err != nil {
		return nil, err
	}
	ok, err := adapter.Login(ctx)
	if err != nil {
		logger.Warn("login for live pages failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	if !ok {
		logger.Warn("login for live pages rejected")
		return nil, ErrLoginFailed
	}
	return adapter, nil
}

func editLive(ctx context.Context, store *project.Store, gen *generation.Generator, adapter platform.Adapter, projectID, title string, mode types.EditMode, logger *slog.Logger) error {
	existing, found, err := adapter.GetPage(ctx, title)
	if err != nil {
		return err
	}
	if !found || existing == "" {
		logger.Warn("skipping live page: no content found on wiki", "page", title)
		return ErrNoExistingContent
	}

	page := types.PageSpec{Title: title}
	content, err := gen.AddLinksToExisting(ctx, existing, page, mode)
	if err != nil {
		return err
	}
	_, err = store.WritePage(projectID, &types.GeneratedPage{
		Title: title, Content: content, Format: gen.Format(), GeneratedAt: time.Now(),
	})
	return err
}
