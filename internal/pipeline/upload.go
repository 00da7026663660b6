package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/observability"
	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/types"
)

// DefaultUploadDelay spaces consecutive uploads.
const DefaultUploadDelay = 2 * time.Second

// UploadOptions holds configuration for one upload batch
type UploadOptions struct {
	ProjectID string
	// Pages are generated file names. Empty uploads every file matching the
	// adapter's content extension.
	Pages []string
	// Adapter overrides NewAdapter when set.
	Adapter    platform.Adapter
	NewAdapter AdapterFactory
	// Delay between uploads. Zero disables pacing.
	Delay    time.Duration
	Summary  string
	Progress *Progress
	Logger   *slog.Logger
	Ledger   db.Ledger
	Metrics  *observability.Metrics
}

// RunUpload logs in once and uploads the selected generated files. Results are
// keyed by file name. A failed login fails the whole batch.
func RunUpload(ctx context.Context, store *project.Store, opts UploadOptions) (*types.BatchResult, error) {
	logger := loggerOr(opts.Logger).With("project", opts.ProjectID)
	progress := opts.Progress
	if progress == nil {
		progress = NewProgress(db.KindUpload, len(opts.Pages), nil)
	}
	defer opts.Metrics.BatchStarted(db.KindUpload)()

	run := startRun(ctx, opts.Ledger, logger, opts.ProjectID, db.KindUpload, "", len(opts.Pages))
	abort := func(err error) (*types.BatchResult, error) {
		logger.Error("upload aborted", "error", err)
		progress.Abort(err)
		run.finish(ctx, progress.Result(), err)
		return progress.Result(), err
	}

	proj, err := store.Get(opts.ProjectID)
	if err != nil {
		return abort(err)
	}
	adapter := opts.Adapter
	if adapter == nil {
		newAdapter := opts.NewAdapter
		if newAdapter == nil {
			newAdapter = DefaultAdapterFactory(logger)
		}
		if adapter, err = newAdapter(proj); err != nil {
			return abort(err)
		}
	}

	ok, err := adapter.Login(ctx)
	if err != nil {
		return abort(fmt.Errorf("%w: %v", ErrLoginFailed, err))
	}
	if !ok {
		return abort(ErrLoginFailed)
	}

	files := opts.Pages
	if len(files) == 0 {
		generated, err := store.ListGenerated(proj.ID)
		if err != nil {
			return abort(err)
		}
		for _, f := range generated {
			if strings.HasSuffix(f.FileName, adapter.ContentExtension()) {
				files = append(files, f.FileName)
			}
		}
		progress.SetTotal(len(files))
	}
	logger.Info("starting upload", "platform", adapter.PlatformName(), "files", len(files))

	pacer := platform.NewPacer(opts.Delay)
	for _, name := range files {
		title := types.TitleFromFileName(name)
		progress.Begin(StatusUploading, title)

		if err := pacer.Wait(ctx); err != nil {
			return abort(err)
		}

		err := uploadFile(ctx, store, adapter, proj.ID, name, title, opts.Summary)
		if err != nil {
			logger.Warn("upload failed", "file", name, "error", err)
			progress.Fail(name, err)
		} else {
			logger.Info("uploaded page", "file", name, "title", title)
			progress.Succeed(name)
		}
		run.page(ctx, name, err)
		opts.Metrics.PageUploaded(adapter.PlatformName(), pageStatus(err))
	}

	progress.Complete()
	result := progress.Result()
	run.finish(ctx, result, nil)
	logger.Info("upload complete", "success", len(result.Success), "failed", len(result.Failed))
	return result, nil
}

func uploadFile(ctx context.Context, store *project.Store, adapter platform.Adapter, projectID, name, title, summary string) error {
	content, err := store.ReadPage(projectID, name)
	if err != nil {
		return err
	}
	ok, err := adapter.UploadPage(ctx, title, content, summary)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("upload rejected")
	}
	return nil
}
