package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/platform"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		files   []string
		dir     string
		summary string
		delay   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "upload PROJECT_ID",
		Short: "Publish generated pages to the project's wiki",
		Long: `Upload generated files to the wiki, one at a time with a fixed delay between edits.
Without --file every generated file for the platform is uploaded. --dir uploads the content
files under an arbitrary directory instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !cmd.Flags().Changed("delay") {
				delay = time.Duration(a.cfg.UploadDelay)
			}

			if dir != "" {
				p, err := a.store.Get(args[0])
				if err != nil {
					return fmt.Errorf("project %s: %w", args[0], err)
				}
				adapter, err := a.newAdapter(p)
				if err != nil {
					return err
				}
				if ok, err := adapter.Login(ctx); err != nil || !ok {
					return loginFailed(err)
				}
				result, err := platform.UploadDirectory(ctx, adapter, dir, delay, func(current, total int, title string) {
					_, _ = fmt.Fprintf(a.out, "[%d/%d] uploading %s\n", current, total, title)
				})
				if err != nil {
					return err
				}
				a.printer().PrintBatchResult("UPLOAD", result)
				return batchErr(result)
			}

			ledger, closeLedger, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeLedger()

			result, err := pipeline.RunUpload(ctx, a.store, pipeline.UploadOptions{
				ProjectID:  args[0],
				Pages:      files,
				NewAdapter: a.newAdapter,
				Delay:      delay,
				Summary:    summary,
				Progress:   pipeline.NewProgress(db.KindUpload, len(files), a.progressLine()),
				Logger:     a.logger,
				Ledger:     ledger,
			})
			if err != nil {
				return err
			}
			a.printer().PrintBatchResult("UPLOAD", result)
			return batchErr(result)
		},
	}

	f := cmd.Flags()
	f.StringArrayVarP(&files, "file", "f", nil, "Generated file name to upload, e.g. Bet_Stop.wiki (repeatable)")
	f.StringVar(&dir, "dir", "", "Upload every content file under this directory instead")
	f.StringVar(&summary, "summary", "", "Edit summary recorded on the wiki")
	f.DurationVar(&delay, "delay", pipeline.DefaultUploadDelay, "Delay between uploads")
	cmd.MarkFlagsMutuallyExclusive("file", "dir")
	return cmd
}
