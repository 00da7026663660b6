package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/types"
)

// batchFlags are the page selection flags shared by generate and edit.
type batchFlags struct {
	pages     []string
	livePages []string
	all       bool
}

func (b *batchFlags) register(cmd *cobra.Command, withLive bool) {
	cmd.Flags().StringArrayVarP(&b.pages, "page", "p", nil, "Page title from pages.yaml (repeatable)")
	cmd.Flags().BoolVar(&b.all, "all", false, "Select every page in pages.yaml")
	if withLive {
		cmd.Flags().StringArrayVar(&b.livePages, "live-page", nil, "Title of a page that exists only on the wiki (repeatable)")
	}
}

func newGenerateCmd(a *app) *cobra.Command {
	var sel batchFlags
	cmd := &cobra.Command{
		Use:   "generate PROJECT_ID",
		Short: "Generate articles for the selected pages",
		Long: `Generate each selected page from scratch with the LLM, weaving in eligible link bank
entries, and write the results to the project's generated/ directory.

Pages are processed one at a time; a failed page is reported and the batch continues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGeneration(cmd.Context(), args[0], sel, types.ModeFull)
		},
	}
	sel.register(cmd, false)
	return cmd
}

func newEditCmd(a *app) *cobra.Command {
	var (
		sel  batchFlags
		mode string
	)
	cmd := &cobra.Command{
		Use:   "edit PROJECT_ID",
		Short: "Weave links into existing pages",
		Long: `Run an edit pass over existing content. --mode add_masking inserts one or two masking
links per page; --mode add_operator inserts every eligible primary link. Local pages are read
from generated/, live pages (--live-page) are fetched from the wiki.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := types.ParseEditMode(mode)
			if !m.IsEdit() {
				return fmt.Errorf("--mode must be %s or %s", types.ModeAddMasking, types.ModeAddOperator)
			}
			return a.runGeneration(cmd.Context(), args[0], sel, m)
		},
	}
	sel.register(cmd, true)
	cmd.Flags().StringVar(&mode, "mode", string(types.ModeAddMasking), "Edit mode: add_masking or add_operator")
	return cmd
}

func (a *app) runGeneration(ctx context.Context, projectID string, sel batchFlags, mode types.EditMode) error {
	pages := sel.pages
	if sel.all {
		cfg, err := a.store.Structure(projectID)
		if err != nil {
			return err
		}
		if cfg == nil {
			return fmt.Errorf("project %s has no pages.yaml", projectID)
		}
		pages = make([]string, 0, len(cfg.Pages))
		for _, p := range cfg.Pages {
			pages = append(pages, p.Title)
		}
	}
	total := pipeline.TotalPages(pages, sel.livePages, mode)
	if total == 0 {
		return fmt.Errorf("no pages selected: pass --page or --all")
	}

	client, err := a.newClient(ctx, &a.cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	ledger, closeLedger, err := a.openLedger(ctx)
	if err != nil {
		return err
	}
	defer closeLedger()

	result, err := pipeline.RunGeneration(ctx, a.store, pipeline.GenerateOptions{
		ProjectID:  projectID,
		Pages:      pages,
		LivePages:  sel.livePages,
		Mode:       mode,
		Client:     client,
		NewAdapter: a.newAdapter,
		Progress:   pipeline.NewProgress(db.KindGenerate, total, a.progressLine()),
		Logger:     a.logger,
		Ledger:     ledger,
	})
	if err != nil {
		return err
	}

	title := "GENERATION"
	if mode.IsEdit() {
		title = "EDIT (" + string(mode) + ")"
	}
	a.printer().PrintBatchResult(title, result)
	if len(result.Success) > 0 {
		_, _ = fmt.Fprintf(a.out, "Output: %s\n", a.store.GeneratedDir(projectID))
	}
	return batchErr(result)
}
