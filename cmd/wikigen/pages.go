package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List generated pages of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := a.store.Get(args[0]); err != nil {
				return fmt.Errorf("project %s: %w", args[0], err)
			}
			pages, err := a.store.ListGenerated(args[0])
			if err != nil {
				return err
			}
			if len(pages) == 0 {
				_, _ = fmt.Fprintln(a.out, "No generated pages")
				return nil
			}
			for _, p := range pages {
				_, _ = fmt.Fprintf(a.out, "%-40s %-40s %8d bytes\n", p.FileName, p.Title, p.Size)
			}
			return nil
		},
	}
}

func newLivePagesCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "live-pages PROJECT_ID",
		Short: "List page titles that exist on the wiki",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
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
			titles, err := adapter.ListPages(ctx, limit)
			if err != nil {
				return err
			}
			for _, t := range titles {
				_, _ = fmt.Fprintln(a.out, t)
			}
			a.logger.Info("listed live pages", "project", p.ID, "count", len(titles))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 500, "Maximum number of titles")
	return cmd
}

func newTestConnectionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection PROJECT_ID",
		Short: "Check API access, login and edit rights for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.store.Get(args[0])
			if err != nil {
				return fmt.Errorf("project %s: %w", args[0], err)
			}
			adapter, err := a.newAdapter(p)
			if err != nil {
				return err
			}
			res := adapter.TestConnection(cmd.Context())
			a.printer().PrintConnection(adapter.PlatformName(), res)
			if !res.Success {
				return fmt.Errorf("connection test failed")
			}
			return nil
		},
	}
}

func newReviewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review PROJECT_ID",
		Short: "Show generated pages and where link bank URLs were placed",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if _, err := a.store.Get(args[0]); err != nil {
				return fmt.Errorf("project %s: %w", args[0], err)
			}
			review, err := a.store.Review(args[0], nil, true)
			if err != nil {
				return err
			}
			if len(review.Pages) == 0 {
				_, _ = fmt.Fprintln(a.out, "No generated pages")
			}
			for _, page := range review.Pages {
				_, _ = fmt.Fprintf(a.out, "%-40s %8d bytes  %s\n", page.FileName, page.Size, page.ModifiedAt.Format("2006-01-02 15:04"))
			}
			a.printer().PrintLinkSummary(review.LinkSummary)
			return nil
		},
	}
}
