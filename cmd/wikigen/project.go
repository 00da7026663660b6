package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/wiki-generator/internal/types"
)

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Create and inspect wiki projects",
	}
	cmd.AddCommand(newProjectCreateCmd(a), newProjectListCmd(a), newProjectShowCmd(a))
	return cmd
}

func newProjectCreateCmd(a *app) *cobra.Command {
	var (
		name     string
		platform string
		mw       types.MediaWikiCredentials
		cf       types.ConfluenceCredentials
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project folder with its config.json",
		Long: `Create a project for a MediaWiki-family wiki (--platform mediawiki, alias miraheze)
or a Confluence space (--platform confluence). Credentials are stored in plaintext.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			p := &types.Project{Name: name, Platform: types.Platform(platform)}
			if types.NormalizePlatform(platform) == types.PlatformConfluence {
				p.Confluence = &cf
			} else {
				p.MediaWiki = &mw
			}

			created, err := a.store.Create(p)
			if err != nil {
				return err
			}
			a.logger.Info("created project", "project", created.ID, "platform", string(created.Platform))
			_, _ = fmt.Fprintf(a.out, "Created project %s (%s) in %s\n", created.ID, created.Name, a.store.Dir(created.ID))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&name, "name", "n", "", "Project name")
	f.StringVar(&platform, "platform", string(types.PlatformMediaWiki), "Platform: mediawiki, miraheze or confluence")
	f.StringVar(&mw.WikiDomain, "wiki-domain", "", "MediaWiki domain, e.g. example.miraheze.org")
	f.StringVar(&mw.BotUsername, "bot-username", "", "MediaWiki bot username (User@BotName)")
	f.StringVar(&mw.BotPassword, "bot-password", "", "MediaWiki bot password")
	f.StringVar(&mw.APIPath, "api-path", types.DefaultAPIPath, "MediaWiki Action API path")
	f.StringVar(&cf.BaseURL, "base-url", "", "Confluence base URL, e.g. https://example.atlassian.net/wiki")
	f.StringVar(&cf.SpaceKey, "space-key", "", "Confluence space key")
	f.StringVar(&cf.UserEmail, "email", "", "Confluence account email")
	f.StringVar(&cf.APIToken, "api-token", "", "Confluence API token")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			projects, err := a.store.List()
			if err != nil {
				return err
			}
			a.printer().PrintProjects(projects)
			return nil
		},
	}
}

func newProjectShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT_ID",
		Short: "Print a project's config.json",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			p, err := a.store.Get(args[0])
			if err != nil {
				return fmt.Errorf("project %s: %w", args[0], err)
			}
			data, err := json.MarshalIndent(p, "", "  ")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.out, string(data))
			return nil
		},
	}
}
