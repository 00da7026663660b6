package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/wiki-generator/internal/config"
	"github.com/jonathan/wiki-generator/internal/db"
	"github.com/jonathan/wiki-generator/internal/llm"
	"github.com/jonathan/wiki-generator/internal/observability"
	"github.com/jonathan/wiki-generator/internal/pipeline"
	"github.com/jonathan/wiki-generator/internal/platform"
	"github.com/jonathan/wiki-generator/internal/project"
	"github.com/jonathan/wiki-generator/internal/types"
)

// ClientFactory creates the model client from the resolved configuration.
type ClientFactory func(ctx context.Context, cfg *config.Config) (llm.Client, error)

// app is the state shared by every subcommand once the root pre-run has
// resolved configuration. Tests fill newClient and newAdapter with fakes.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  *project.Store
	out    io.Writer

	newClient  ClientFactory
	newAdapter pipeline.AdapterFactory

	// flag values
	configPath  string
	projectsDir string
	provider    string
	model       string
	apiKey      string
	databaseURL string
	verbose     bool
	logJSON     bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "wikigen",
		Short:         "Generate wiki articles with an LLM and publish them",
		Long:          "wikigen generates wiki articles from a page structure and link bank, then publishes them to MediaWiki-family wikis or Confluence.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	f.StringVar(&a.projectsDir, "projects-dir", "", "Directory holding project folders (defaults to WIKIGEN_PROJECTS_DIR or ./projects)")
	f.StringVar(&a.provider, "provider", "", "LLM provider: gemini or openai (defaults to WIKIGEN_PROVIDER or gemini)")
	f.StringVar(&a.model, "model", "", "Model name used for every tier")
	f.StringVar(&a.apiKey, "api-key", "", "Provider API key (defaults to GEMINI_API_KEY or OPENAI_API_KEY)")
	f.StringVar(&a.databaseURL, "db-url", "", "Run history database: postgres:// URL or SQLite path (defaults to DATABASE_URL)")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Print detailed debug information")
	f.BoolVar(&a.logJSON, "log-json", false, "Write logs as JSON lines")

	root.AddCommand(
		newProjectCmd(a),
		newGenerateCmd(a),
		newEditCmd(a),
		newUploadCmd(a),
		newListCmd(a),
		newLivePagesCmd(a),
		newTestConnectionCmd(a),
		newReviewCmd(a),
		newServeCmd(a),
	)
	return root
}

// init loads the config file, applies flag overrides and fills defaults.
func (a *app) init(cmd *cobra.Command) error {
	var cfg config.Config
	if a.configPath != "" {
		loaded, err := config.LoadConfig(a.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("projects-dir") {
		cfg.ProjectsDir = a.projectsDir
	}
	if flags.Changed("provider") {
		cfg.Provider = a.provider
	}
	if flags.Changed("model") {
		cfg.Model = a.model
	}
	if flags.Changed("api-key") {
		cfg.APIKey = a.apiKey
	}
	if flags.Changed("db-url") {
		cfg.DatabaseURL = a.databaseURL
	}
	if flags.Changed("verbose") {
		cfg.Verbose = a.verbose
	}
	if flags.Changed("log-json") {
		cfg.LogJSON = a.logJSON
	}

	// The env API key depends on the provider, which flags may have changed.
	defaults := config.Defaults()
	defaults.APIKey = ""
	cfg = cfg.MergeWithDefaults(defaults)
	if cfg.APIKey == "" {
		cfg.APIKey = config.APIKeyFromEnv(cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	a.out = cmd.OutOrStdout()
	a.logger = observability.NewLogger(cmd.ErrOrStderr(), observability.Level(cfg.Verbose), cfg.LogJSON)
	slog.SetDefault(a.logger)
	a.store = project.NewStore(cfg.ProjectsDir)

	if a.newClient == nil {
		a.newClient = defaultClient
	}
	if a.newAdapter == nil {
		a.newAdapter = func(p *types.Project) (platform.Adapter, error) {
			return platform.New(p, platform.Options{Logger: a.logger, MaxRetries: a.cfg.MaxRetries})
		}
	}

	a.logger.Debug("configuration resolved", "projects_dir", cfg.ProjectsDir, "provider", cfg.Provider,
		"model", cfg.Model, "database", cfg.DatabaseURL != "")
	return nil
}

func defaultClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("an API key is required: set GEMINI_API_KEY or OPENAI_API_KEY, or pass --api-key")
	}
	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}
	return llm.NewClient(ctx, llmCfg, cfg.APIKey)
}

// openLedger opens the run history when a database is configured. The
// returned close func is always safe to call.
func (a *app) openLedger(ctx context.Context) (db.Ledger, func(), error) {
	if a.cfg.DatabaseURL == "" {
		return nil, func() {}, nil
	}
	ledger, err := db.Open(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to open run history: %w", err)
	}
	return ledger, func() {
		if err := ledger.Close(); err != nil {
			a.logger.Warn("failed to close run history", "error", err)
		}
	}, nil
}

func (a *app) printer() *observability.Printer {
	return observability.NewPrinter(a.out)
}

// progressLine prints one line as each page starts.
func (a *app) progressLine() pipeline.ProgressCallback {
	return func(ev pipeline.ProgressEvent) {
		s := ev.Snapshot
		if s.CurrentPage == "" || !strings.HasPrefix(ev.Message, "processing ") {
			return
		}
		_, _ = fmt.Fprintf(a.out, "[%d/%d] %s %s\n", s.Completed+1, s.Total, s.Status, s.CurrentPage)
	}
}

func loginFailed(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", pipeline.ErrLoginFailed, err)
	}
	return pipeline.ErrLoginFailed
}

// errBatchIncomplete makes a batch with failed pages exit non-zero after the report is printed.
var errBatchIncomplete = errors.New("batch incomplete")

func batchErr(result *types.BatchResult) error {
	if result == nil || len(result.Failed) == 0 {
		return nil
	}
	total := len(result.Success) + len(result.Failed)
	return fmt.Errorf("%w: %d of %d pages failed", errBatchIncomplete, len(result.Failed), total)
}
