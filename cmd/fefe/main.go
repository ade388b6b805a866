package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/pbaille/fefe/internal/analyzer"
	"github.com/pbaille/fefe/internal/api"
	"github.com/pbaille/fefe/internal/config"
	"github.com/pbaille/fefe/internal/fetcher"
	"github.com/pbaille/fefe/internal/ingest"
	"github.com/pbaille/fefe/internal/keywords"
	"github.com/pbaille/fefe/internal/logging"
	"github.com/pbaille/fefe/internal/store"
	"github.com/pbaille/fefe/internal/tagging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	dataDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "fefe",
		Short:         "Crawl, tag and analyze the fefe blog archive",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "fefe.yml", "config file (optional)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides config)")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(serveCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// app carries what every command needs
type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *store.Store
	close  func() error
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("run_id", uuid.NewString()))

	s, closeFn, err := getStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Load(); err != nil {
		_ = closeFn()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, store: s, close: closeFn}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		a.logger.Warn("close store", zap.Error(err))
	}
	_ = a.logger.Sync()
}

func getStore(cfg config.Config, logger *zap.Logger) (*store.Store, func() error, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data dir: %w", err)
	}

	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.NewSQLite(cfg.DatabasePath())
		if err != nil {
			return nil, nil, err
		}
		return store.New(db, cfg.ExportPath(), logger), db.Close, nil
	default:
		backend := store.NewJSONFile(cfg.SnapshotPath())
		return store.New(backend, cfg.ExportPath(), logger), func() error { return nil }, nil
	}
}

func loadEngine(cfg config.Config, logger *zap.Logger) (*tagging.Engine, error) {
	rules := tagging.DefaultRules()
	if cfg.RulesFile != "" {
		f, err := os.Open(cfg.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("open rules: %w", err)
		}
		defer f.Close()
		if rules, err = tagging.LoadRules(f); err != nil {
			return nil, err
		}
	}
	return tagging.NewEngine(rules, logger), nil
}

// parseSince parses a YYYY-MM start month
func parseSince(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --since %q, want YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}

func crawl(ctx context.Context, a *app, since string) error {
	year, month, err := parseSince(since)
	if err != nil {
		return err
	}

	renderer, err := fetcher.NewRenderer(a.cfg.Renderer)
	if err != nil {
		return err
	}

	f, err := fetcher.New(fetcher.Options{
		BaseURL:   a.cfg.BaseURL,
		UserAgent: a.cfg.UserAgent,
		Timeout:   a.cfg.HTTPTimeout,
		Renderer:  renderer,
		Location:  a.cfg.Location(),
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}

	c := ingest.New(a.store, f,
		ingest.WithPersistEachMonth(a.cfg.PersistEachMonth),
		ingest.WithLocation(a.cfg.Location()),
		ingest.WithLogger(a.logger),
	)
	res, err := c.Run(ctx, year, month, time.Now().In(a.cfg.Location()))
	if err != nil {
		return err
	}

	a.logger.Info("crawl finished",
		zap.Int("probed", res.Probed),
		zap.Int("fetched", res.Fetched),
		zap.Int("skipped", res.Skipped),
		zap.Int("articles", res.Articles),
	)
	return nil
}

func tagAll(a *app) (*tagging.Engine, error) {
	engine, err := loadEngine(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}

	untagged := engine.Apply(a.store.Corpus())
	a.logger.Info("tagged corpus",
		zap.Int("articles", a.store.Corpus().Len()),
		zap.Int("untagged", untagged),
		zap.Int("rules", engine.Rules().Len()),
		zap.Int("triggers", engine.TriggerCount()),
	)
	return engine, nil
}

func newAnalyzer(a *app, engine *tagging.Engine) (*analyzer.Analyzer, error) {
	extractor, err := keywords.New(a.cfg.Language)
	if err != nil {
		return nil, err
	}
	return analyzer.New(engine.Rules().Names(), extractor), nil
}

func printStats(a *app, engine *tagging.Engine) error {
	an, err := newAnalyzer(a, engine)
	if err != nil {
		return err
	}

	report := an.Report(a.store.Corpus().Articles())

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(report)
}

func crawlCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Fetch missing archive months up to now",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			return crawl(cmd.Context(), a, since)
		},
	}

	cmd.Flags().StringVar(&since, "since", "2018-01", "first month to crawl (YYYY-MM)")
	return cmd
}

func tagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag",
		Short: "Classify every article with the rule table",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := tagAll(a); err != nil {
				return err
			}
			return a.store.Persist()
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print tag coverage and untagged word frequencies as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := tagAll(a)
			if err != nil {
				return err
			}
			return printStats(a, engine)
		},
	}
}

func exportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the prompt/completion training file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if out == "" {
				out = a.cfg.ExportPath()
			}
			if err := a.store.Export(out); err != nil {
				return err
			}
			fmt.Printf("Exported %d articles to %s\n", a.store.Corpus().Len(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "output path (default <data-dir>/data.jsonl)")
	return cmd
}

func listCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			timeline := a.store.Corpus().Timeline()
			if len(timeline) == 0 {
				fmt.Println("No articles yet. Use 'fefe crawl' to fetch some.")
				return nil
			}

			start := 0
			if limit > 0 && len(timeline) > limit {
				start = len(timeline) - limit
			}
			for _, art := range timeline[start:] {
				tags := "-"
				if art.Classified() {
					tags = art.Tags.String()
				}
				fmt.Printf("%s  %-24s  %s\n",
					art.Published().In(a.cfg.Location()).Format("2006-01-02"),
					truncate(tags, 24),
					truncate(art.Body, 60),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of articles to show")
	return cmd
}

func runCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawl, tag, print stats and persist",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := crawl(cmd.Context(), a, since); err != nil {
				return err
			}
			engine, err := tagAll(a)
			if err != nil {
				return err
			}
			if err := printStats(a, engine); err != nil {
				return err
			}
			return a.store.Persist()
		},
	}

	cmd.Flags().StringVar(&since, "since", "2018-01", "first month to crawl (YYYY-MM)")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tagged corpus read-only over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := tagAll(a)
			if err != nil {
				return err
			}
			an, err := newAnalyzer(a, engine)
			if err != nil {
				return err
			}

			server := api.New(a.store.Corpus(), an, addr, a.logger)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}

func truncate(s string, n int) string {
	// Replace newlines with spaces for display
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
