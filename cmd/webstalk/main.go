package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/collector"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/config"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/engine"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/fetcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/limiter"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/matcher"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/processor"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/selector"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/store"
	"github.com/IshaanNene/ScrapeGoat-And-ArchEnemy/internal/types"
)

var (
	cfgFile  string
	verbose  bool
	threads  int
	depth    int
	retries  int
	saveDir  string
	useExcel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "webstalk",
		Short: "WebStalk — a concurrent web crawling engine",
		Long: `WebStalk crawls one or more seed URLs, extracting page titles and
outbound links via a declarative CSS selector schema, following discovered
links breadth-first until the frontier is exhausted.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [url...]",
		Short: "Crawl one or more seed URLs",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCrawl,
	}

	cmd.Flags().IntVarP(&threads, "threads", "n", 0, "worker pool size (0 = runtime.NumCPU())")
	cmd.Flags().IntVarP(&retries, "retries", "r", -1, "frontier-drain retries before stopping (-1 = config default)")
	cmd.Flags().StringVarP(&saveDir, "save-dir", "o", "", "directory to save downloaded files into (enables FileDownloader on binary content)")
	cmd.Flags().StringVar(&useExcel, "excel", "", "path to an .xlsx file to write extracted page titles and URLs into (an existing file is replaced)")
	cmd.Flags().IntVarP(&depth, "max-depth", "d", 0, "reserved for future depth cutoffs (unused: the engine itself has no depth limit, §1 Non-goals)")

	return cmd
}

func runCrawl(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, rawURL := range args {
		if err := config.ValidateURL(rawURL); err != nil {
			return fmt.Errorf("invalid URL %q: %w", rawURL, err)
		}
	}

	st, err := buildStore(cfg.Store)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer st.Close()

	downloader := fetcher.New(
		fetcher.WithUserAgents(cfg.Fetcher.UserAgents),
		fetcher.WithDefaultHeaders(cfg.Fetcher.DefaultHeaders),
	)
	defer downloader.Close()

	sites, err := buildSites(cfg.Sites)
	if err != nil {
		return fmt.Errorf("build sites: %w", err)
	}

	processors, closers, err := buildProcessors(cfg, logger)
	if err != nil {
		return fmt.Errorf("build processors: %w", err)
	}
	defer func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("collector close error", "error", err)
			}
		}
	}()

	opts := []engine.Option{
		engine.WithSites(sites),
		engine.WithLogger(logger),
		engine.WithQueueFactor(cfg.Engine.QueueFactor),
	}
	if cfg.Engine.Threads > 0 {
		opts = append(opts, engine.WithThreads(cfg.Engine.Threads))
	}
	if cfg.Engine.Retries >= 0 {
		opts = append(opts, engine.WithRetries(cfg.Engine.Retries))
	}

	eng := engine.New(downloader, st, processors, opts...)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		eng.Stop()
	}()

	logger.Info("starting crawl", "seeds", args, "threads", cfg.Engine.Threads, "store", cfg.Store.Backend)
	start := time.Now()

	if err := eng.Start(args...); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	elapsed := time.Since(start)
	stats, err := st.Statistics()
	if err != nil {
		return fmt.Errorf("read statistics: %w", err)
	}

	fmt.Printf("\ncrawl complete in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  requests: %d total, %d completed, %d failed\n", stats.All, stats.Completed, stats.Failed)
	return nil
}

// buildStore selects the Store backend named in cfg (§4.3).
func buildStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLStore(cfg.SQLitePath, cfg.SQLiteTable)
	case "redis":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
		defer cancel()
		return store.NewKVStore(ctx, &redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// buildSites turns the config's flat site list into types.Site values,
// attaching a token-bucket limiter wherever a rate is configured (§3, §4.1).
func buildSites(cfgs []config.SiteConfig) ([]*types.Site, error) {
	sites := make([]*types.Site, 0, len(cfgs))
	for _, c := range cfgs {
		opts := []types.SiteOption{
			types.WithSiteProxy(c.Proxy),
			types.WithSiteHeaders(c.Headers),
		}
		if c.Encoding != "" {
			opts = append(opts, types.WithSiteEncoding(c.Encoding))
		}
		if c.Timeout > 0 {
			opts = append(opts, types.WithSiteTimeout(c.Timeout))
		}
		if c.RateCapacity > 0 {
			opts = append(opts, types.WithSiteLimiter(limiter.New(c.RateInterval, c.RateCapacity)))
		}
		sites = append(sites, types.NewSite(c.Host, opts...))
	}
	return sites, nil
}

// pageResult is the schema bound against every crawled page: a page title
// plus every outbound <a href>, which become the engine's follow-up links.
type pageResult struct {
	Title string
	URL   string
}

func pageSchema() *selector.Schema {
	schema := selector.NewSchema(func() any { return &pageResult{} })
	schema.Field("title", selector.CSS("title", []selector.CSSOption{selector.Text()}), func(r any, v any) {
		if s, ok := v.(string); ok {
			r.(*pageResult).Title = s
		}
	})
	schema.Field("url", selector.URLSelector(nil), func(r any, v any) {
		if s, ok := v.(string); ok {
			r.(*pageResult).URL = s
		}
	})
	schema.AddLink(&selector.Link{Selector: selector.CSS("a", []selector.CSSOption{selector.Attr("href")})})
	return schema
}

// buildProcessors wires the sample crawler's single HTML extraction
// processor plus whichever collectors the config enables, and an optional
// FileDownloader for non-HTML content (§4.7).
func buildProcessors(cfg *config.Config, logger *slog.Logger) ([]engine.ProcessorBinding, []func() error, error) {
	var sinks []func(result any) error
	var closers []func() error

	if cfg.Collector.Log {
		sinks = append(sinks, collector.Logging(logger))
	}
	if cfg.Collector.ExcelPath != "" {
		xl, err := collector.NewExcel(cfg.Collector.ExcelPath, cfg.Collector.ExcelSheet, cfg.Collector.ExcelFlush, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open excel collector: %w", err)
		}
		sinks = append(sinks, xl.Collect)
		closers = append(closers, xl.Close)
	}
	if cfg.Collector.MongoURI != "" {
		m, err := collector.NewMongo(cfg.Collector.MongoURI, cfg.Collector.MongoDB, cfg.Collector.MongoColl, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo collector: %w", err)
		}
		sinks = append(sinks, m.Collect)
		closers = append(closers, m.Close)
	}

	fanout := collector.NewMultiCollector(logger, sinks...)
	bindings := []engine.ProcessorBinding{
		{Matcher: matcher.HTML, Processor: processor.Extractor(pageSchema(), fanout.Collect)},
	}

	if saveDir != "" {
		bindings = append(bindings, engine.ProcessorBinding{
			Matcher:   matcher.Not(matcher.HTML),
			Processor: processor.FileDownloader(saveDir, "", ""),
		})
	}

	return bindings, closers, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("webstalk %s\n", config.Version)
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Engine:\n  Threads: %d\n  QueueFactor: %d\n  Retries: %d\n",
				cfg.Engine.Threads, cfg.Engine.QueueFactor, cfg.Engine.Retries)
			fmt.Printf("Fetcher:\n  Timeout: %s\n  UserAgents: %d configured\n",
				cfg.Fetcher.Timeout, len(cfg.Fetcher.UserAgents))
			fmt.Printf("Store:\n  Backend: %s\n", cfg.Store.Backend)
			fmt.Printf("Sites: %d configured\n", len(cfg.Sites))
			return nil
		},
	}
}

func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func applyCLIOverrides(cfg *config.Config) {
	if threads > 0 {
		cfg.Engine.Threads = threads
	}
	if retries >= 0 {
		cfg.Engine.Retries = retries
	}
	if useExcel != "" {
		cfg.Collector.ExcelPath = useExcel
	}
}
