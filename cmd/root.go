// Package cmd implements the keyprice command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"sjsage522/keypriceworker/config"
	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/internal/crawler"
	"sjsage522/keypriceworker/logger"
	"sjsage522/keypriceworker/pkg/errors"
	"sjsage522/keypriceworker/services/cache"
	"sjsage522/keypriceworker/services/exporter"
	"sjsage522/keypriceworker/services/publisher"
	"sjsage522/keypriceworker/services/store"
	"sjsage522/keypriceworker/services/worker"
)

// options holds the command line flags
type options struct {
	top50     bool
	key       string
	outputDir string
	interval  time.Duration
}

// NewRootCommand creates the keyprice command
func NewRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "keyprice",
		Short: "Scrape game key prices into CSV tables",
		Long: `keyprice builds price tables from game key comparison sites.

  keyprice --top50            ranked list of the most clicked games on goclecd
  keyprice --key "<game>"     every merchant offer for one game on allkeyshop`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.top50, "top50", false, "build the ranked top-click table")
	cmd.Flags().StringVar(&opts.key, "key", "", "build the offers table of a game")
	cmd.Flags().StringVar(&opts.outputDir, "output-dir", "", "directory CSV files are written to (overrides OUTPUT_DIR)")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "repeat the build every interval until interrupted (overrides CRAWL_INTERVAL_SECONDS)")

	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return NewRootCommand().ExecuteContext(ctx)
}

// ExitCode maps the error returned by Execute to a process exit status.
// Invalid configuration exits with 2, any other failure with 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.IsType(err, errors.ErrorTypeConfiguration):
		return 2
	default:
		return 1
	}
}

func (o *options) validate() error {
	switch {
	case o.top50 && o.key != "":
		return fmt.Errorf("--top50 and --key are mutually exclusive")
	case !o.top50 && o.key == "":
		return fmt.Errorf("one of --top50 or --key \"<game name>\" is required")
	}
	return nil
}

func run(ctx context.Context, cmd *cobra.Command, opts *options) error {
	log := logger.ForWorker()

	cfg := config.LoadConfig()
	if opts.outputDir != "" {
		cfg.OutputDir = opts.outputDir
	}
	if cmd.Flags().Changed("interval") {
		cfg.CrawlInterval = opts.interval
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	selectors, err := config.LoadSelectors(cfg.SelectorsPath)
	if err != nil {
		return errors.NewConfiguration("invalid selectors", err)
	}

	services := initializeServices(ctx, cfg)
	defer services.Cleanup()

	fetcher := crawler.NewHTTPFetcher(
		helpers.NewClient(cfg.FetchTimeout),
		cfg.FetchMaxRetries,
		cfg.FetchRetryDelay,
		services.Cache,
		cfg.RateLimitBlock,
	)
	if cfg.FetchRate > 0 {
		fetcher.Limiter = rate.NewLimiter(rate.Limit(cfg.FetchRate), 1)
	}

	var job worker.Job
	if opts.top50 {
		job = worker.TopJob(crawler.NewGoclecdBuilder(cfg.GoclecdURL, selectors.Goclecd, fetcher))
	} else {
		job = worker.GameJob(crawler.NewAllKeyShopBuilder(cfg.AllKeyShopSearchURL, selectors.AllKeyShop, fetcher, services.Cache), opts.key)
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("pipeline", job.Pipeline).
		Dur("crawl_interval", cfg.CrawlInterval).
		Msg("Starting keyprice worker")

	w := worker.NewWorker(
		ctx,
		[]worker.Job{job},
		exporter.NewCSVExporter(cfg.OutputDir),
		services.Publisher,
		services.Store,
		cfg.CrawlInterval,
	)
	return w.Start()
}

// Services holds the optional backing services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Store     worker.Store

	closers []func() error
}

// Cleanup closes every opened service
func (s *Services) Cleanup() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			logger.Warn("Failed to close service: %v", err)
		}
	}
}

// initializeServices connects the configured services. A service that is
// not configured or not reachable stays nil and the worker runs without it.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{}

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
		if err := cacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unavailable, running without cache: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = cacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s unavailable, running without publisher: %v", cfg.RedisAddr, err)
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			services.closers = append(services.closers, redisPublisher.Close)
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	if cfg.DBPath != "" {
		snapshots, err := store.Open(cfg.DBPath)
		if err != nil {
			logger.Warn("Snapshot store at %s unavailable: %v", cfg.DBPath, err)
		} else {
			services.Store = snapshots
			services.closers = append(services.closers, snapshots.Close)
			logger.Info("Opened snapshot store at %s", cfg.DBPath)
		}
	}

	return services
}
