// Command gnssrt drives the product acquisition and processing pipeline.
//
// Exit codes: 0 success, 1 operational error, 2 configuration error,
// 3 mandatory products still missing, 4 the processing engine failed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/georgisalene/gnss-rt/internal/config"
	"github.com/georgisalene/gnss-rt/internal/database"
	"github.com/georgisalene/gnss-rt/internal/entity"
	"github.com/georgisalene/gnss-rt/internal/observability"
	"github.com/georgisalene/gnss-rt/internal/pipeline"
	"github.com/georgisalene/gnss-rt/internal/ports"
	"github.com/georgisalene/gnss-rt/internal/processor"
	"github.com/georgisalene/gnss-rt/internal/queue"
	"github.com/georgisalene/gnss-rt/internal/registry"
	"github.com/georgisalene/gnss-rt/internal/repository"
	"github.com/georgisalene/gnss-rt/internal/resolver"
	"github.com/georgisalene/gnss-rt/internal/retry"
	"github.com/georgisalene/gnss-rt/internal/schedule"
	"github.com/georgisalene/gnss-rt/internal/storage"
	"github.com/georgisalene/gnss-rt/internal/tracker"
	"github.com/georgisalene/gnss-rt/internal/transport"
)

const (
	exitOK         = 0
	exitError      = 1
	exitConfig     = 2
	exitAwaiting   = 3
	exitProcessing = 4
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitConfig)
	}

	switch os.Args[1] {
	case "process":
		os.Exit(runProcess(os.Args[2:]))
	case "download":
		os.Exit(runDownload(os.Args[2:]))
	case "reprocess":
		os.Exit(runReprocess(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "init-db":
		os.Exit(runInitDB(os.Args[2:]))
	default:
		usage()
		os.Exit(exitConfig)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gnssrt <command> [flags]

commands:
  process    resolve products and run the engine for due windows
  download   fetch one category for one window, no run bookkeeping
  reprocess  reset a failed run to pending
  status     list runs by status
  init-db    create the database schema`)
}

// Dependencies holds the assembled application stack.
type Dependencies struct {
	cfg       *config.Config
	obs       ports.Observability
	db        ports.Database
	repos     ports.Repositories
	store     ports.Storage
	events    ports.Queue
	registry  *registry.Registry
	resolver  *resolver.Resolver
	tracker   *tracker.Tracker
	pipeline  *pipeline.Pipeline
	scheduler *schedule.Scheduler
	logger    ports.Logger
}

func loadConfiguration() *config.Config {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to get configuration: %v", err)
	}
	return cfg
}

func initializeDependencies(cfg *config.Config) (*Dependencies, error) {
	obs, err := observability.New(cfg)
	if err != nil {
		return nil, err
	}

	logger, metrics, err := obs.ComponentsScoped("main")
	if err != nil {
		return nil, err
	}

	logger.Info("Starting application",
		"service", cfg.ServiceName,
		"environment", cfg.Environment)
	metrics.IncrementCounter("application.starts", nil)

	db, err := database.New(&cfg.Database, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repos, err := repository.NewRepositories(db, obs)
	if err != nil {
		return nil, err
	}

	store, err := storage.New(cfg, obs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	events, err := queue.New(&cfg.Queue, obs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	reg, err := registry.Load(cfg.Registry.Path)
	if err != nil {
		return nil, err
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      cfg.Retry.Jitter,
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	dlLogger, dlMetrics, err := obs.ComponentsScoped("resolver")
	if err != nil {
		return nil, err
	}
	dialer := transport.NewDialer(&cfg.Transport, dlLogger, dlMetrics)
	downloader := resolver.NewDownloader(dialer, store, repos.Attempts(), policy, cfg.Storage.Bucket, dlLogger, dlMetrics)
	res := resolver.NewResolver(reg, downloader, repos.Products(), dlLogger, dlMetrics)

	trLogger, trMetrics, err := obs.ComponentsScoped("tracker")
	if err != nil {
		return nil, err
	}
	tr := tracker.New(repos, reg, buildProcessor(cfg, obs), events, cfg.Queue.RoutingKey, trLogger, trMetrics)

	plLogger, plMetrics, err := obs.ComponentsScoped("pipeline")
	if err != nil {
		return nil, err
	}
	pl := pipeline.New(tr, res, reg, &cfg.Pipeline, plLogger, plMetrics)

	return &Dependencies{
		cfg:       cfg,
		obs:       obs,
		db:        db,
		repos:     repos,
		store:     store,
		events:    events,
		registry:  reg,
		resolver:  res,
		tracker:   tr,
		pipeline:  pl,
		scheduler: schedule.New(),
		logger:    logger,
	}, nil
}

func buildProcessor(cfg *config.Config, obs ports.Observability) processor.Processor {
	logger, metrics, err := obs.ComponentsScoped("processor")
	if err != nil {
		log.Fatalf("Failed to get observability components: %v", err)
	}
	if cfg.Processor.Command == "" {
		return processor.NewNoop(logger)
	}
	return processor.NewExec(&cfg.Processor, logger, metrics)
}

func (d *Dependencies) Close() {
	if d.events != nil {
		d.events.Close()
	}
	if d.db != nil {
		d.db.Close()
	}
}

// startMetricsListener exposes the prometheus scrape endpoint when the
// backend and listen address are configured.
func (d *Dependencies) startMetricsListener() {
	if d.cfg.Metrics.Addr == "" {
		return
	}
	metrics, err := d.obs.Metrics()
	if err != nil {
		return
	}
	pm, ok := metrics.(*observability.PrometheusMetrics)
	if !ok {
		return
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(pm.Registry(), promhttp.HandlerOpts{}))
		d.logger.Info("Metrics listener started", "addr", d.cfg.Metrics.Addr)
		if err := http.ListenAndServe(d.cfg.Metrics.Addr, mux); err != nil {
			d.logger.Error("Metrics listener stopped", "error", err)
		}
	}()
}

// setup parses flags, loads configuration and assembles the stack. The
// optional configure hook lets a command fold parsed flags into the
// configuration before dependencies are built.
func setup(args []string, fs *flag.FlagSet, configure func(*config.Config)) (*Dependencies, int) {
	if err := fs.Parse(args); err != nil {
		return nil, exitConfig
	}

	cfg := loadConfiguration()
	if configure != nil {
		configure(cfg)
	}
	deps, err := initializeDependencies(cfg)
	if err != nil {
		if entity.IsConfigError(err) {
			log.Printf("Configuration error: %v", err)
			return nil, exitConfig
		}
		log.Printf("Initialization failed: %v", err)
		return nil, exitError
	}
	deps.startMetricsListener()
	return deps, exitOK
}

func runProcess(args []string) int {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	windowType := fs.String("window", "hourly", "window granularity: daily, hourly or subhourly")
	latency := fs.Duration("latency", 3*time.Hour, "how far behind wall clock the due window sits")
	from := fs.String("from", "", "range mode start (RFC3339); requires -to")
	to := fs.String("to", "", "range mode end (RFC3339)")
	watch := fs.Bool("watch", false, "keep running, processing the due window on a schedule")
	cronSpec := fs.String("cron", "", "cron spec for -watch; default follows the window granularity")
	stations := fs.String("stations", "", "comma separated station codes forwarded to the engine")

	deps, code := setup(args, fs, func(cfg *config.Config) {
		if *stations != "" {
			cfg.Processor.Stations = config.SplitList(*stations)
		}
	})
	if deps == nil {
		return code
	}
	defer deps.Close()

	wt, err := entity.ParseWindowType(*windowType)
	if err != nil {
		deps.logger.Error("Invalid window type", "error", err)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *watch {
		return watchLoop(ctx, deps, wt, *latency, *cronSpec)
	}

	windows, code := dueWindows(deps, wt, *latency, *from, *to)
	if windows == nil {
		return code
	}

	summary := deps.pipeline.ProcessWindows(ctx, windows)
	reportSummary(deps.logger, summary)
	return summary.ExitCode()
}

func dueWindows(deps *Dependencies, wt entity.WindowType, latency time.Duration, from, to string) ([]entity.ProcessingWindow, int) {
	if from == "" && to == "" {
		window, err := deps.scheduler.Recurring(wt, latency)
		if err != nil {
			deps.logger.Error("Failed to compute window", "error", err)
			return nil, exitConfig
		}
		return []entity.ProcessingWindow{window}, exitOK
	}

	start, err := time.Parse(time.RFC3339, from)
	if err != nil {
		deps.logger.Error("Invalid -from", "error", err)
		return nil, exitConfig
	}
	end, err := time.Parse(time.RFC3339, to)
	if err != nil {
		deps.logger.Error("Invalid -to", "error", err)
		return nil, exitConfig
	}

	windows, err := deps.scheduler.Range(wt, start, end)
	if err != nil {
		deps.logger.Error("Failed to compute window range", "error", err)
		return nil, exitConfig
	}
	return windows, exitOK
}

// watchLoop processes the due window on a cron schedule until a signal
// arrives. A pass failure is logged and the loop keeps going; the exit code
// reflects only shutdown.
func watchLoop(ctx context.Context, deps *Dependencies, wt entity.WindowType, latency time.Duration, spec string) int {
	if spec == "" {
		switch wt {
		case entity.WindowDaily:
			spec = "30 0 * * *"
		case entity.WindowHourly:
			spec = "5 * * * *"
		case entity.WindowSubhourly:
			spec = "*/15 * * * *"
		}
	}

	pass := func() {
		window, err := deps.scheduler.Recurring(wt, latency)
		if err != nil {
			deps.logger.Error("Failed to compute window", "error", err)
			return
		}
		summary := deps.pipeline.ProcessWindows(ctx, []entity.ProcessingWindow{window})
		reportSummary(deps.logger, summary)
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, pass); err != nil {
		deps.logger.Error("Invalid cron spec", "error", err, "spec", spec)
		return exitConfig
	}

	deps.logger.Info("Watch mode started", "cron", spec, "window_type", wt)
	pass()
	c.Start()

	<-ctx.Done()
	deps.logger.Info("Shutting down")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return exitOK
}

func reportSummary(logger ports.Logger, summary *pipeline.Summary) {
	for _, r := range summary.Results {
		fields := []interface{}{
			"session_id", r.SessionID,
			"outcome", r.Outcome,
		}
		if len(r.Missing) > 0 {
			fields = append(fields, "missing", fmt.Sprint(r.Missing))
		}
		if r.Err != nil {
			logger.Error("Window result", append(fields, "error", r.Err)...)
			continue
		}
		logger.Info("Window result", fields...)
	}
}

// runDownload fetches one category over one window or a date range, without
// any run bookkeeping. Useful for backfilling the artifact store or checking
// a single source by hand.
func runDownload(args []string) int {
	fs := flag.NewFlagSet("download", flag.ContinueOnError)
	windowType := fs.String("window", "hourly", "window granularity")
	at := fs.String("at", "", "epoch inside a single window (RFC3339); default now")
	from := fs.String("from", "", "range mode start (RFC3339); requires -to")
	to := fs.String("to", "", "range mode end (RFC3339)")
	category := fs.String("category", "", "product category to fetch")
	provider := fs.String("provider", "", "only try sources from this provider")
	tier := fs.String("tier", "", "only try sources of this tier")

	deps, code := setup(args, fs, nil)
	if deps == nil {
		return code
	}
	defer deps.Close()

	wt, err := entity.ParseWindowType(*windowType)
	if err != nil {
		deps.logger.Error("Invalid window type", "error", err)
		return exitConfig
	}
	cat, err := entity.ParseCategory(*category)
	if err != nil {
		deps.logger.Error("Invalid category", "error", err)
		return exitConfig
	}

	var tierFilter entity.ProductTier
	if *tier != "" {
		tierFilter, err = entity.ParseTier(*tier)
		if err != nil {
			deps.logger.Error("Invalid tier", "error", err)
			return exitConfig
		}
	}

	windows, code := downloadWindows(deps, wt, *at, *from, *to)
	if windows == nil {
		return code
	}

	sources, err := deps.registry.Sources(cat)
	if err != nil {
		deps.logger.Error("Unknown category", "error", err)
		return exitConfig
	}
	sources = registry.FilterSources(sources, *provider, tierFilter)
	if len(sources) == 0 {
		deps.logger.Error("No sources match the filter",
			"error", errors.New("provider/tier filter excluded every source"),
			"category", cat, "provider", *provider, "tier", *tier)
		return exitConfig
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	downloader := resolver.NewDownloader(
		transport.NewDialer(&deps.cfg.Transport, deps.logger, mustMetrics(deps.obs)),
		deps.store, deps.repos.Attempts(),
		retry.Policy{
			MaxAttempts: deps.cfg.Retry.MaxAttempts,
			BaseDelay:   deps.cfg.Retry.BaseDelay,
			MaxDelay:    deps.cfg.Retry.MaxDelay,
			Jitter:      deps.cfg.Retry.Jitter,
		},
		deps.cfg.Storage.Bucket, deps.logger, mustMetrics(deps.obs))

	missed := 0
	for _, window := range windows {
		if ctx.Err() != nil {
			return exitError
		}
		if !fetchWindow(ctx, deps, downloader, window, cat, sources) {
			missed++
		}
	}
	if missed > 0 {
		deps.logger.Error("Some windows could not be fetched",
			"error", errors.New("no source yielded the product"),
			"category", cat, "missed", missed, "windows", len(windows))
		return exitAwaiting
	}
	return exitOK
}

// downloadWindows resolves the -at / -from / -to flags into the window list
// to fetch: a single window by default, a partition when a range is given.
func downloadWindows(deps *Dependencies, wt entity.WindowType, at, from, to string) ([]entity.ProcessingWindow, int) {
	if from != "" || to != "" {
		return dueWindows(deps, wt, 0, from, to)
	}

	epoch := time.Now().UTC()
	if at != "" {
		var err error
		epoch, err = time.Parse(time.RFC3339, at)
		if err != nil {
			deps.logger.Error("Invalid -at", "error", err)
			return nil, exitConfig
		}
	}

	sched := schedule.New()
	sched.Now = func() time.Time { return epoch }
	window, err := sched.Recurring(wt, 0)
	if err != nil {
		deps.logger.Error("Failed to compute window", "error", err)
		return nil, exitConfig
	}
	return []entity.ProcessingWindow{window}, exitOK
}

func fetchWindow(ctx context.Context, deps *Dependencies, downloader *resolver.Downloader, window entity.ProcessingWindow, cat entity.ProductCategory, sources []entity.ProductSource) bool {
	for _, source := range sources {
		dl, err := downloader.Fetch(ctx, window.SessionID(), cat, source, window.Start)
		if err != nil {
			deps.logger.Error("Source failed", "error", err,
				"source", source.Label(), "session_id", window.SessionID())
			continue
		}
		fmt.Printf("%s\t%s\t%d bytes\t%s\n", window.SessionID(), dl.LocalPath, dl.Size, dl.Checksum)
		return true
	}
	return false
}

func runReprocess(args []string) int {
	fs := flag.NewFlagSet("reprocess", flag.ContinueOnError)
	session := fs.String("session", "", "session ID of the failed run")

	deps, code := setup(args, fs, nil)
	if deps == nil {
		return code
	}
	defer deps.Close()

	if *session == "" {
		deps.logger.Error("Missing -session", "error", errors.New("session ID is required"))
		return exitConfig
	}

	ctx := context.Background()
	if err := deps.tracker.Reprocess(ctx, *session); err != nil {
		deps.logger.Error("Reprocess failed", "error", err, "session_id", *session)
		if errors.Is(err, entity.ErrStateConflict) || errors.Is(err, ports.ErrNotFound) {
			return exitConfig
		}
		return exitError
	}

	fmt.Printf("run %s reset to pending\n", *session)
	return exitOK
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	state := fs.String("state", "pending", "run status to list")
	limit := fs.Int("limit", 50, "maximum rows")

	deps, code := setup(args, fs, nil)
	if deps == nil {
		return code
	}
	defer deps.Close()

	runs, err := deps.repos.Runs().ListByStatus(context.Background(), entity.RunStatus(*state), *limit)
	if err != nil {
		deps.logger.Error("Failed to list runs", "error", err)
		return exitError
	}

	for _, run := range runs {
		reason := ""
		if run.FailureReason != nil {
			reason = *run.FailureReason
		}
		fmt.Printf("%s\t%s\t%s\t%s\tattempts=%d\t%s\n",
			run.SessionID, run.WindowType,
			run.WindowStart.Format(time.RFC3339), run.Status,
			run.AttemptCount, reason)
	}
	return exitOK
}

func runInitDB(args []string) int {
	fs := flag.NewFlagSet("init-db", flag.ContinueOnError)

	deps, code := setup(args, fs, nil)
	if deps == nil {
		return code
	}
	defer deps.Close()

	if err := database.Migrate(context.Background(), deps.db); err != nil {
		deps.logger.Error("Migration failed", "error", err)
		return exitError
	}

	deps.logger.Info("Schema is up to date")
	return exitOK
}

func mustMetrics(obs ports.Observability) ports.Metrics {
	metrics, err := obs.Metrics()
	if err != nil {
		log.Fatalf("Failed to get metrics: %v", err)
	}
	return metrics
}
