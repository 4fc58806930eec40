package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/corpusidx/internal/config"
	cerrors "github.com/Aman-CERP/corpusidx/internal/errors"
	"github.com/Aman-CERP/corpusidx/internal/generator"
	"github.com/Aman-CERP/corpusidx/internal/index"
	"github.com/Aman-CERP/corpusidx/internal/ledger"
	"github.com/Aman-CERP/corpusidx/internal/logging"
	"github.com/Aman-CERP/corpusidx/internal/preflight"
	"github.com/Aman-CERP/corpusidx/internal/profiling"
	"github.com/Aman-CERP/corpusidx/internal/store"
	"github.com/Aman-CERP/corpusidx/internal/telemetry"
	"github.com/Aman-CERP/corpusidx/internal/ui"
	"github.com/Aman-CERP/corpusidx/internal/whitelist"
)

var errInterrupted = errors.New("run interrupted; the index holds the documents committed so far")

// indexFlags mirror the configuration keys they override.
type indexFlags struct {
	collection       string
	generator        string
	input            string
	index            string
	threads          int
	memoryBufferMB   int
	batchSize        int
	optimize         bool
	uniqueDocID      bool
	shardCount       int
	shardCurrent     int
	whitelist        string
	analyzer         string
	storeRaw         bool
	storeContents    bool
	keepStopwords    bool
	keepRetweets     bool
	keepURLs         bool
	progressInterval string
	ledger           string
	metricsAddr      string
	plain            bool
	skipPreflight    bool
	cpuProfile       string
	memProfile       string
	tracePath        string
}

func newIndexCmd(g *globalFlags) *cobra.Command {
	f := &indexFlags{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index a corpus",
		Long: `Index every partition of a corpus into a fresh index directory.

Each file under --input is one partition, processed by one worker. The
index directory is replaced. Interrupting the run (Ctrl-C) commits what
has been written so far.`,
		Example: `  # Index a directory of JSON lines files
  corpusidx index --collection json --input ./corpus --index ./idx

  # Index shard 2 of 8 with 16 workers, replacing duplicate ids
  corpusidx index --collection trec --input ./trec --index ./idx-2 \
    --threads 16 --shard-count 8 --shard-current 2 --unique-docid`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadIndexConfig(cmd, g, f)
			if err != nil {
				return err
			}
			return runIndex(cmd.Context(), cmd, g, f, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.collection, "collection", "c", "", "Corpus format (see 'corpusidx collections')")
	fl.StringVarP(&f.generator, "generator", "g", "", "Document generator")
	fl.StringVarP(&f.input, "input", "i", "", "Corpus root directory")
	fl.StringVarP(&f.index, "index", "o", "", "Index directory (replaced)")
	fl.IntVarP(&f.threads, "threads", "t", 0, "Partition worker pool size")
	fl.IntVar(&f.memoryBufferMB, "memory-buffer", 0, "Write buffer size in MB")
	fl.IntVar(&f.batchSize, "batch-size", 0, "Documents per worker before the indexed counter is updated")
	fl.BoolVar(&f.optimize, "optimize", false, "Merge the index to one segment after commit")
	fl.BoolVar(&f.uniqueDocID, "unique-docid", false, "Replace documents that share an id")
	fl.IntVar(&f.shardCount, "shard-count", 0, "Number of corpus shards")
	fl.IntVar(&f.shardCurrent, "shard-current", 0, "Shard to index (0-based)")
	fl.StringVar(&f.whitelist, "whitelist", "", "File of document ids to index, one per line")
	fl.StringVar(&f.analyzer, "analyzer", "", "Text analysis: en or standard")
	fl.BoolVar(&f.storeRaw, "store-raw", false, "Store each record's raw source")
	fl.BoolVar(&f.storeContents, "store-contents", false, "Store document contents")
	fl.BoolVar(&f.keepStopwords, "keep-stopwords", false, "Index stop words")
	fl.BoolVar(&f.keepRetweets, "keep-retweets", false, "Index retweets (tweet generator)")
	fl.BoolVar(&f.keepURLs, "keep-urls", false, "Keep URLs in tweet text (tweet generator)")
	fl.StringVar(&f.progressInterval, "progress-interval", "", "How often to log progress, e.g. 30s")
	fl.StringVar(&f.ledger, "ledger", "", "SQLite file recording the run and every partition")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	fl.BoolVar(&f.plain, "plain", false, "Plain text output even on a terminal")
	fl.StringVar(&f.cpuProfile, "cpu-profile", "", "Write a CPU profile of the run to this file")
	fl.StringVar(&f.memProfile, "mem-profile", "", "Write a heap profile at the end of the run to this file")
	fl.StringVar(&f.tracePath, "trace", "", "Write an execution trace of the run to this file")
	fl.BoolVar(&f.skipPreflight, "skip-preflight", false, "Skip the disk space, permission, and file limit checks")

	return cmd
}

// loadIndexConfig layers flags over the loaded configuration and validates
// the result.
func loadIndexConfig(cmd *cobra.Command, g *globalFlags, f *indexFlags) (*config.Config, error) {
	cfg, err := config.Load(".", g.configPath)
	if err != nil {
		return nil, err
	}

	fl := cmd.Flags()
	setString := func(name string, dst *string, v string) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	setInt := func(name string, dst *int, v int) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	setBool := func(name string, dst *bool, v bool) {
		if fl.Changed(name) {
			*dst = v
		}
	}

	setString("collection", &cfg.Collection, f.collection)
	setString("generator", &cfg.Generator, f.generator)
	setString("input", &cfg.Input, f.input)
	setString("index", &cfg.Index, f.index)
	setInt("threads", &cfg.Indexing.Threads, f.threads)
	setInt("memory-buffer", &cfg.Indexing.MemoryBufferMB, f.memoryBufferMB)
	setInt("batch-size", &cfg.Indexing.BatchSize, f.batchSize)
	setBool("optimize", &cfg.Indexing.Optimize, f.optimize)
	setBool("unique-docid", &cfg.Indexing.UniqueDocID, f.uniqueDocID)
	setInt("shard-count", &cfg.Shard.Count, f.shardCount)
	setInt("shard-current", &cfg.Shard.Current, f.shardCurrent)
	setString("whitelist", &cfg.Indexing.Whitelist, f.whitelist)
	setString("analyzer", &cfg.Indexing.Analyzer, f.analyzer)
	setBool("store-raw", &cfg.Documents.StoreRaw, f.storeRaw)
	setBool("store-contents", &cfg.Documents.StoreContents, f.storeContents)
	setBool("keep-stopwords", &cfg.Documents.KeepStopwords, f.keepStopwords)
	setBool("keep-retweets", &cfg.Documents.Tweet.KeepRetweets, f.keepRetweets)
	setBool("keep-urls", &cfg.Documents.Tweet.KeepURLs, f.keepURLs)
	setString("progress-interval", &cfg.Indexing.ProgressInterval, f.progressInterval)
	setString("ledger", &cfg.Outputs.Ledger, f.ledger)
	setString("metrics-addr", &cfg.Outputs.MetricsAddr, f.metricsAddr)

	switch {
	case g.verbose:
		cfg.Logging.Level = "debug"
	case g.quiet:
		cfg.Logging.Level = "warn"
	}
	if g.logFormat != "" {
		cfg.Logging.Format = g.logFormat
	}
	if g.logFile != "" {
		cfg.Logging.File = g.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// generatorOptions builds generator.Options from the documents block,
// loading the deleted tweet ids when configured.
func generatorOptions(cfg *config.Config) (generator.Options, error) {
	d := cfg.Documents
	opts := generator.Options{
		StoreRaw:      d.StoreRaw,
		StoreContents: d.StoreContents,
		Fields:        d.Fields,
		KeepStopwords: d.KeepStopwords,
		KeepRetweets:  d.Tweet.KeepRetweets,
		KeepURLs:      d.Tweet.KeepURLs,
		MaxID:         d.Tweet.MaxID,
	}
	if len(d.Stopwords) > 0 {
		opts.Stopwords = generator.StopwordSet(d.Stopwords)
	}
	if d.Tweet.DeletedIDs != "" {
		deleted, err := whitelist.Load(d.Tweet.DeletedIDs)
		if err != nil {
			return generator.Options{}, err
		}
		opts.DeletedIDs = deleted.Map()
	}
	return opts, nil
}

func runIndex(ctx context.Context, cmd *cobra.Command, g *globalFlags, f *indexFlags, cfg *config.Config) error {
	logCfg := cfg.LoggingSetup()
	logCfg.Output = cmd.ErrOrStderr()
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return cerrors.ConfigError("failed to set up logging", err)
	}
	defer cleanup()

	if !f.skipPreflight {
		if err := runPreflight(ctx, cfg, logger); err != nil {
			return err
		}
	}

	profCfg := profiling.Config{CPUProfile: f.cpuProfile, HeapProfile: f.memProfile, Trace: f.tracePath}
	if profCfg.Enabled() {
		session, err := profiling.Start(profCfg, logger)
		if err != nil {
			return cerrors.IOError("failed to start profiling", err)
		}
		defer func() {
			if err := session.Stop(); err != nil {
				logger.Warn("profile_write_failed", slog.String("error", err.Error()))
			}
		}()
	}

	genOpts, err := generatorOptions(cfg)
	if err != nil {
		return err
	}
	progress, err := cfg.ProgressEvery()
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	counters := index.NewCounters()

	renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
		ui.WithForcePlain(f.plain),
		ui.WithPartitions(g.verbose)))
	defer func() { _ = renderer.Stop() }()

	options := []index.Option{
		index.WithLogger(logger),
		index.WithRunID(runID),
		index.WithCounters(counters),
		index.WithObserver(renderer),
	}

	var led *ledger.Ledger
	if cfg.Outputs.Ledger != "" {
		led, err = ledger.Open(cfg.Outputs.Ledger, logger)
		if err != nil {
			return cerrors.IOError("failed to open run ledger", err).WithDetail("path", cfg.Outputs.Ledger)
		}
		defer func() { _ = led.Close() }()

		if err := led.StartRun(ctx, ledger.RunInfo{
			ID:         runID,
			Collection: cfg.Collection,
			Generator:  cfg.Generator,
			Root:       cfg.Input,
			IndexPath:  cfg.Index,
			StartedAt:  time.Now(),
		}); err != nil {
			return cerrors.IOError("failed to record run start", err)
		}
		options = append(options, index.WithObserver(led))
	}

	var metrics *telemetry.Metrics
	if cfg.Outputs.MetricsAddr != "" {
		metrics, err = telemetry.NewMetrics(counters, 0)
		if err != nil {
			return cerrors.InternalError("failed to create metrics", err)
		}
		options = append(options, index.WithObserver(metrics))
	}

	storeCfg := store.Config{
		Path:           cfg.Index,
		MemoryBufferMB: cfg.Indexing.MemoryBufferMB,
		Analyzer:       cfg.Indexing.Analyzer,
		Stopwords:      cfg.Documents.Stopwords,
		KeepStopwords:  cfg.Documents.KeepStopwords,
		Logger:         logger,
	}
	engineFactory := func(schema generator.Schema) (store.Engine, error) {
		return store.Open(storeCfg, schema)
	}

	ix, err := index.NewIndexer(index.Options{
		Root:             cfg.Input,
		Collection:       cfg.Collection,
		Generator:        cfg.Generator,
		GeneratorOptions: genOpts,
		Threads:          cfg.Indexing.Threads,
		BatchSize:        cfg.Indexing.BatchSize,
		UniqueDocID:      cfg.Indexing.UniqueDocID,
		Optimize:         cfg.Indexing.Optimize,
		ShardCount:       cfg.Shard.Count,
		ShardCurrent:     cfg.Shard.Current,
		WhitelistPath:    cfg.Indexing.Whitelist,
		ProgressInterval: progress,
	}, engineFactory, options...)
	if err != nil {
		return cerrors.InternalError("failed to create indexer", err)
	}

	settings := ui.Settings{
		RunID:      runID,
		Collection: cfg.Collection,
		Generator:  cfg.Generator,
		Input:      cfg.Input,
		Index:      cfg.Index,
		Threads:    cfg.Indexing.Threads,
	}
	if cfg.Sharded() {
		settings.Shard = fmt.Sprintf("%d/%d", cfg.Shard.Current, cfg.Shard.Count)
	}
	if err := renderer.Start(ctx, settings); err != nil {
		return err
	}

	serveCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	var eg errgroup.Group
	if metrics != nil {
		eg.Go(func() error {
			return telemetry.Serve(serveCtx, cfg.Outputs.MetricsAddr, metrics.Handler(), logger)
		})
	}

	res, runErr := ix.Run(ctx)
	stopServing()
	if err := eg.Wait(); err != nil {
		logger.Warn("metrics_server_failed", slog.String("error", err.Error()))
	}

	if runErr != nil {
		logger.Error("index_failed", cerrors.FormatForLog(runErr)...)
		renderer.AddError(ui.ErrorEvent{Err: runErr})
		return runErr
	}

	if led != nil {
		if err := led.FinishRun(context.WithoutCancel(ctx), res); err != nil {
			logger.Warn("ledger_finish_failed", slog.String("error", err.Error()))
		}
	}
	if res.Interrupted {
		renderer.AddError(ui.ErrorEvent{Err: errInterrupted, IsWarn: true})
	}
	renderer.Complete(res)
	return nil
}

// runPreflight checks the index location and file limit. The corpus root is
// left to the indexer, which reports it with its own error code.
func runPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	checker := preflight.New()
	results := checker.RunAll(ctx, preflight.Target{Index: cfg.Index, Threads: cfg.Indexing.Threads})
	for _, r := range results {
		if r.Status == preflight.StatusWarn {
			logger.Warn("preflight_warning",
				slog.String("check", r.Name),
				slog.String("message", r.Message))
		}
	}
	if checker.HasCriticalFailures(results) {
		return cerrors.New(cerrors.ErrCodeFilePermission, "preflight checks failed", nil).
			WithDetail("failures", strings.Join(checker.Failures(results), "; ")).
			WithSuggestion("Run 'corpusidx doctor' for details, or pass --skip-preflight")
	}
	return nil
}
