package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/brogergvhs/bookharvest/internal/checkpoint"
	"github.com/brogergvhs/bookharvest/internal/config"
	"github.com/brogergvhs/bookharvest/internal/fetcher"
	"github.com/brogergvhs/bookharvest/internal/journal"
	"github.com/brogergvhs/bookharvest/internal/metrics"
	"github.com/brogergvhs/bookharvest/internal/providers/generic"
	"github.com/brogergvhs/bookharvest/internal/recovery"
	"github.com/brogergvhs/bookharvest/internal/traversal"
	"github.com/brogergvhs/bookharvest/internal/ui"
	"github.com/brogergvhs/bookharvest/internal/util"

	"github.com/spf13/cobra"
)

var (
	// chain
	flagURL         string
	flagMaxChapters int
	flagMaxChars    int

	// pacing
	flagOutput        string
	flagRequestDelay  time.Duration
	flagMaxRetries    int
	flagRetryDelay    time.Duration
	flagNoRecovery    bool
	flagCooldown      time.Duration
	flagMaxRecoveries int

	// headers/auth
	flagCookie     string
	flagCookieFile string
	flagUserAgent  string
	flagCloudflare bool

	// extras
	flagMetricsAddr string
	flagNoJournal   bool
	flagNoProgress  bool
)

func init() {
	harvestCmd := &cobra.Command{
		Use:   "harvest",
		Short: "Follow next-chapter links from a start URL and save the book. Resumes from an earlier artifact when one exists",
		RunE:  runHarvest,
	}

	f := harvestCmd.Flags()

	f.StringVar(&flagURL, "url", "", "URL of the first chapter")
	f.IntVar(&flagMaxChapters, "max-chapters", 0, "stop after this many chapters, including resumed ones")
	f.IntVar(&flagMaxChars, "max-chars-per-page", 0, "page size of the output book in characters")

	f.StringVar(&flagOutput, "output", "", "folder for book artifacts")
	f.DurationVar(&flagRequestDelay, "delay", 0, "wait between chapters (e.g. 60s)")
	f.IntVar(&flagMaxRetries, "retries", 0, "retries per fetch before recovery")
	f.DurationVar(&flagRetryDelay, "retry-delay", 0, "wait between retries")
	f.BoolVar(&flagNoRecovery, "no-recovery", false, "fail instead of cooling down and rebuilding the client")
	f.DurationVar(&flagCooldown, "cooldown", 0, "recovery cooldown")
	f.IntVar(&flagMaxRecoveries, "max-recoveries", 0, "recoveries allowed per session")

	f.StringVar(&flagCookie, "cookie", "", "cookie string, e.g. \"key=value; other=123\"")
	f.StringVar(&flagCookieFile, "cookie-file", "", "path to a text file with cookies (one header line)")
	f.StringVar(&flagUserAgent, "user-agent", "", "override User-Agent")
	f.BoolVar(&flagCloudflare, "cloudflare", false, "wrap the transport with the Cloudflare bypass")

	f.StringVar(&flagMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")
	f.BoolVar(&flagNoJournal, "no-journal", false, "do not record this run in the history journal")
	f.BoolVar(&flagNoProgress, "no-progress", false, "disable the progress bars")

	rootCmd.AddCommand(harvestCmd)
}

func harvestOptions(cmd *cobra.Command) config.Options {
	opts := config.Options{
		IgnoreConfig:     flagIgnoreConfig,
		Debug:            flagDebug,
		Output:           flagOutput,
		MaxChapters:      flagMaxChapters,
		MaxCharsPerPage:  flagMaxChars,
		RequestDelay:     flagRequestDelay,
		MaxRetries:       flagMaxRetries,
		RetryDelay:       flagRetryDelay,
		RecoveryCooldown: flagCooldown,
		MaxRecoveries:    flagMaxRecoveries,
		DefaultURL:       flagURL,
		Cookie:           flagCookie,
		CookieFile:       flagCookieFile,
		UserAgent:        flagUserAgent,
		CloudflareBypass: flagCloudflare,
		MetricsAddr:      flagMetricsAddr,
	}
	if cmd.Flags().Changed("no-recovery") {
		enabled := !flagNoRecovery
		opts.Recovery = &enabled
	}
	if cmd.Flags().Changed("no-journal") {
		enabled := !flagNoJournal
		opts.Journal = &enabled
	}
	return opts
}

func runHarvest(cmd *cobra.Command, _ []string) error {
	cfg, usedPath, err := config.LoadMerged(harvestOptions(cmd))
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("delay") {
		cfg.RequestDelay = flagRequestDelay
	}
	if cmd.Flags().Changed("retries") {
		cfg.Retry.MaxRetries = flagMaxRetries
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := ui.NewLogger(cfg.Debug)
	if usedPath != "" {
		fmt.Printf("Config file: %s\n", usedPath)
	}

	startURL, err := resolveStartURL(cmd, cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output, 0755); err != nil {
		return fmt.Errorf("cannot create output folder: %w", err)
	}

	fmt.Println("Full config:")
	cfg.Print()
	fmt.Println()

	ctx, cancel := util.SetupInterruptHandler(cmd.Context(), cfg.Output)
	defer cancel()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Warnf("metrics server: %v", err)
			}
		}()
		log.Infof("metrics on http://%s/metrics", cfg.MetricsAddr)
	}

	stats := &ui.Stats{}

	factory := func() (*http.Client, error) {
		return util.NewHTTPClient(util.HTTPClientOptions{
			UserAgent:        util.PickUserAgent(cfg.UserAgent),
			Cookie:           cfg.Cookie,
			CookieFile:       cfg.CookieFile,
			Headers:          cfg.Headers,
			CloudflareBypass: cfg.CloudflareBypass,
			DebugLogger:      log,
		})
	}
	pageFetcher, err := fetcher.New(factory,
		fetcher.WithByteCounter(func(n int64) { stats.TotalBytes.Add(n) }),
		fetcher.WithDebug(log.Debugf),
	)
	if err != nil {
		return err
	}

	store := checkpoint.NewStore(cfg.Output, checkpoint.WithLogger(log))
	parser := generic.NewParser(generic.WithDebug(log.Debugf))

	opts := []traversal.Option{
		traversal.WithLogger(log),
		traversal.WithObserver(m),
		traversal.WithStats(stats),
	}

	var (
		pm  *ui.MPBProgressManager
		bar *ui.ProgressHandle
	)
	if !flagNoProgress {
		pm = ui.NewProgressManager(os.Stderr)
		bar = pm.Register("Chapters", stats)
		bar.SetTotal(cfg.MaxChapters)
		opts = append(opts,
			traversal.WithProgress(func(done, _ int) { bar.SetDone(done) }),
			traversal.WithCountdown(func(label string, total time.Duration) recovery.Countdown {
				return pm.StartCountdown(label, total)
			}),
		)
	}

	engine := traversal.New(traversal.Config{
		MaxChapters:     cfg.MaxChapters,
		MaxCharsPerPage: cfg.MaxCharsPerPage,
		RequestDelay:    cfg.RequestDelay,
		MaxRetries:      cfg.Retry.MaxRetries,
		RetryDelay:      cfg.Retry.Delay,
		Recovery: recovery.Config{
			Enabled:       cfg.Recovery.Enabled,
			Cooldown:      cfg.Recovery.Cooldown,
			MaxRecoveries: cfg.Recovery.MaxRecoveries,
		},
		ChapterTimeout:  cfg.Timeouts.Chapter,
		LinkTimeout:     cfg.Timeouts.Link,
		RecoveryTimeout: cfg.Timeouts.Recovery,
	}, pageFetcher, parser, store, opts...)

	res, runErr := engine.Run(ctx, startURL)
	if pm != nil {
		bar.MarkDone()
		pm.Close()
	}

	if cfg.Journal {
		recordRun(log, res)
	}

	printHarvestSummary(res)

	if runErr != nil {
		return fmt.Errorf("saving book: %w", runErr)
	}
	if res.Artifact == "" && res.Err != nil {
		return res.Err
	}
	return nil
}

// resolveStartURL prefers --url, then default_url, then asks.
func resolveStartURL(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if cfg.DefaultURL != "" {
		return ui.NormalizeStartURL(cfg.DefaultURL)
	}

	u, err := ui.PromptStartURL()
	if err != nil {
		return "", fmt.Errorf("missing --url and no default_url in config: %w", err)
	}

	if !cmd.Flags().Changed("max-chapters") {
		n, err := ui.PromptChapterCap(cfg.MaxChapters)
		if err != nil {
			return "", err
		}
		cfg.MaxChapters = n
	}
	return u, nil
}

func recordRun(log *ui.Logger, res *traversal.Result) {
	j, err := journal.Open(config.DataDir())
	if err != nil {
		log.Warnf("journal unavailable: %v", err)
		return
	}
	defer func() { _ = j.Close() }()

	sess := res.Session
	err = j.Record(context.Background(), journal.Run{
		ID:          sess.ID,
		StartURL:    sess.StartURL,
		Host:        checkpoint.HostID(sess.StartURL),
		Mode:        sess.Mode.String(),
		Status:      res.State.String(),
		Reason:      string(res.Reason),
		Chapters:    len(sess.Chapters),
		NewChapters: len(sess.NewChapters()),
		Recoveries:  sess.Recoveries,
		Artifact:    res.Artifact,
		StartedAt:   sess.Stats.StartedAt,
		FinishedAt:  sess.Stats.FinishedAt,
	})
	if err != nil {
		log.Warnf("%v", err)
	}
}

func printHarvestSummary(res *traversal.Result) {
	sess := res.Session
	stats := sess.Stats
	dur := stats.Duration()

	fmt.Println()
	if sess.Mode == traversal.Resume {
		fmt.Println("Resume Summary:")
	} else {
		fmt.Println("Harvest Summary:")
	}
	fmt.Printf("Result:      %s (%s)\n", res.State, res.Reason)
	if res.Err != nil && !errors.Is(res.Err, traversal.ErrCapReached) {
		fmt.Printf("Cause:       %v\n", res.Err)
	}
	fmt.Printf("Time:        %s\n", dur.Round(time.Second))
	fmt.Printf("Chapters:    %d", len(sess.Chapters))
	if sess.Preloaded > 0 {
		fmt.Printf(" (%d resumed, %d new)", sess.Preloaded, len(sess.NewChapters()))
	}
	fmt.Println()
	fmt.Printf("Failed:      %d\n", stats.FailedChapters)
	if sess.Recoveries > 0 {
		fmt.Printf("Recoveries:  %d\n", sess.Recoveries)
	}
	fmt.Printf("Visited:     %d URLs\n", len(stats.VisitedURLs))
	fmt.Printf("Success:     %.1f%%\n", stats.SuccessRate())
	fmt.Printf("Characters:  %d (%d words)\n", stats.TotalChars, stats.TotalWords)
	if dur > 0 {
		fmt.Printf("Speed:       %s chars/s\n", util.PerSecond(int64(stats.TotalChars), dur))
	}
	fmt.Printf("Data:        %s\n", util.Human(stats.TotalBytes.Load()))

	shown := sess.NewChapters()
	offset := sess.Preloaded
	if len(shown) > 0 {
		fmt.Println("\nChapters:")
		for i, ch := range shown[:min(len(shown), 10)] {
			title := []rune(ch.Title)
			if len(title) > 50 {
				title = append(title[:50], []rune("...")...)
			}
			fmt.Printf("  %3d. %s  [%d chars]\n", offset+i+1, string(title), ch.CharCount)
		}
		if len(shown) > 10 {
			fmt.Printf("  ... and %d more\n", len(shown)-10)
		}
	}

	if failed := stats.FailedURLs; len(failed) > 0 {
		fmt.Println("\nFailed URLs:")
		for i, u := range failed[:min(len(failed), 5)] {
			fmt.Printf("  %d. %s\n", i+1, u)
		}
		if len(failed) > 5 {
			fmt.Printf("  ... and %d more\n", len(failed)-5)
		}
	}

	if res.Artifact != "" {
		fmt.Printf("\nSaved %d pages to %s (%s)\n",
			res.Document.TotalPages, res.Artifact, util.Human(util.FileSize(res.Artifact)))
	} else {
		fmt.Println("\nNothing was saved.")
	}
}
