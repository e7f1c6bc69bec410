// Command sessionnotes cleans, merges, and corrects the per-speaker
// transcripts of one tabletop session into a single readable transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/philote/TTRPG-session-notes/internal/app"
	"github.com/philote/TTRPG-session-notes/internal/config"
	"github.com/philote/TTRPG-session-notes/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	basePath := flag.String("base-path", "", "override session.base_path from the config")
	session := flag.String("session", "", "override session.name from the config")
	part := flag.String("part", "", "override session.part from the config")
	show := flag.Bool("show", false, "print the archived transcript for the session and part, then exit")
	search := flag.String("search", "", "full-text query across archived transcripts, then exit")
	searchLimit := flag.Int("search-limit", 20, "maximum number of search matches to print")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "sessionnotes: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "sessionnotes: %v\n", err)
		}
		return 1
	}
	if *basePath != "" {
		cfg.Session.BasePath = *basePath
	}
	if *session != "" {
		cfg.Session.Name = *session
	}
	if *part != "" {
		cfg.Session.Part = *part
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "sessionnotes: invalid configuration: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("sessionnotes starting",
		"config", *configPath,
		"session", cfg.Session.Name,
		"part", cfg.Session.Part,
		"base_path", cfg.Session.BasePath,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	var metricsServer *observe.MetricsServer
	if cfg.Server.MetricsAddr != "" {
		metricsServer = observe.NewMetricsServer(cfg.Server.MetricsAddr, logger)
		metricsServer.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Stop(shutdownCtx); err != nil {
				slog.Warn("metrics endpoint shutdown error", "err", err)
			}
		}()
	}

	// ── Pipeline ──────────────────────────────────────────────────────────────
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise pipeline", "err", err)
		return 1
	}
	defer application.Close()

	// ── Archive queries ───────────────────────────────────────────────────────
	if *show || *search != "" {
		return runArchiveQuery(ctx, application, *show, *search, *searchLimit)
	}

	summary, err := application.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("run cancelled")
			return 1
		}
		slog.Error("run failed", "err", err)
		return 1
	}

	printSummary(summary)
	slog.Info("done",
		"speakers", len(summary.Files),
		"segments", summary.CompactedSegments,
		"parts", summary.Parts,
	)
	return 0
}

// ── Archive queries ─────────────────────────────────────────────────────────────

// runArchiveQuery serves -show and -search against the archive database
// instead of running the pipeline.
func runArchiveQuery(ctx context.Context, application *app.App, show bool, search string, limit int) int {
	if show {
		lines, err := application.ShowTranscript(ctx)
		if err != nil {
			if errors.Is(err, app.ErrNoArchive) {
				fmt.Fprintln(os.Stderr, "sessionnotes: -show needs archive.postgres_dsn configured")
			} else {
				slog.Error("show transcript failed", "err", err)
			}
			return 1
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return 0
	}

	entries, err := application.SearchArchive(ctx, search, limit)
	if err != nil {
		if errors.Is(err, app.ErrNoArchive) {
			fmt.Fprintln(os.Stderr, "sessionnotes: -search needs archive.postgres_dsn configured")
		} else {
			slog.Error("search failed", "err", err)
		}
		return 1
	}
	for _, e := range entries {
		fmt.Printf("%s/%s #%d  %s: %s\n", e.Session, e.Part, e.Position, e.Segment.Speaker, e.Segment.Text)
	}
	slog.Info("search finished", "query", search, "matches", len(entries))
	return 0
}

// ── Run summary ─────────────────────────────────────────────────────────────────

func printSummary(s *app.Summary) {
	fmt.Println("── run summary ──────────────────────────────")
	for _, f := range s.Files {
		fmt.Printf("  %-28s %s (%d rows, %d skipped)\n", f.File, f.Speaker, f.Rows, f.Skipped)
	}
	fmt.Printf("  cleanup: %d → %d segments", s.Cleanup.In, s.Cleanup.Out)
	fmt.Printf(" (%d dupes, %d merges, %d short, %d silence)\n",
		s.Cleanup.DuplicatesRemoved+s.Cleanup.SecondaryDuplicatesRemoved,
		s.Cleanup.Merges,
		s.Cleanup.ShortRemoved,
		s.Cleanup.SilenceRemoved,
	)
	fmt.Printf("  merged:  %d segments, %d after compaction\n", s.MergedSegments, s.CompactedSegments)

	if len(s.Substitutions) > 0 {
		terms := make([]string, 0, len(s.Substitutions))
		for t := range s.Substitutions {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		fmt.Println("  corrections:")
		for _, t := range terms {
			fmt.Printf("    %-26s %d\n", t, s.Substitutions[t])
		}
	}

	fmt.Printf("  artifacts (%d):\n", len(s.Artifacts))
	for _, a := range s.Artifacts {
		fmt.Printf("    %s\n", a)
	}
	fmt.Println("─────────────────────────────────────────────")
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
