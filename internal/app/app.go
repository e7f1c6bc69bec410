// Package app wires the pipeline stages into a complete transcript run.
//
// The App struct owns the full run lifecycle: New resolves configuration into
// stage implementations (cleaner, corrector, optional archive), Run executes
// the stages in order and returns a [Summary]. Per-speaker ingestion and
// cleaning fan out across goroutines; everything after the merge is a single
// ordered stream.
//
// For testing, inject doubles via functional options (WithArchiver,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/philote/TTRPG-session-notes/internal/archive"
	"github.com/philote/TTRPG-session-notes/internal/cleanup"
	"github.com/philote/TTRPG-session-notes/internal/config"
	"github.com/philote/TTRPG-session-notes/internal/correct"
	"github.com/philote/TTRPG-session-notes/internal/correct/phonetic"
	"github.com/philote/TTRPG-session-notes/internal/ingest"
	"github.com/philote/TTRPG-session-notes/internal/merge"
	"github.com/philote/TTRPG-session-notes/internal/observe"
	"github.com/philote/TTRPG-session-notes/internal/render"
	"github.com/philote/TTRPG-session-notes/internal/segment"
	"github.com/philote/TTRPG-session-notes/internal/split"
)

// ErrNoInput is returned by [App.Run] when the session directory contains no
// transcript files to process.
var ErrNoInput = errors.New("app: no transcript files found")

// ErrNoArchive is returned by the archive query methods when the App was
// configured without an archive database.
var ErrNoArchive = errors.New("app: no archive configured")

// Archiver persists finished transcripts and answers queries over them.
// Satisfied by [archive.Store].
type Archiver interface {
	WriteTranscript(ctx context.Context, session, part string, segs []segment.Segment) error
	LoadTranscript(ctx context.Context, session, part string) ([]segment.Segment, error)
	Search(ctx context.Context, query string, limit int) ([]archive.Entry, error)
}

// Summary reports what one run did, for logging and operator feedback.
type Summary struct {
	// Files describes every ingested input file in processing order.
	Files []ingest.Report

	// Cleanup totals the per-speaker cleaning statistics across all speakers.
	Cleanup cleanup.Stats

	// MergedSegments is the utterance count after the chronological merge.
	MergedSegments int

	// CompactedSegments is the utterance count after same-speaker compaction.
	CompactedSegments int

	// Substitutions counts term corrections by canonical term.
	Substitutions map[string]int

	// Artifacts lists every file written, in write order.
	Artifacts []string

	// Parts is the number of transcript part files (1 when no split applied).
	Parts int
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithArchiver injects an archiver instead of connecting one from config.
func WithArchiver(a Archiver) Option {
	return func(app *App) { app.archiver = a }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(app *App) { app.metrics = m }
}

// App owns the stage implementations for one configured pipeline.
type App struct {
	cfg       *config.Config
	cleaner   *cleanup.Cleaner
	corrector *correct.Corrector
	archiver  Archiver
	metrics   *observe.Metrics

	// closers are called in order by Close.
	closers []func()
}

// New resolves cfg into a ready-to-run App. The configuration is assumed
// validated (see config.Validate). A missing replacements file disables the
// corrector with a warning rather than failing the run; a configured but
// unreachable archive database is an error.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		cleaner: cleanup.New(cfg.Cleanup),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initCorrector(); err != nil {
		return nil, fmt.Errorf("app: init corrector: %w", err)
	}
	if err := a.initArchive(ctx); err != nil {
		return nil, fmt.Errorf("app: init archive: %w", err)
	}
	return a, nil
}

// initCorrector loads the TermMap and, when enabled, the phonetic fallback.
func (a *App) initCorrector() error {
	path := a.cfg.Correct.ReplacementsFile
	if path == "" {
		return nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(a.cfg.Session.BasePath, path)
	}

	terms, err := correct.LoadTermMap(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("replacements file not found, term correction disabled", "path", path)
			return nil
		}
		return err
	}
	slog.Info("loaded term replacements", "path", path, "terms", terms.Len())

	var copts []correct.Option
	if a.cfg.Correct.EnablePhonetic {
		matcher := phonetic.New(terms.Canonicals(),
			phonetic.WithPhoneticThreshold(a.cfg.Correct.PhoneticThreshold),
			phonetic.WithFuzzyThreshold(a.cfg.Correct.FuzzyThreshold),
		)
		copts = append(copts, correct.WithPhoneticMatcher(matcher))
	}
	a.corrector = correct.New(terms, copts...)
	return nil
}

// initArchive connects the PostgreSQL archive when a DSN is configured.
func (a *App) initArchive(ctx context.Context) error {
	if a.archiver != nil || a.cfg.Archive.PostgresDSN == "" {
		return nil
	}
	store, err := archive.NewStore(ctx, a.cfg.Archive.PostgresDSN)
	if err != nil {
		return err
	}
	a.archiver = store
	a.closers = append(a.closers, store.Close)
	return nil
}

// ShowTranscript loads the configured session and part from the archive and
// renders it as speaker-labelled transcript lines.
func (a *App) ShowTranscript(ctx context.Context) ([]string, error) {
	if a.archiver == nil {
		return nil, ErrNoArchive
	}
	segs, err := a.archiver.LoadTranscript(ctx, a.cfg.Session.Name, a.cfg.Session.Part)
	if err != nil {
		return nil, fmt.Errorf("app: load transcript: %w", err)
	}
	return render.TranscriptLines(segs), nil
}

// SearchArchive runs a full-text query across all archived transcripts and
// returns at most limit matches.
func (a *App) SearchArchive(ctx context.Context, query string, limit int) ([]archive.Entry, error) {
	if a.archiver == nil {
		return nil, ErrNoArchive
	}
	entries, err := a.archiver.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("app: search archive: %w", err)
	}
	return entries, nil
}

// Close releases resources held by the App, such as the archive pool.
func (a *App) Close() {
	for _, fn := range a.closers {
		fn()
	}
}

// speakerResult is the output of one per-speaker worker.
type speakerResult struct {
	report  ingest.Report
	cleaned segment.Sequence
	stats   cleanup.Stats
}

// Run executes the full pipeline once and returns its [Summary].
//
// Stages:
//
//  1. Discover input TSV files in the session directory, sorted by name.
//  2. Ingest and clean each speaker concurrently; write per-speaker tables.
//  3. Merge all speakers chronologically; write the combined table.
//  4. Compact consecutive same-speaker runs.
//  5. Correct campaign terms (when a TermMap is configured).
//  6. Write the merged table and the final transcript, split into parts.
//  7. Archive the merged transcript (when an archive is configured).
func (a *App) Run(ctx context.Context) (*Summary, error) {
	files, err := a.discoverInputs()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %q", ErrNoInput, a.cfg.Session.BasePath)
	}

	writer := render.NewWriter(a.cfg.Session.BasePath, a.cfg.Session.Name, a.cfg.Session.Part)
	summary := &Summary{Substitutions: map[string]int{}}

	// ── Per-speaker ingest + clean ────────────────────────────────────────
	results, artifacts, err := a.processSpeakers(ctx, files, writer)
	if err != nil {
		return nil, err
	}
	summary.Artifacts = append(summary.Artifacts, artifacts...)

	sequences := make([]segment.Sequence, len(results))
	for i, r := range results {
		sequences[i] = r.cleaned
		summary.Files = append(summary.Files, r.report)
		summary.Cleanup.Add(r.stats)
	}

	// ── Chronological merge ───────────────────────────────────────────────
	stopMerge := a.metrics.TimeStage(ctx, "merge")
	merged := merge.Chronological(sequences)
	summary.MergedSegments = len(merged)

	path, err := writer.WriteCombinedTable(merged)
	if err != nil {
		return nil, err
	}
	summary.Artifacts = append(summary.Artifacts, path)

	compacted := merge.Compact(merged)
	summary.CompactedSegments = len(compacted)
	a.metrics.RecordMerged(ctx, "compact", int64(len(merged)-len(compacted)))
	stopMerge()

	// ── Term correction ───────────────────────────────────────────────────
	if a.corrector != nil {
		stopCorrect := a.metrics.TimeStage(ctx, "correct")
		var result *correct.Result
		compacted, result = a.corrector.Correct(compacted)
		for _, sub := range result.Substitutions {
			a.metrics.RecordSubstitution(ctx, sub.Canonical, sub.Method)
		}
		summary.Substitutions = result.CountsByCanonical()
		stopCorrect()
	}

	// ── Render + split ────────────────────────────────────────────────────
	stopRender := a.metrics.TimeStage(ctx, "render")
	path, err = writer.WriteMergedTable(compacted)
	if err != nil {
		return nil, err
	}
	summary.Artifacts = append(summary.Artifacts, path)

	lines := render.TranscriptLines(compacted)
	parts := split.Lines(lines, a.cfg.Output.SplitThreshold, a.cfg.Output.OverlapLines)
	paths, err := writer.WriteTranscriptParts(lines, parts)
	if err != nil {
		return nil, err
	}
	summary.Artifacts = append(summary.Artifacts, paths...)
	summary.Parts = len(parts)
	a.metrics.PartsWritten.Add(ctx, int64(len(parts)))
	stopRender()

	// ── Archive ───────────────────────────────────────────────────────────
	if a.archiver != nil {
		stopArchive := a.metrics.TimeStage(ctx, "archive")
		err := a.archiver.WriteTranscript(ctx, a.cfg.Session.Name, a.cfg.Session.Part, compacted)
		stopArchive()
		if err != nil {
			return nil, err
		}
	}

	return summary, nil
}

// processSpeakers ingests, cleans, and writes the per-speaker table for every
// input file concurrently. Results come back in file order regardless of
// which worker finished first.
func (a *App) processSpeakers(ctx context.Context, files []string, writer *render.Writer) ([]speakerResult, []string, error) {
	results := make([]speakerResult, len(files))
	artifacts := make([]string, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			speaker := ingest.SpeakerForFile(file, a.cfg.Speakers)

			stop := a.metrics.TimeStage(ctx, "clean")
			seq, rep, err := ingest.ReadFile(file, a.cfg.Session.TimestampUnit, speaker)
			if err != nil {
				return err
			}

			cleaned, stats := a.cleaner.Clean(seq)
			stop()
			a.recordSpeakerMetrics(ctx, speaker, rep, stats)

			stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			path, err := writer.WriteSpeakerTable(cleaned, stem)
			if err != nil {
				return err
			}

			slog.Info("cleaned speaker transcript",
				"speaker", speaker,
				"file", rep.File,
				"in", stats.In,
				"out", stats.Out,
			)
			results[i] = speakerResult{report: rep, cleaned: cleaned, stats: stats}
			artifacts[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, artifacts, nil
}

// recordSpeakerMetrics emits ingest and cleanup counters for one speaker.
func (a *App) recordSpeakerMetrics(ctx context.Context, speaker string, rep ingest.Report, stats cleanup.Stats) {
	bySpeaker := metric.WithAttributes(attribute.String("speaker", speaker))
	a.metrics.SegmentsIngested.Add(ctx, int64(rep.Rows-rep.Skipped), bySpeaker)
	a.metrics.RowsSkipped.Add(ctx, int64(rep.Skipped), bySpeaker)

	a.metrics.RecordRemoved(ctx, "duplicates", int64(stats.DuplicatesRemoved))
	a.metrics.RecordRemoved(ctx, "short", int64(stats.ShortRemoved))
	a.metrics.RecordRemoved(ctx, "secondary_duplicates", int64(stats.SecondaryDuplicatesRemoved))
	a.metrics.RecordRemoved(ctx, "silence", int64(stats.SilenceRemoved))
	a.metrics.RecordMerged(ctx, "adjacent", int64(stats.Merges))
}

// discoverInputs returns the session's input TSV files, sorted by name so
// runs are deterministic. Tables written by a previous run are excluded.
func (a *App) discoverInputs() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(a.cfg.Session.BasePath, "*.tsv"))
	if err != nil {
		return nil, fmt.Errorf("app: list inputs: %w", err)
	}

	files := matches[:0]
	for _, m := range matches {
		if strings.HasSuffix(m, "_processed.tsv") {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}
