// Package config provides the configuration schema and loader for the
// session-notes transcript pipeline.
//
// The pipeline stages themselves never read configuration sources — they
// receive explicit parameter values. This package is the single place where
// YAML is decoded and contract violations (negative thresholds, inconsistent
// split settings) are rejected before any processing begins.
package config

// LogLevel controls log verbosity for the sessionnotes CLI.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// TimestampUnit is the unit of the start/end columns emitted by the
// transcription engine. Ingestion normalises everything to integer
// milliseconds.
type TimestampUnit string

const (
	UnitMilliseconds TimestampUnit = "ms"
	UnitSeconds      TimestampUnit = "s"
)

// IsValid reports whether u is a recognised timestamp unit.
func (u TimestampUnit) IsValid() bool {
	return u == UnitMilliseconds || u == UnitSeconds
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Session SessionConfig `yaml:"session"`
	Cleanup CleanupConfig `yaml:"cleanup"`
	Correct CorrectConfig `yaml:"correct"`
	Output  OutputConfig  `yaml:"output"`
	Archive ArchiveConfig `yaml:"archive"`
	Server  ServerConfig  `yaml:"server"`

	// Speakers maps a substring of a recording file name to the display name
	// used for that participant (e.g., "craig-gradels" → "Izzy"). Files whose
	// names match no key fall back to the file stem.
	Speakers map[string]string `yaml:"speakers"`
}

// SessionConfig identifies the recording session being processed and where
// its per-speaker TSV files live.
type SessionConfig struct {
	// Name is the session identifier used in output file names
	// (e.g., "COS Session 4").
	Name string `yaml:"name"`

	// Part distinguishes multiple recordings of one session. Empty means the
	// session was recorded in one piece; output names then use "complete".
	Part string `yaml:"part"`

	// BasePath is the directory holding the per-speaker TSV files. Output
	// artifacts are written next to them.
	BasePath string `yaml:"base_path"`

	// TimestampUnit is the unit of the TSV start/end columns. Default: ms.
	TimestampUnit TimestampUnit `yaml:"timestamp_unit"`
}

// CleanupConfig holds the per-speaker cleaning thresholds. A pass can be
// switched off with its enable flag; a zero threshold additionally disables
// the passes that would be no-ops at zero.
type CleanupConfig struct {
	// DuplicateTextLength is the maximum text length (in characters) for the
	// short-duplicate collapse: repeated texts at or below this length keep
	// only their first occurrence. Default: 4.
	DuplicateTextLength int `yaml:"duplicate_text_length"`

	// MergeThresholdMS is the largest gap, in milliseconds, between one
	// segment's end and the next segment's start for the two to be merged.
	// The boundary is inclusive: a gap exactly equal to the threshold merges.
	// Default: 10.
	MergeThresholdMS int64 `yaml:"merge_threshold_ms"`

	// ShortTextLength removes segments whose text is strictly shorter than
	// this after merging. Default: 10.
	ShortTextLength int `yaml:"short_text_length"`

	// SecondaryDuplicateTextLength bounds the post-merge duplicate collapse.
	// Zero or negative means no bound: every exact text duplicate collapses
	// to its first occurrence.
	SecondaryDuplicateTextLength int `yaml:"secondary_duplicate_text_length"`

	// SilencePatterns lists exact texts to drop as transcription
	// hallucinations ("[BLANK_AUDIO]", the "Thank you." runs Whisper emits
	// for silent stretches). Empty disables the pass.
	SilencePatterns []string `yaml:"silence_patterns"`

	EnableDuplicateCollapse *bool `yaml:"enable_duplicate_collapse"`
	EnableAdjacentMerge     *bool `yaml:"enable_adjacent_merge"`
	EnableShortRemoval      *bool `yaml:"enable_short_removal"`
	EnableSecondaryDedupe   *bool `yaml:"enable_secondary_dedupe"`
}

// CorrectConfig configures the term-correction stage.
type CorrectConfig struct {
	// ReplacementsFile is the JSON TermMap path, resolved against
	// Session.BasePath when relative. Empty disables the corrector.
	ReplacementsFile string `yaml:"replacements_file"`

	// EnablePhonetic turns on the phonetic fallback pass: tokens the literal
	// TermMap did not rewrite are matched against canonical terms by
	// pronunciation similarity.
	EnablePhonetic bool `yaml:"enable_phonetic"`

	// PhoneticThreshold is the minimum Jaro-Winkler score for a
	// phonetically-matched canonical term to be accepted. Default: 0.70.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`

	// FuzzyThreshold is the minimum Jaro-Winkler score when no phonetic code
	// overlap exists. Default: 0.85.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// OutputConfig controls rendering and splitting of the final transcript.
type OutputConfig struct {
	// SplitThreshold is the maximum number of transcript lines per output
	// part. Zero or negative disables splitting.
	SplitThreshold int `yaml:"split_threshold"`

	// OverlapLines duplicates the last N lines of each part at the head of
	// the next part so downstream consumers keep cross-part context.
	// Must be smaller than SplitThreshold when splitting is enabled.
	OverlapLines int `yaml:"overlap_lines"`
}

// ArchiveConfig configures the optional PostgreSQL transcript archive.
type ArchiveConfig struct {
	// PostgresDSN is the connection string for the archive database.
	// Empty disables archiving.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ServerConfig holds logging and metrics settings.
type ServerConfig struct {
	// LogLevel controls verbosity. Default: info.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr, when non-empty, starts an HTTP listener serving
	// Prometheus metrics on /metrics (e.g., ":9090").
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns a Config populated with the pipeline's default thresholds.
// [LoadFromReader] decodes on top of these, so absent YAML keys keep their
// defaults.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			TimestampUnit: UnitMilliseconds,
		},
		Cleanup: CleanupConfig{
			DuplicateTextLength: 4,
			MergeThresholdMS:    10,
			ShortTextLength:     10,
		},
		Correct: CorrectConfig{
			ReplacementsFile:  "merge_replacements.json",
			PhoneticThreshold: 0.70,
			FuzzyThreshold:    0.85,
		},
		Server: ServerConfig{
			LogLevel: LogInfo,
		},
	}
}

// enabled interprets a tri-state enable flag: nil means "on by default".
func enabled(flag *bool) bool {
	return flag == nil || *flag
}

// DuplicateCollapseEnabled reports whether the short-duplicate collapse runs.
func (c CleanupConfig) DuplicateCollapseEnabled() bool {
	return enabled(c.EnableDuplicateCollapse) && c.DuplicateTextLength > 0
}

// AdjacentMergeEnabled reports whether the adjacent merge runs.
func (c CleanupConfig) AdjacentMergeEnabled() bool {
	return enabled(c.EnableAdjacentMerge)
}

// ShortRemovalEnabled reports whether the short-line removal runs.
func (c CleanupConfig) ShortRemovalEnabled() bool {
	return enabled(c.EnableShortRemoval) && c.ShortTextLength > 0
}

// SecondaryDedupeEnabled reports whether the post-merge duplicate collapse runs.
func (c CleanupConfig) SecondaryDedupeEnabled() bool {
	return enabled(c.EnableSecondaryDedupe)
}
