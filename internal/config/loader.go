package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path. It is a convenience
// wrapper around [LoadFromReader].
//
// Load does not validate: callers apply their overrides (CLI flags) first and
// then call [Validate] on the final value.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default]. Unknown
// keys are rejected so typos surface immediately instead of silently keeping
// a default. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. Violations are
// caller contract errors — the pipeline must not start with any of them — so
// all failures found are returned as one joined error.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Session.TimestampUnit != "" && !cfg.Session.TimestampUnit.IsValid() {
		errs = append(errs, fmt.Errorf("session.timestamp_unit %q is invalid; valid values: ms, s", cfg.Session.TimestampUnit))
	}
	if cfg.Session.BasePath == "" {
		errs = append(errs, errors.New("session.base_path is required"))
	}

	// Cleanup thresholds. Negative values are contract violations, not
	// "disabled" markers — disabling is done with the enable flags.
	if cfg.Cleanup.DuplicateTextLength < 0 {
		errs = append(errs, fmt.Errorf("cleanup.duplicate_text_length %d is negative", cfg.Cleanup.DuplicateTextLength))
	}
	if cfg.Cleanup.MergeThresholdMS < 0 {
		errs = append(errs, fmt.Errorf("cleanup.merge_threshold_ms %d is negative", cfg.Cleanup.MergeThresholdMS))
	}
	if cfg.Cleanup.ShortTextLength < 0 {
		errs = append(errs, fmt.Errorf("cleanup.short_text_length %d is negative", cfg.Cleanup.ShortTextLength))
	}

	if cfg.Correct.PhoneticThreshold < 0 || cfg.Correct.PhoneticThreshold > 1 {
		errs = append(errs, fmt.Errorf("correct.phonetic_threshold %.2f is out of range [0, 1]", cfg.Correct.PhoneticThreshold))
	}
	if cfg.Correct.FuzzyThreshold < 0 || cfg.Correct.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("correct.fuzzy_threshold %.2f is out of range [0, 1]", cfg.Correct.FuzzyThreshold))
	}

	if cfg.Output.OverlapLines < 0 {
		errs = append(errs, fmt.Errorf("output.overlap_lines %d is negative", cfg.Output.OverlapLines))
	}
	if cfg.Output.SplitThreshold > 0 && cfg.Output.OverlapLines >= cfg.Output.SplitThreshold {
		errs = append(errs, fmt.Errorf("output.overlap_lines %d must be smaller than output.split_threshold %d", cfg.Output.OverlapLines, cfg.Output.SplitThreshold))
	}

	// Soft problems only get warnings; the run can proceed.
	if cfg.Cleanup.ShortTextLength > 0 && cfg.Cleanup.ShortTextLength <= cfg.Cleanup.DuplicateTextLength {
		slog.Warn("cleanup.short_text_length is not above cleanup.duplicate_text_length; short-line removal will drop every text the duplicate collapse considers",
			"short_text_length", cfg.Cleanup.ShortTextLength,
			"duplicate_text_length", cfg.Cleanup.DuplicateTextLength,
		)
	}
	if cfg.Correct.ReplacementsFile == "" {
		slog.Warn("correct.replacements_file is empty; term correction is disabled")
	}

	return errors.Join(errs...)
}
