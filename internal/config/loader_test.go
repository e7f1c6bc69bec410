package config_test

import (
	"strings"
	"testing"

	"github.com/philote/TTRPG-session-notes/internal/config"
)

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader returned error: %v", err)
	}

	if cfg.Cleanup.DuplicateTextLength != 4 {
		t.Errorf("DuplicateTextLength = %d, want 4", cfg.Cleanup.DuplicateTextLength)
	}
	if cfg.Cleanup.MergeThresholdMS != 10 {
		t.Errorf("MergeThresholdMS = %d, want 10", cfg.Cleanup.MergeThresholdMS)
	}
	if cfg.Cleanup.ShortTextLength != 10 {
		t.Errorf("ShortTextLength = %d, want 10", cfg.Cleanup.ShortTextLength)
	}
	if cfg.Session.TimestampUnit != config.UnitMilliseconds {
		t.Errorf("TimestampUnit = %q, want ms", cfg.Session.TimestampUnit)
	}
	if cfg.Correct.ReplacementsFile != "merge_replacements.json" {
		t.Errorf("ReplacementsFile = %q", cfg.Correct.ReplacementsFile)
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("LogLevel = %q, want info", cfg.Server.LogLevel)
	}
}

func TestLoadFromReader_OverridesKeepOtherDefaults(t *testing.T) {
	t.Parallel()

	const src = `
session:
  name: "COS Session 4"
  base_path: "/tmp/session"
cleanup:
  merge_threshold_ms: 250
`
	cfg, err := config.LoadFromReader(strings.NewReader(src))
	if err != nil {
		t.Fatalf("LoadFromReader returned error: %v", err)
	}
	if cfg.Cleanup.MergeThresholdMS != 250 {
		t.Errorf("MergeThresholdMS = %d, want 250", cfg.Cleanup.MergeThresholdMS)
	}
	// Keys absent from the YAML keep their defaults.
	if cfg.Cleanup.DuplicateTextLength != 4 {
		t.Errorf("DuplicateTextLength = %d, want default 4", cfg.Cleanup.DuplicateTextLength)
	}
}

func TestLoadFromReader_UnknownKeyRejected(t *testing.T) {
	t.Parallel()

	const src = `
session:
  base_path: "/tmp"
  merge_treshold_ms: 5
`
	if _, err := config.LoadFromReader(strings.NewReader(src)); err == nil {
		t.Error("LoadFromReader accepted a misspelled key")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *config.Config {
		cfg := config.Default()
		cfg.Session.BasePath = "/tmp/session"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid", func(*config.Config) {}, false},
		{"missing base path", func(c *config.Config) { c.Session.BasePath = "" }, true},
		{"bad log level", func(c *config.Config) { c.Server.LogLevel = "verbose" }, true},
		{"bad unit", func(c *config.Config) { c.Session.TimestampUnit = "minutes" }, true},
		{"negative duplicate length", func(c *config.Config) { c.Cleanup.DuplicateTextLength = -1 }, true},
		{"negative merge threshold", func(c *config.Config) { c.Cleanup.MergeThresholdMS = -5 }, true},
		{"negative short length", func(c *config.Config) { c.Cleanup.ShortTextLength = -1 }, true},
		{"phonetic threshold above one", func(c *config.Config) { c.Correct.PhoneticThreshold = 1.5 }, true},
		{"fuzzy threshold negative", func(c *config.Config) { c.Correct.FuzzyThreshold = -0.1 }, true},
		{"negative overlap", func(c *config.Config) { c.Output.OverlapLines = -1 }, true},
		{"overlap not below split threshold", func(c *config.Config) {
			c.Output.SplitThreshold = 10
			c.Output.OverlapLines = 10
		}, true},
		{"overlap below split threshold", func(c *config.Config) {
			c.Output.SplitThreshold = 10
			c.Output.OverlapLines = 9
		}, false},
		{"split disabled ignores overlap bound", func(c *config.Config) {
			c.Output.SplitThreshold = 0
			c.Output.OverlapLines = 50
		}, false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tc.mutate(cfg)
			err := config.Validate(cfg)
			if tc.wantErr && err == nil {
				t.Error("Validate accepted an invalid config")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("Validate rejected a valid config: %v", err)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Session.BasePath = ""
	cfg.Cleanup.MergeThresholdMS = -1
	cfg.Server.LogLevel = "loud"

	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	msg := err.Error()
	for _, want := range []string{"base_path", "merge_threshold_ms", "log_level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q does not mention %s", msg, want)
		}
	}
}

func TestCleanupToggles(t *testing.T) {
	t.Parallel()

	on, off := true, false

	c := config.CleanupConfig{DuplicateTextLength: 4, ShortTextLength: 10}
	if !c.DuplicateCollapseEnabled() || !c.AdjacentMergeEnabled() || !c.ShortRemovalEnabled() || !c.SecondaryDedupeEnabled() {
		t.Error("nil enable flags should mean enabled")
	}

	c.EnableDuplicateCollapse = &off
	if c.DuplicateCollapseEnabled() {
		t.Error("explicit false flag should disable the pass")
	}

	c = config.CleanupConfig{DuplicateTextLength: 0, EnableDuplicateCollapse: &on}
	if c.DuplicateCollapseEnabled() {
		t.Error("zero duplicate length should disable the collapse even when the flag is on")
	}

	c = config.CleanupConfig{ShortTextLength: 0}
	if c.ShortRemovalEnabled() {
		t.Error("zero short length should disable short removal")
	}
}
