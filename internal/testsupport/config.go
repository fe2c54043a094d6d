package testsupport

import (
	"path/filepath"
	"testing"

	"docpipe/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test,
// with all pipeline directories already created.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.LakeDir = filepath.Join(base, "lake")
	cfg.Paths.QueueDir = filepath.Join(base, "queues")
	cfg.Paths.DBDir = filepath.Join(base, "db")
	cfg.Paths.ReportDir = filepath.Join(base, "reports")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithMaxAttempts overrides the retry attempt cap.
func WithMaxAttempts(n int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxAttempts = n
	}
}

// WithRulesPath points the config at an external appetite rules file.
func WithRulesPath(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Rules.Path = path
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.DataDir
}
