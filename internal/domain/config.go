package domain

import (
	"fmt"
	"runtime"
	"time"
)

// Config is the runtime configuration of the doctor. Values come from
// .pensieve-doctor.yaml overlaid with PENSIEVE_* environment variables.
type Config struct {
	// ScanRoot is the root of the Pensieve checkout to analyze.
	ScanRoot string `mapstructure:"scan_root"`

	// ServiceURL is the base URL of the local memos REST service.
	ServiceURL string `mapstructure:"service_url"`

	// MemosBin is the memos CLI binary name or path.
	MemosBin string `mapstructure:"memos_bin"`

	MaxFiles        int  `mapstructure:"max_files"`
	MaxFilesPerTest int  `mapstructure:"max_files_per_test"`
	MaxWorkers      int  `mapstructure:"max_workers"`
	AutoFix         bool `mapstructure:"auto_fix"`
	TestIncremental bool `mapstructure:"test_incremental"`

	// SinceCommit restricts the scan to files changed since this commit.
	SinceCommit string `mapstructure:"since_commit"`

	// TestTimeout is the per-file analysis deadline.
	TestTimeout time.Duration `mapstructure:"test_timeout"`

	// APITimeout bounds individual REST calls to the service.
	APITimeout time.Duration `mapstructure:"api_timeout"`

	// CacheDir holds per-file analysis cache entries.
	CacheDir string `mapstructure:"cache_dir"`

	// ReportDir is where JSON artifacts are written.
	ReportDir string `mapstructure:"report_dir"`

	// BackupDir receives database backups during migration.
	BackupDir string `mapstructure:"backup_dir"`

	// VectorOperations and ConcurrentUsers feed backend selection; they are
	// deployment facts the doctor cannot measure from outside.
	VectorOperations bool `mapstructure:"vector_operations"`
	ConcurrentUsers  int  `mapstructure:"concurrent_users"`
}

// DefaultConfig returns the configuration used when no file or environment
// overrides are present.
func DefaultConfig() Config {
	return Config{
		ScanRoot:        ".",
		ServiceURL:      "http://localhost:8839",
		MemosBin:        "memos",
		MaxFiles:        50,
		MaxFilesPerTest: 25,
		MaxWorkers:      runtime.NumCPU(),
		TestTimeout:     30 * time.Second,
		APITimeout:      10 * time.Second,
		CacheDir:        ".pensieve_health_cache",
		ReportDir:       ".",
		BackupDir:       "backups",
	}
}

// Validate catches configuration values that would make a scan meaningless.
func (c Config) Validate() error {
	if c.MaxFiles <= 0 {
		return fmt.Errorf("max_files must be positive, got %d", c.MaxFiles)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max_workers must be positive, got %d", c.MaxWorkers)
	}
	if c.TestTimeout <= 0 {
		return fmt.Errorf("test_timeout must be positive, got %s", c.TestTimeout)
	}
	if c.ServiceURL == "" {
		return fmt.Errorf("service_url must not be empty")
	}
	return nil
}
