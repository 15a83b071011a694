package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

const fileName = ".pensieve-doctor.yaml"

// Loader reads .pensieve-doctor.yaml from the scan root and overlays
// PENSIEVE_* environment variables (PENSIEVE_MAX_FILES, PENSIEVE_AUTO_FIX,
// PENSIEVE_SINCE_COMMIT, ...). Environment always wins over the file.
type Loader struct{}

func New() *Loader { return &Loader{} }

// Load returns the effective configuration for scanRoot. A missing config
// file is not an error; defaults plus environment apply.
func (l *Loader) Load(scanRoot string) (domain.Config, error) {
	v := viper.New()

	defaults := domain.DefaultConfig()
	v.SetDefault("scan_root", scanRoot)
	v.SetDefault("service_url", defaults.ServiceURL)
	v.SetDefault("memos_bin", defaults.MemosBin)
	v.SetDefault("max_files", defaults.MaxFiles)
	v.SetDefault("max_files_per_test", defaults.MaxFilesPerTest)
	v.SetDefault("max_workers", defaults.MaxWorkers)
	v.SetDefault("auto_fix", defaults.AutoFix)
	v.SetDefault("test_incremental", defaults.TestIncremental)
	v.SetDefault("since_commit", defaults.SinceCommit)
	v.SetDefault("test_timeout", defaults.TestTimeout)
	v.SetDefault("api_timeout", defaults.APITimeout)
	v.SetDefault("cache_dir", defaults.CacheDir)
	v.SetDefault("report_dir", defaults.ReportDir)
	v.SetDefault("backup_dir", defaults.BackupDir)
	v.SetDefault("vector_operations", defaults.VectorOperations)
	v.SetDefault("concurrent_users", defaults.ConcurrentUsers)

	v.SetEnvPrefix("PENSIEVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := filepath.Join(scanRoot, fileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return domain.Config{}, fmt.Errorf("reading %s: %w", fileName, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parsing %s: %w", fileName, err)
	}

	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
