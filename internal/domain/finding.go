package domain

import "time"

// Finding represents one anti-pattern occurrence reported by an analyzer.
type Finding struct {
	File         string `json:"file"`
	Line         int    `json:"line"`
	Type         string `json:"type"`
	Category     string `json:"category"`
	Severity     string `json:"severity"`
	Matched      string `json:"matched,omitempty"`
	Message      string `json:"message"`
	SuggestedFix string `json:"suggested_fix,omitempty"`
	FixAvailable bool   `json:"fix_available"`
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Finding types produced by the database analyzer.
const (
	FindingRawDriverUsage     = "raw_driver_usage"
	FindingMissingTransaction = "missing_transaction"
	FindingNPlusOneQuery      = "n_plus_one_query"
	FindingIndexOpportunity   = "index_opportunity"
)

// Finding types produced by the error-handling analyzer.
const (
	FindingBareExcept      = "bare_except"
	FindingPrintInExcept   = "print_in_except"
	FindingSilentExcept    = "silent_except"
	FindingMissingRetry    = "missing_retry"
	FindingUncheckedFileOp = "unchecked_file_op"
)

// Finding types produced by the hardcoded-config analyzer.
const (
	FindingHardcodedPort      = "hardcoded_port"
	FindingHardcodedTimeout   = "hardcoded_timeout"
	FindingHardcodedSleep     = "hardcoded_sleep"
	FindingHardcodedRetries   = "hardcoded_retries"
	FindingHardcodedBatchSize = "hardcoded_batch_size"
	FindingHardcodedURL       = "hardcoded_url"
	FindingHardcodedPath      = "hardcoded_path"
)

// Finding types produced by the integration analyzer.
const (
	FindingMetadataKeyVariant = "metadata_key_variant"
	FindingUnsafeSubprocess   = "unsafe_subprocess"
	FindingCacheNoCleanup     = "cache_without_cleanup"
	FindingNoServiceCheck     = "no_service_check"
)

// FileResult pairs an input file with the outcome of running one analyzer
// over it. A nil Findings slice with TimedOut set means the analysis was
// abandoned at the per-file deadline, not that the file is clean.
type FileResult struct {
	Path     string    `json:"path"`
	Findings []Finding `json:"findings"`
	TimedOut bool      `json:"timed_out"`
	Cached   bool      `json:"cached"`
}

// ScanReport aggregates the outcome of a full health scan.
type ScanReport struct {
	Root           string         `json:"root"`
	CommitHash     string         `json:"commit_hash,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	Duration       time.Duration  `json:"duration"`
	FilesAnalyzed  int            `json:"files_analyzed"`
	FilesSkipped   int            `json:"files_skipped"`
	FilesTimedOut  int            `json:"files_timed_out"`
	CacheHits      int            `json:"cache_hits"`
	Findings       []Finding      `json:"findings"`
	CountsByType   map[string]int `json:"counts_by_type"`
	AutoFixEnabled bool           `json:"auto_fix_enabled"`
	FixesApplied   int            `json:"fixes_applied"`
}

// CountBySeverity returns the number of findings at the given severity.
func (r *ScanReport) CountBySeverity(severity string) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == severity {
			n++
		}
	}
	return n
}
