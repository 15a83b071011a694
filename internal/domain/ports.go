package domain

import (
	"context"
	"time"
)

// FileSelector enumerates source files under the scan budget.
type FileSelector interface {
	Select(cfg Config) (*Selection, error)
}

// SourceParser builds the analyzed outline of one source file.
type SourceParser interface {
	ParseFile(path string) (*SourceFile, error)
}

// Analyzer scans one file's outline for a family of anti-patterns.
// Analyzers never return errors; unparseable input yields no findings.
type Analyzer interface {
	Name() string
	Analyze(f *SourceFile) []Finding
}

// AnalysisCache stores per-file analyzer results keyed by content checksum.
type AnalysisCache interface {
	Load(path, analyzer, checksum string) ([]Finding, bool)
	Save(path, analyzer, checksum string, findings []Finding) error
	Sweep(maxAge time.Duration) error
}

// ServiceAPI is the REST surface of the local memos service.
type ServiceAPI interface {
	Health(ctx context.Context) (*APIHealth, error)
	Frames(ctx context.Context, limit, offset int, processed *bool) (*FramePage, error)
	Frame(ctx context.Context, id int64) (*Frame, error)
	OCR(ctx context.Context, frameID int64) (*OCRResult, error)
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)
	SetMetadata(ctx context.Context, frameID int64, key, value string) error
	Metadata(ctx context.Context, frameID int64, key string) (map[string]string, error)
	ServiceConfig(ctx context.Context) (*ServiceConfig, error)
	EntityCount(ctx context.Context) (int64, error)
}

// Prober issues raw discovery probes against the service.
type Prober interface {
	Probe(ctx context.Context, method, path string) (status int, elapsed time.Duration, err error)
	FetchJSON(ctx context.Context, path string, v any) error
}

// ServiceCommand names a memos CLI subcommand.
type ServiceCommand string

const (
	CmdPS      ServiceCommand = "ps"
	CmdStart   ServiceCommand = "start"
	CmdStop    ServiceCommand = "stop"
	CmdRestart ServiceCommand = "restart"
	CmdScan    ServiceCommand = "scan"
	CmdReindex ServiceCommand = "reindex"
	CmdConfig  ServiceCommand = "config"
	CmdMigrate ServiceCommand = "migrate"
	CmdVersion ServiceCommand = "version"
)

// CommandResult is the outcome of one memos CLI invocation.
type CommandResult struct {
	Command  ServiceCommand
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// CommandStats is the rolling call statistics for one memos CLI subcommand.
type CommandStats struct {
	Calls       int           `json:"calls"`
	Failures    int           `json:"failures"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// ServiceController drives the memos CLI.
type ServiceController interface {
	Run(ctx context.Context, cmd ServiceCommand, args ...string) (*CommandResult, error)
	Stats(cmd ServiceCommand) CommandStats
}

// GitInfo answers questions about the scan root's git state.
type GitInfo interface {
	IsGitRepo(path string) bool
	CommitHash(path string) (string, error)
	ChangedSince(path, commit string) ([]string, error)
}
