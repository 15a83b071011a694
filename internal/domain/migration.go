package domain

import "time"

// Backend identifies a storage engine behind the memos service.
type Backend string

const (
	BackendSQLite     Backend = "sqlite"
	BackendPostgreSQL Backend = "postgresql"
	BackendPgvector   Backend = "pgvector"
)

// RiskLevel classifies how risky a migration is expected to be.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// BackendMetrics is an on-demand snapshot of the current backend's workload.
// It is never persisted; backend selection is a pure function of this struct.
type BackendMetrics struct {
	EntityCount      int64   `json:"entity_count"`
	DataSizeMB       float64 `json:"data_size_mb"`
	AvgQueryTimeMS   float64 `json:"avg_query_time_ms"`
	VectorOperations bool    `json:"vector_operations"`
	ConcurrentUsers  int     `json:"concurrent_users"`
}

// ChooseBackend selects the optimal backend for the given metrics.
// Thresholds: >1M entities, vector ops, or >5 concurrent users demand
// pgvector; >100k entities, >1s queries, or >2 users demand postgresql.
func ChooseBackend(m BackendMetrics) Backend {
	switch {
	case m.EntityCount > 1_000_000 || m.VectorOperations || m.ConcurrentUsers > 5:
		return BackendPgvector
	case m.EntityCount > 100_000 || m.AvgQueryTimeMS > 1000 || m.ConcurrentUsers > 2:
		return BackendPostgreSQL
	default:
		return BackendSQLite
	}
}

// RiskFor grades migration risk from the entity count alone.
func RiskFor(m BackendMetrics) RiskLevel {
	switch {
	case m.EntityCount > 1_000_000:
		return RiskHigh
	case m.EntityCount > 100_000:
		return RiskMedium
	default:
		return RiskLow
	}
}

// StepKind tags a migration step with its handler. Dispatch is by this enum,
// never by matching the human-readable step name.
type StepKind string

const (
	StepVerifyPrerequisites StepKind = "verify_prerequisites"
	StepCreateBackup        StepKind = "create_backup"
	StepExportData          StepKind = "export_data"
	StepStopService         StepKind = "stop_service"
	StepProvisionTarget     StepKind = "provision_target"
	StepInstallPgvector     StepKind = "install_pgvector"
	StepImportData          StepKind = "import_data"
	StepUpdateConfig        StepKind = "update_config"
	StepStartService        StepKind = "start_service"
	StepVerifyIntegrity     StepKind = "verify_integrity"

	StepRestoreBackup StepKind = "restore_backup"
	StepRevertConfig  StepKind = "revert_config"
)

// StepStatus is the lifecycle state of one migration step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
	StepSkipped   StepStatus = "skipped"
)

// Terminal reports whether the status is final. A terminal step never
// regresses to pending within one execution.
func (s StepStatus) Terminal() bool {
	return s == StepCompleted || s == StepFailed || s == StepSkipped
}

// MigrationStep is one named step in a MigrationPlan. It is owned exclusively
// by its parent plan and mutated in place during execution.
type MigrationStep struct {
	Kind              StepKind   `json:"kind"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Status            StepStatus `json:"status"`
	StartedAt         time.Time  `json:"started_at,omitzero"`
	FinishedAt        time.Time  `json:"finished_at,omitzero"`
	Error             string     `json:"error,omitempty"`
	RollbackAvailable bool       `json:"rollback_available"`
}

// Duration returns the elapsed execution time of a finished step.
func (s *MigrationStep) Duration() time.Duration {
	if s.StartedAt.IsZero() || s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// MigrationPlan is an ordered runbook for moving the service from one
// backend to another. Built once, mutated step-by-step during execution,
// and kept only in the in-memory history afterwards.
type MigrationPlan struct {
	ID                string          `json:"id"`
	Source            Backend         `json:"source"`
	Target            Backend         `json:"target"`
	Steps             []MigrationStep `json:"steps"`
	RollbackSteps     []MigrationStep `json:"rollback_steps"`
	EstimatedDuration time.Duration   `json:"estimated_duration"`
	Risk              RiskLevel       `json:"risk"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ExecutionStatus is the overall outcome of one plan execution.
type ExecutionStatus string

const (
	ExecutionCompleted       ExecutionStatus = "completed"
	ExecutionFailed          ExecutionStatus = "failed"
	ExecutionDryRunCompleted ExecutionStatus = "dry_run_completed"
)

// ExecutionResult summarizes one run of a MigrationPlan.
type ExecutionResult struct {
	PlanID            string          `json:"plan_id"`
	Status            ExecutionStatus `json:"status"`
	StepsCompleted    int             `json:"steps_completed"`
	StepsFailed       int             `json:"steps_failed"`
	StepsSkipped      int             `json:"steps_skipped"`
	RollbackRequired  bool            `json:"rollback_required"`
	RollbackPerformed bool            `json:"rollback_performed"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	Error             string          `json:"error,omitempty"`
}

// Readiness is the structured verdict of a pre-migration assessment.
// Blockers are hard stops; prerequisites are actionable but soft.
type Readiness struct {
	Ready           bool           `json:"ready"`
	Metrics         BackendMetrics `json:"metrics"`
	Recommended     Backend        `json:"recommended"`
	Risk            RiskLevel      `json:"risk"`
	Blockers        []string       `json:"blockers,omitempty"`
	Prerequisites   []string       `json:"prerequisites,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}
