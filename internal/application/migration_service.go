package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// rollbackThreshold is the number of completed steps after which a failure
// triggers automatic rollback instead of leaving the partial state in place.
const rollbackThreshold = 2

// MigrationService assesses, plans and executes backend migrations for the
// memos service. Executed plans are kept in an in-memory history only.
type MigrationService struct {
	api     domain.ServiceAPI
	control domain.ServiceController
	health  *HealthService
	cfg     domain.Config
	logger  hclog.Logger

	mu      sync.Mutex
	history []*domain.ExecutionResult
}

func NewMigrationService(api domain.ServiceAPI, control domain.ServiceController, health *HealthService, cfg domain.Config, logger hclog.Logger) *MigrationService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &MigrationService{
		api: api, control: control, health: health, cfg: cfg, logger: logger,
	}
}

// CollectMetrics samples the live service for the numbers backend selection
// needs. Metrics are a point-in-time snapshot, never persisted.
func (s *MigrationService) CollectMetrics(ctx context.Context) (domain.BackendMetrics, error) {
	metrics := domain.BackendMetrics{
		VectorOperations: s.cfg.VectorOperations,
		ConcurrentUsers:  s.cfg.ConcurrentUsers,
	}

	count, err := s.api.EntityCount(ctx)
	if err != nil {
		return metrics, fmt.Errorf("counting entities: %w", err)
	}
	metrics.EntityCount = count

	if path := s.databasePath(ctx); path != "" {
		if info, err := os.Stat(path); err == nil {
			metrics.DataSizeMB = float64(info.Size()) / (1024 * 1024)
		}
	}

	metrics.AvgQueryTimeMS = s.sampleQueryTime(ctx)
	return metrics, nil
}

// sampleQueryTime times a handful of representative API queries and averages
// them. Failed queries are excluded rather than counted as slow.
func (s *MigrationService) sampleQueryTime(ctx context.Context) float64 {
	var total time.Duration
	samples := 0

	probes := []func(context.Context) error{
		func(ctx context.Context) error {
			_, err := s.api.Frames(ctx, 10, 0, nil)
			return err
		},
		func(ctx context.Context) error {
			_, err := s.api.Search(ctx, "test", 5)
			return err
		},
		func(ctx context.Context) error {
			_, err := s.api.Frames(ctx, 1, 100, nil)
			return err
		},
	}
	for _, probe := range probes {
		start := time.Now()
		if err := probe(ctx); err != nil {
			continue
		}
		total += time.Since(start)
		samples++
	}
	if samples == 0 {
		return 0
	}
	return float64(total.Milliseconds()) / float64(samples)
}

// AssessReadiness gathers metrics and grades whether a migration can start.
// Blockers stop the migration; prerequisites are actionable but soft.
func (s *MigrationService) AssessReadiness(ctx context.Context) (*domain.Readiness, error) {
	metrics, err := s.CollectMetrics(ctx)
	if err != nil {
		return &domain.Readiness{
			Blockers: []string{fmt.Sprintf("cannot collect backend metrics: %v", err)},
		}, nil
	}

	r := &domain.Readiness{
		Metrics:     metrics,
		Recommended: domain.ChooseBackend(metrics),
		Risk:        domain.RiskFor(metrics),
	}

	if r.Recommended == domain.BackendSQLite {
		r.Recommendations = append(r.Recommendations,
			"current workload fits sqlite; no migration needed")
	}

	if s.health != nil && !s.health.IsHealthy(ctx, time.Minute) {
		r.Blockers = append(r.Blockers, "memos service is not healthy")
	}

	if path := s.databasePath(ctx); path != "" {
		if info, err := os.Stat(path); err == nil {
			free, ok := diskFreeBytes(filepath.Dir(path))
			if ok && free < 2*uint64(info.Size()) {
				r.Blockers = append(r.Blockers, fmt.Sprintf(
					"insufficient disk space: need %d MB free, have %d MB",
					2*info.Size()/(1024*1024), free/(1024*1024)))
			}
		} else {
			r.Blockers = append(r.Blockers, "database file not found: "+path)
		}
	} else {
		r.Prerequisites = append(r.Prerequisites, "determine database path via memos config")
	}

	if r.Recommended != domain.BackendSQLite {
		r.Prerequisites = append(r.Prerequisites,
			"provision a PostgreSQL instance reachable from this host")
		if r.Recommended == domain.BackendPgvector {
			r.Prerequisites = append(r.Prerequisites,
				"ensure the pgvector extension is installable on the target")
		}
	}
	if r.Risk == domain.RiskHigh {
		r.Recommendations = append(r.Recommendations,
			"schedule a maintenance window; dataset exceeds one million entities")
	}

	r.Ready = len(r.Blockers) == 0
	return r, nil
}

// BuildPlan produces the ordered runbook for moving source to target.
func (s *MigrationService) BuildPlan(source, target domain.Backend, metrics domain.BackendMetrics) *domain.MigrationPlan {
	plan := &domain.MigrationPlan{
		ID:        uuid.NewString(),
		Source:    source,
		Target:    target,
		Risk:      domain.RiskFor(metrics),
		CreatedAt: time.Now(),
	}

	add := func(kind domain.StepKind, name, desc string, rollback bool) {
		plan.Steps = append(plan.Steps, domain.MigrationStep{
			Kind:              kind,
			Name:              name,
			Description:       desc,
			Status:            domain.StepPending,
			RollbackAvailable: rollback,
		})
	}

	add(domain.StepVerifyPrerequisites, "verify prerequisites",
		"check disk space, service health and target reachability", false)
	add(domain.StepCreateBackup, "create backup",
		"copy the current database into the backup directory", false)
	add(domain.StepExportData, "export data",
		"dump entities from the source backend", true)
	add(domain.StepStopService, "stop service",
		"stop memos so the data set is quiescent", true)
	add(domain.StepProvisionTarget, "provision target",
		"create the target database and schema", true)
	if target == domain.BackendPgvector {
		add(domain.StepInstallPgvector, "install pgvector",
			"enable the pgvector extension on the target", true)
	}
	add(domain.StepImportData, "import data",
		"load the exported entities into the target", true)
	add(domain.StepUpdateConfig, "update config",
		"point the memos config at the new backend", true)
	add(domain.StepStartService, "start service",
		"restart memos against the new backend", true)
	add(domain.StepVerifyIntegrity, "verify integrity",
		"compare entity counts between source and target", false)

	plan.RollbackSteps = []domain.MigrationStep{
		{Kind: domain.StepStopService, Name: "stop service", Status: domain.StepPending},
		{Kind: domain.StepRestoreBackup, Name: "restore backup", Status: domain.StepPending},
		{Kind: domain.StepRevertConfig, Name: "revert config", Status: domain.StepPending},
		{Kind: domain.StepStartService, Name: "start service", Status: domain.StepPending},
	}

	// Rough per-step estimate scaled by data volume.
	perStep := 30 * time.Second
	if metrics.EntityCount > 100_000 {
		perStep = 2 * time.Minute
	}
	if metrics.EntityCount > 1_000_000 {
		perStep = 10 * time.Minute
	}
	plan.EstimatedDuration = time.Duration(len(plan.Steps)) * perStep
	return plan
}

// stepHandler executes one kind of migration step. Dispatch is by StepKind,
// never by parsing the step name.
type stepHandler func(ctx context.Context, plan *domain.MigrationPlan) error

func (s *MigrationService) handlers() map[domain.StepKind]stepHandler {
	return map[domain.StepKind]stepHandler{
		domain.StepVerifyPrerequisites: s.stepVerifyPrerequisites,
		domain.StepCreateBackup:        s.stepCreateBackup,
		domain.StepExportData:          s.stepExportData,
		domain.StepStopService:         s.stepStopService,
		domain.StepProvisionTarget:     s.stepProvisionTarget,
		domain.StepInstallPgvector:     s.stepInstallPgvector,
		domain.StepImportData:          s.stepImportData,
		domain.StepUpdateConfig:        s.stepUpdateConfig,
		domain.StepStartService:        s.stepStartService,
		domain.StepVerifyIntegrity:     s.stepVerifyIntegrity,
		domain.StepRestoreBackup:       s.stepRestoreBackup,
		domain.StepRevertConfig:        s.stepRevertConfig,
	}
}

// Execute runs the plan step by step. Under dry-run every step is simulated
// with no side effects. On a real failure after more than rollbackThreshold
// completed steps, the rollback sequence runs automatically.
func (s *MigrationService) Execute(ctx context.Context, plan *domain.MigrationPlan, dryRun bool) *domain.ExecutionResult {
	result := &domain.ExecutionResult{
		PlanID:    plan.ID,
		StartedAt: time.Now(),
	}
	handlers := s.handlers()

	for i := range plan.Steps {
		step := &plan.Steps[i]
		if step.Status.Terminal() {
			result.StepsSkipped++
			continue
		}
		step.Status = domain.StepRunning
		step.StartedAt = time.Now()

		var err error
		if dryRun {
			time.Sleep(10 * time.Millisecond)
		} else {
			handler, ok := handlers[step.Kind]
			if !ok {
				err = fmt.Errorf("no handler for step kind %q", step.Kind)
			} else {
				err = handler(ctx, plan)
			}
		}
		step.FinishedAt = time.Now()

		if err != nil {
			step.Status = domain.StepFailed
			step.Error = err.Error()
			result.StepsFailed++
			result.Error = fmt.Sprintf("step %q failed: %v", step.Name, err)
			s.logger.Error("migration step failed", "step", step.Name, "error", err)

			if result.StepsCompleted > rollbackThreshold {
				result.RollbackRequired = true
				result.RollbackPerformed = s.rollback(ctx, plan)
			}
			result.Status = domain.ExecutionFailed
			result.FinishedAt = time.Now()
			s.recordHistory(result)
			return result
		}

		step.Status = domain.StepCompleted
		result.StepsCompleted++
		s.logger.Info("migration step completed", "step", step.Name, "dry_run", dryRun)
	}

	if dryRun {
		result.Status = domain.ExecutionDryRunCompleted
	} else {
		result.Status = domain.ExecutionCompleted
	}
	result.FinishedAt = time.Now()
	s.recordHistory(result)
	return result
}

// rollback reverses a partial migration: stop service, restore the newest
// backup, revert config, restart. Reports whether every step succeeded.
func (s *MigrationService) rollback(ctx context.Context, plan *domain.MigrationPlan) bool {
	s.logger.Warn("rolling back migration", "plan_id", plan.ID)
	handlers := s.handlers()
	ok := true
	for i := range plan.RollbackSteps {
		step := &plan.RollbackSteps[i]
		step.Status = domain.StepRunning
		step.StartedAt = time.Now()
		err := handlers[step.Kind](ctx, plan)
		step.FinishedAt = time.Now()
		if err != nil {
			step.Status = domain.StepFailed
			step.Error = err.Error()
			ok = false
			s.logger.Error("rollback step failed", "step", step.Name, "error", err)
			continue
		}
		step.Status = domain.StepCompleted
	}
	return ok
}

// History returns the execution results recorded this process lifetime.
func (s *MigrationService) History() []*domain.ExecutionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.ExecutionResult, len(s.history))
	copy(out, s.history)
	return out
}

func (s *MigrationService) recordHistory(result *domain.ExecutionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, result)
}

func (s *MigrationService) stepVerifyPrerequisites(ctx context.Context, _ *domain.MigrationPlan) error {
	r, err := s.AssessReadiness(ctx)
	if err != nil {
		return err
	}
	if !r.Ready {
		return fmt.Errorf("blockers remain: %v", r.Blockers)
	}
	return nil
}

func (s *MigrationService) stepCreateBackup(ctx context.Context, _ *domain.MigrationPlan) error {
	src := s.databasePath(ctx)
	if src == "" {
		return fmt.Errorf("database path unknown")
	}
	if err := os.MkdirAll(s.cfg.BackupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup dir: %w", err)
	}
	dst := filepath.Join(s.cfg.BackupDir,
		fmt.Sprintf("memos_backup_%s.db", time.Now().Format("20060102_150405")))
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("copying database: %w", err)
	}
	s.logger.Info("backup created", "path", dst)
	return nil
}

func (s *MigrationService) stepExportData(ctx context.Context, _ *domain.MigrationPlan) error {
	result, err := s.control.Run(ctx, domain.CmdMigrate, "export", "--format", "jsonl")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("export failed: %s", firstLine(result.Stderr))
	}
	return nil
}

func (s *MigrationService) stepStopService(ctx context.Context, _ *domain.MigrationPlan) error {
	return s.runServiceCommand(ctx, domain.CmdStop)
}

func (s *MigrationService) stepProvisionTarget(ctx context.Context, plan *domain.MigrationPlan) error {
	result, err := s.control.Run(ctx, domain.CmdMigrate, "provision", "--backend", string(plan.Target))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("provision failed: %s", firstLine(result.Stderr))
	}
	return nil
}

func (s *MigrationService) stepInstallPgvector(ctx context.Context, _ *domain.MigrationPlan) error {
	result, err := s.control.Run(ctx, domain.CmdMigrate, "extension", "--install", "pgvector")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("pgvector install failed: %s", firstLine(result.Stderr))
	}
	return nil
}

func (s *MigrationService) stepImportData(ctx context.Context, plan *domain.MigrationPlan) error {
	result, err := s.control.Run(ctx, domain.CmdMigrate, "import", "--backend", string(plan.Target))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("import failed: %s", firstLine(result.Stderr))
	}
	return nil
}

func (s *MigrationService) stepUpdateConfig(ctx context.Context, plan *domain.MigrationPlan) error {
	result, err := s.control.Run(ctx, domain.CmdConfig, "set", "backend", string(plan.Target))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("config update failed: %s", firstLine(result.Stderr))
	}
	return nil
}

func (s *MigrationService) stepStartService(ctx context.Context, _ *domain.MigrationPlan) error {
	return s.runServiceCommand(ctx, domain.CmdStart)
}

func (s *MigrationService) stepVerifyIntegrity(ctx context.Context, _ *domain.MigrationPlan) error {
	count, err := s.api.EntityCount(ctx)
	if err != nil {
		return fmt.Errorf("counting entities on target: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("target backend reports zero entities")
	}
	return nil
}

func (s *MigrationService) stepRestoreBackup(ctx context.Context, _ *domain.MigrationPlan) error {
	backup, err := s.newestBackup()
	if err != nil {
		return err
	}
	dst := s.databasePath(ctx)
	if dst == "" {
		return fmt.Errorf("database path unknown")
	}
	if err := copyFile(backup, dst); err != nil {
		return fmt.Errorf("restoring backup: %w", err)
	}
	s.logger.Info("backup restored", "from", backup)
	return nil
}

func (s *MigrationService) stepRevertConfig(ctx context.Context, plan *domain.MigrationPlan) error {
	result, err := s.control.Run(ctx, domain.CmdConfig, "set", "backend", string(plan.Source))
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("config revert failed: %s", firstLine(result.Stderr))
	}
	return nil
}

func (s *MigrationService) runServiceCommand(ctx context.Context, cmd domain.ServiceCommand) error {
	result, err := s.control.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("memos %s exited %d: %s", cmd, result.ExitCode, firstLine(result.Stderr))
	}
	return nil
}

// newestBackup returns the most recently modified file in the backup dir.
func (s *MigrationService) newestBackup() (string, error) {
	entries, err := os.ReadDir(s.cfg.BackupDir)
	if err != nil {
		return "", fmt.Errorf("reading backup dir: %w", err)
	}
	type candidate struct {
		path  string
		mtime time.Time
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{
			path:  filepath.Join(s.cfg.BackupDir, e.Name()),
			mtime: info.ModTime(),
		})
	}
	if len(candidates) == 0 {
		return "", fmt.Errorf("no backups found in %s", s.cfg.BackupDir)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].mtime.After(candidates[j].mtime)
	})
	return candidates[0].path, nil
}

func (s *MigrationService) databasePath(ctx context.Context) string {
	cfg, err := s.api.ServiceConfig(ctx)
	if err != nil {
		return ""
	}
	return cfg.DatabasePath
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}
