package memoscli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Per-command timeouts. Lifecycle commands get longer because memos waits
// for its workers to drain.
var commandTimeouts = map[domain.ServiceCommand]time.Duration{
	domain.CmdPS:      10 * time.Second,
	domain.CmdStart:   60 * time.Second,
	domain.CmdStop:    60 * time.Second,
	domain.CmdRestart: 120 * time.Second,
	domain.CmdScan:    300 * time.Second,
	domain.CmdReindex: 600 * time.Second,
	domain.CmdConfig:  10 * time.Second,
	domain.CmdMigrate: 600 * time.Second,
	domain.CmdVersion: 10 * time.Second,
}

const defaultTimeout = 30 * time.Second

// Runner implements domain.ServiceController by shelling out to the memos
// CLI, keeping rolling call statistics per subcommand.
type Runner struct {
	bin    string
	logger hclog.Logger

	mu    sync.Mutex
	stats map[domain.ServiceCommand]*rollingStats
}

type rollingStats struct {
	calls    int
	failures int
	total    time.Duration
}

func New(bin string, logger hclog.Logger) *Runner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{
		bin:    bin,
		logger: logger,
		stats:  make(map[domain.ServiceCommand]*rollingStats),
	}
}

// Run executes one memos subcommand with its per-command timeout. A non-zero
// exit code is not an error here; callers inspect the result.
func (r *Runner) Run(ctx context.Context, cmd domain.ServiceCommand, args ...string) (*domain.CommandResult, error) {
	timeout, ok := commandTimeouts[cmd]
	if !ok {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	argv := append([]string{string(cmd)}, args...)
	execCmd := exec.CommandContext(ctx, r.bin, argv...)
	var stdout, stderr bytes.Buffer
	execCmd.Stdout = &stdout
	execCmd.Stderr = &stderr

	start := time.Now()
	err := execCmd.Run()
	elapsed := time.Since(start)

	result := &domain.CommandResult{
		Command:  cmd,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: elapsed,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
		err = nil
	default:
		r.record(cmd, elapsed, true)
		return nil, fmt.Errorf("running memos %s: %w", cmd, err)
	}

	r.record(cmd, elapsed, result.ExitCode != 0)
	r.logger.Debug("memos command finished",
		"command", cmd, "exit_code", result.ExitCode, "duration", elapsed)
	return result, nil
}

// Stats returns the rolling statistics for one subcommand.
func (r *Runner) Stats(cmd domain.ServiceCommand) domain.CommandStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[cmd]
	if !ok || s.calls == 0 {
		return domain.CommandStats{}
	}
	return domain.CommandStats{
		Calls:       s.calls,
		Failures:    s.failures,
		AvgDuration: s.total / time.Duration(s.calls),
	}
}

func (r *Runner) record(cmd domain.ServiceCommand, elapsed time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stats[cmd]
	if !ok {
		s = &rollingStats{}
		r.stats[cmd] = s
	}
	s.calls++
	s.total += elapsed
	if failed {
		s.failures++
	}
}
