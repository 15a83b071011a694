package application

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// HealthObserver is notified with every fresh health status.
type HealthObserver func(domain.HealthStatus)

// HealthService checks the memos service end to end: process state via the
// CLI, API liveness via REST, database reachability via the reported config.
// The last status is cached under a mutex so hot paths can ask "healthy
// within the last minute?" without re-probing.
type HealthService struct {
	api     domain.ServiceAPI
	control domain.ServiceController
	logger  hclog.Logger

	mu        sync.Mutex
	last      *domain.HealthStatus
	observers []HealthObserver

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewHealthService(api domain.ServiceAPI, control domain.ServiceController, logger hclog.Logger) *HealthService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &HealthService{api: api, control: control, logger: logger}
}

// Subscribe registers an observer called after every check. Observers run
// synchronously on the checking goroutine; panics are recovered and logged.
func (s *HealthService) Subscribe(obs HealthObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, obs)
}

// Check performs a fresh health check, caches the result and notifies
// observers.
func (s *HealthService) Check(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{LastCheck: time.Now()}

	status.ServiceRunning = s.serviceRunning(ctx)
	if !status.ServiceRunning {
		status.Warnings = append(status.Warnings, "memos service process not running")
	}

	start := time.Now()
	health, err := s.api.Health(ctx)
	status.ResponseTimeMS = time.Since(start).Milliseconds()
	if err != nil {
		s.logger.Debug("health endpoint unreachable", "error", err)
		status.Warnings = append(status.Warnings, "api health endpoint unreachable")
	} else {
		status.APIResponding = health.OK()
		if !status.APIResponding {
			status.Warnings = append(status.Warnings, "api reports status "+health.Status)
		}
	}

	status.DatabaseAccessible = s.databaseAccessible(ctx)
	if !status.DatabaseAccessible {
		status.Warnings = append(status.Warnings, "database file not accessible")
	}

	status.IsHealthy = status.APIResponding && status.ServiceRunning && status.DatabaseAccessible

	s.mu.Lock()
	s.last = &status
	observers := make([]HealthObserver, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, obs := range observers {
		s.notify(obs, status)
	}
	return status
}

// IsHealthy answers from the cached status when it is younger than maxAge,
// probing only on a miss.
func (s *HealthService) IsHealthy(ctx context.Context, maxAge time.Duration) bool {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()

	if last != nil && last.Age(time.Now()) <= maxAge {
		return last.IsHealthy
	}
	return s.Check(ctx).IsHealthy
}

// LastStatus returns the cached status, if any.
func (s *HealthService) LastStatus() (domain.HealthStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return domain.HealthStatus{}, false
	}
	return *s.last, true
}

// Start launches a background polling goroutine checking every interval.
// Stop latency is bounded by the 1-second tick, not the interval.
func (s *HealthService) Start(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go func(stop, done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		lastPoll := time.Time{}
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if time.Since(lastPoll) < interval {
					continue
				}
				lastPoll = time.Now()
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.Check(ctx)
				cancel()
			}
		}
	}(s.stopCh, s.doneCh)
}

// Stop terminates the polling goroutine and waits for it to exit.
func (s *HealthService) Stop() {
	s.mu.Lock()
	stop, done := s.stopCh, s.doneCh
	s.stopCh, s.doneCh = nil, nil
	s.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *HealthService) notify(obs HealthObserver, status domain.HealthStatus) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("health observer panicked", "panic", r)
		}
	}()
	obs(status)
}

func (s *HealthService) serviceRunning(ctx context.Context) bool {
	if s.control == nil {
		return false
	}
	result, err := s.control.Run(ctx, domain.CmdPS)
	if err != nil {
		s.logger.Debug("memos ps failed", "error", err)
		return false
	}
	if result.ExitCode != 0 {
		return false
	}
	out := strings.ToLower(result.Stdout)
	return strings.Contains(out, "running") || strings.Contains(out, "memos")
}

func (s *HealthService) databaseAccessible(ctx context.Context) bool {
	cfg, err := s.api.ServiceConfig(ctx)
	if err != nil || cfg.DatabasePath == "" {
		return s.localDatabaseExists()
	}
	_, err = os.Stat(cfg.DatabasePath)
	return err == nil
}

// localDatabaseExists is the fallback when the config endpoint is down:
// look for the default memos database location.
func (s *HealthService) localDatabaseExists() bool {
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	for _, candidate := range []string{
		home + "/.memos/database.db",
		home + "/.memos/memos.db",
	} {
		if _, err := os.Stat(candidate); err == nil {
			return true
		}
	}
	return false
}
