package application_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// writeTempDB creates a small database file and returns its path.
func writeTempDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memos.db")
	require.NoError(t, os.WriteFile(path, []byte("sqlite"), 0o644))
	return path
}

// fakeAPI is a configurable in-memory domain.ServiceAPI and domain.Prober.
type fakeAPI struct {
	mu sync.Mutex

	health     *domain.APIHealth
	healthErr  error
	config     *domain.ServiceConfig
	configErr  error
	count      int64
	countErr   error
	frames     *domain.FramePage
	framesErr  error
	hits       []domain.SearchHit
	searchErr  error
	probeCode  map[string]int
	probeErr   error
	jsonByPath map[string]func(v any) error

	healthCalls int
	probeCalls  int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		health: &domain.APIHealth{Status: "ok"},
		config: &domain.ServiceConfig{Backend: "sqlite"},
		frames: &domain.FramePage{Total: 100},
	}
}

func (f *fakeAPI) Health(context.Context) (*domain.APIHealth, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.healthCalls++
	return f.health, f.healthErr
}

func (f *fakeAPI) Frames(context.Context, int, int, *bool) (*domain.FramePage, error) {
	return f.frames, f.framesErr
}

func (f *fakeAPI) Frame(context.Context, int64) (*domain.Frame, error) {
	return &domain.Frame{ID: 1}, nil
}

func (f *fakeAPI) OCR(context.Context, int64) (*domain.OCRResult, error) {
	return &domain.OCRResult{FrameID: 1}, nil
}

func (f *fakeAPI) Search(context.Context, string, int) ([]domain.SearchHit, error) {
	return f.hits, f.searchErr
}

func (f *fakeAPI) SetMetadata(context.Context, int64, string, string) error { return nil }

func (f *fakeAPI) Metadata(context.Context, int64, string) (map[string]string, error) {
	return map[string]string{}, nil
}

func (f *fakeAPI) ServiceConfig(context.Context) (*domain.ServiceConfig, error) {
	return f.config, f.configErr
}

func (f *fakeAPI) EntityCount(context.Context) (int64, error) {
	return f.count, f.countErr
}

func (f *fakeAPI) Probe(_ context.Context, method, path string) (int, time.Duration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeCalls++
	if f.probeErr != nil {
		return 0, 0, f.probeErr
	}
	if code, ok := f.probeCode[method+" "+path]; ok {
		return code, time.Millisecond, nil
	}
	return 404, time.Millisecond, nil
}

func (f *fakeAPI) FetchJSON(_ context.Context, path string, v any) error {
	if fn, ok := f.jsonByPath[path]; ok {
		return fn(v)
	}
	return &domain.APIError{StatusCode: 404, Endpoint: path, Message: "not found"}
}

// fakeControl is a scripted domain.ServiceController.
type fakeControl struct {
	mu      sync.Mutex
	results map[domain.ServiceCommand]*domain.CommandResult
	err     error
	calls   []domain.ServiceCommand
	failOn  map[domain.ServiceCommand]bool
	failArg string
}

func newFakeControl() *fakeControl {
	return &fakeControl{
		results: map[domain.ServiceCommand]*domain.CommandResult{},
		failOn:  map[domain.ServiceCommand]bool{},
	}
}

func (f *fakeControl) Run(_ context.Context, cmd domain.ServiceCommand, args ...string) (*domain.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if f.err != nil {
		return nil, f.err
	}
	if f.failOn[cmd] {
		return &domain.CommandResult{Command: cmd, ExitCode: 1, Stderr: "boom"}, nil
	}
	if f.failArg != "" && len(args) > 0 && args[0] == f.failArg {
		return &domain.CommandResult{Command: cmd, ExitCode: 1, Stderr: "boom"}, nil
	}
	if r, ok := f.results[cmd]; ok {
		return r, nil
	}
	return &domain.CommandResult{Command: cmd, ExitCode: 0, Stdout: "memos running"}, nil
}

func (f *fakeControl) Stats(domain.ServiceCommand) domain.CommandStats {
	return domain.CommandStats{}
}

func (f *fakeControl) callCount(cmd domain.ServiceCommand) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmd {
			n++
		}
	}
	return n
}
