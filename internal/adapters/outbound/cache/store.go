package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Store is a file-per-entry implementation of domain.AnalysisCache. Each
// entry is a JSON file named by (file stem, analyzer, content checksum), so a
// content change naturally misses and the stale entry ages out via Sweep.
// There is no locking; concurrent scans over the same directory may race,
// which is acceptable for a developer-invoked batch tool.
type Store struct {
	dir string
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

type entry struct {
	Path     string           `json:"path"`
	Analyzer string           `json:"analyzer"`
	Checksum string           `json:"checksum"`
	SavedAt  time.Time        `json:"saved_at"`
	Findings []domain.Finding `json:"findings"`
}

// Load returns the cached findings for (path, analyzer, checksum), if any.
// Unreadable or corrupt entries are treated as misses.
func (s *Store) Load(path, analyzer, checksum string) ([]domain.Finding, bool) {
	data, err := os.ReadFile(s.entryPath(path, analyzer, checksum))
	if err != nil {
		return nil, false
	}
	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, false
	}
	if e.Checksum != checksum {
		return nil, false
	}
	return e.Findings, true
}

// Save writes the findings for (path, analyzer, checksum).
func (s *Store) Save(path, analyzer, checksum string, findings []domain.Finding) error {
	e := entry{
		Path:     path,
		Analyzer: analyzer,
		Checksum: checksum,
		SavedAt:  time.Now(),
		Findings: findings,
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return os.WriteFile(s.entryPath(path, analyzer, checksum), data, 0o644)
}

// Sweep deletes entries older than maxAge. Called once at scan startup;
// there is no size-based eviction.
func (s *Store) Sweep(maxAge time.Duration) error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-maxAge)
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(s.dir, de.Name()))
		}
	}
	return nil
}

func (s *Store) entryPath(path, analyzer, checksum string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	short := checksum
	if len(short) > 12 {
		short = short[:12]
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s_%s.json", stem, analyzer, short))
}
