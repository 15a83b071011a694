package selector

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

var skipDirs = map[string]bool{
	".git":                   true,
	"__pycache__":            true,
	".venv":                  true,
	"venv":                   true,
	"node_modules":           true,
	".pensieve_health_cache": true,
	".mypy_cache":            true,
	".pytest_cache":          true,
	"dist":                   true,
	"build":                  true,
}

var (
	testFileRe      = regexp.MustCompile(`(^|/)(test_[^/]+\.py|[^/]+_test\.py)$`)
	dashboardFileRe = regexp.MustCompile(`(?i)(dashboard|streamlit|page)`)
	scriptDirRe     = regexp.MustCompile(`(^|/)(scripts|tools|bin)(/|$)`)
)

// Priority order applied when the file budget truncates the selection:
// production files are always analyzed first.
var categoryOrder = []domain.FileCategory{
	domain.CategoryProduction,
	domain.CategoryScript,
	domain.CategoryDashboard,
	domain.CategoryTest,
}

// FileSelector implements domain.FileSelector by walking the scan root.
type FileSelector struct {
	git domain.GitInfo
}

func New(git domain.GitInfo) *FileSelector {
	return &FileSelector{git: git}
}

func (s *FileSelector) Select(cfg domain.Config) (*domain.Selection, error) {
	absRoot, err := filepath.Abs(cfg.ScanRoot)
	if err != nil {
		return nil, err
	}

	var files []domain.SelectedFile
	err = filepath.WalkDir(absRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || strings.HasPrefix(d.Name(), ".") && d.Name() != "." && path != absRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		rel, _ := filepath.Rel(absRoot, path)
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, domain.SelectedFile{
			Path:     rel,
			AbsPath:  path,
			Category: Categorize(rel),
			Size:     info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deterministic order regardless of filesystem walk order.
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	if cfg.SinceCommit != "" && s.git != nil && s.git.IsGitRepo(absRoot) {
		changed, err := s.git.ChangedSince(absRoot, cfg.SinceCommit)
		if err == nil {
			files = filterChanged(files, changed)
		}
	}

	sel := &domain.Selection{
		Root:       absRoot,
		TotalFound: len(files),
	}
	files = capTests(files, cfg.MaxFilesPerTest)
	sel.Files = truncate(files, cfg.MaxFiles)
	sel.Truncated = len(sel.Files) < sel.TotalFound
	return sel, nil
}

// Categorize classifies a file by its path. Tests win over everything so a
// test_dashboard.py is still a test.
func Categorize(relPath string) domain.FileCategory {
	p := filepath.ToSlash(relPath)
	switch {
	case testFileRe.MatchString(p) || strings.Contains("/"+p, "/tests/"):
		return domain.CategoryTest
	case dashboardFileRe.MatchString(filepath.Base(p)):
		return domain.CategoryDashboard
	case scriptDirRe.MatchString(p):
		return domain.CategoryScript
	default:
		return domain.CategoryProduction
	}
}

// capTests drops test files beyond the per-scan test budget so a large
// test suite cannot crowd production files out of the selection. Zero or
// negative means no cap.
func capTests(files []domain.SelectedFile, maxTests int) []domain.SelectedFile {
	if maxTests <= 0 {
		return files
	}
	out := make([]domain.SelectedFile, 0, len(files))
	kept := 0
	for _, f := range files {
		if f.Category == domain.CategoryTest {
			if kept == maxTests {
				continue
			}
			kept++
		}
		out = append(out, f)
	}
	return out
}

// truncate applies the file budget, taking whole categories in priority
// order and filling the remainder from the next category in path order.
func truncate(files []domain.SelectedFile, maxFiles int) []domain.SelectedFile {
	if len(files) <= maxFiles {
		return files
	}
	out := make([]domain.SelectedFile, 0, maxFiles)
	for _, cat := range categoryOrder {
		for _, f := range files {
			if f.Category != cat {
				continue
			}
			if len(out) == maxFiles {
				return out
			}
			out = append(out, f)
		}
	}
	return out
}

func filterChanged(files []domain.SelectedFile, changed []string) []domain.SelectedFile {
	set := make(map[string]bool, len(changed))
	for _, c := range changed {
		set[filepath.ToSlash(c)] = true
	}
	var out []domain.SelectedFile
	for _, f := range files {
		if set[filepath.ToSlash(f.Path)] {
			out = append(out, f)
		}
	}
	return out
}
