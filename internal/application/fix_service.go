package application

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// FixService applies the small set of literal substitutions that are safe to
// perform mechanically. Anything requiring judgment stays a finding.
type FixService struct {
	logger hclog.Logger
}

func NewFixService(logger hclog.Logger) *FixService {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &FixService{logger: logger}
}

// fixableTypes are the finding types the fixer knows how to rewrite.
var fixableTypes = map[string]bool{
	domain.FindingMetadataKeyVariant: true,
	domain.FindingPrintInExcept:      true,
}

// Apply rewrites the files behind the fixable findings. Under dry-run the
// plan lists what would change and no file is touched. Per-file errors are
// logged and the file is skipped, not fatal.
func (s *FixService) Apply(root string, findings []domain.Finding, opts domain.FixOptions) (*domain.FixPlan, error) {
	plan := &domain.FixPlan{DryRun: opts.DryRun}

	wanted := map[string]bool{}
	for _, t := range opts.Types {
		wanted[t] = true
	}

	byFile := map[string][]domain.Finding{}
	for _, f := range findings {
		if !f.FixAvailable || !fixableTypes[f.Type] {
			continue
		}
		if len(wanted) > 0 && !wanted[f.Type] {
			continue
		}
		byFile[f.File] = append(byFile[f.File], f)
	}

	paths := make([]string, 0, len(byFile))
	for path := range byFile {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		applied, skipped, err := s.fixFile(root, path, byFile[path], opts.DryRun)
		if err != nil {
			s.logger.Warn("skipping unfixable file", "path", path, "error", err)
			continue
		}
		plan.Applied = append(plan.Applied, applied...)
		plan.Skipped = append(plan.Skipped, skipped...)
	}
	return plan, nil
}

func (s *FixService) fixFile(root, path string, findings []domain.Finding, dryRun bool) (applied, skipped []domain.AppliedFix, err error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, nil, err
	}
	lines := strings.Split(string(data), "\n")
	changed := false

	for _, f := range findings {
		if f.Line < 1 || f.Line > len(lines) {
			continue
		}
		before := lines[f.Line-1]
		after := rewriteLine(before, f)
		fix := domain.AppliedFix{
			File:        path,
			Line:        f.Line,
			FindingType: f.Type,
			Before:      strings.TrimSpace(before),
			After:       strings.TrimSpace(after),
		}
		if after == before {
			skipped = append(skipped, fix)
			continue
		}
		if !dryRun {
			lines[f.Line-1] = after
			changed = true
		}
		applied = append(applied, fix)
	}

	if changed {
		if err := os.WriteFile(abs, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
			return nil, nil, fmt.Errorf("writing fixed file: %w", err)
		}
	}
	return applied, skipped, nil
}

// rewriteLine produces the fixed form of one line, or the line unchanged when
// the expected pattern is not present anymore.
func rewriteLine(line string, f domain.Finding) string {
	switch f.Type {
	case domain.FindingMetadataKeyVariant:
		if f.Matched == "" || f.SuggestedFix == "" {
			return line
		}
		for _, q := range []string{`"`, `'`} {
			from := q + f.Matched + q
			to := q + f.SuggestedFix + q
			if strings.Contains(line, from) {
				return strings.Replace(line, from, to, 1)
			}
		}
		return line
	case domain.FindingPrintInExcept:
		if strings.Contains(line, "print(") {
			return strings.Replace(line, "print(", "logger.error(", 1)
		}
		return line
	default:
		return line
	}
}
