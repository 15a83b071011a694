package analyze

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/camelcase"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Integration flags drift at the seams with the memos service: non-canonical
// metadata key names, unsafe subprocess invocation, cache directories with no
// cleanup, and dashboards that never check whether the service is running.
type Integration struct {
	rules domain.Rules
}

func NewIntegration(rules domain.Rules) *Integration {
	return &Integration{rules: rules}
}

func (a *Integration) Name() string { return "integration" }

var (
	quotedKeyRe    = regexp.MustCompile(`["']([A-Za-z_][A-Za-z0-9_]*)["']`)
	shellTrueRe    = regexp.MustCompile(`\bshell\s*=\s*True\b`)
	osSystemRe     = regexp.MustCompile(`\bos\.system\s*\(`)
	bareInterpRe   = regexp.MustCompile(`subprocess\.(?:call|run|Popen)\s*\(\s*["']python\b`)
	cacheDirRe     = regexp.MustCompile(`(?i)(cache_dir|\.cache\b|_cache\b)`)
	cleanupRe      = regexp.MustCompile(`(?i)(cleanup|rmtree|unlink|clear|expire|max_age|evict)`)
	serviceCheckRe = regexp.MustCompile(`(?i)(is_running|service_status|check_health|/api/health|memos ps)`)
)

func (a *Integration) Analyze(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	findings = append(findings, a.metadataKeyVariants(f)...)
	findings = append(findings, a.unsafeSubprocess(f)...)
	findings = append(findings, a.cacheWithoutCleanup(f)...)
	findings = append(findings, a.dashboardServiceCheck(f)...)
	return findings
}

// metadataKeyVariants reports quoted keys that are drifted spellings of a
// canonical metadata key, either from the synonym table or by camelCase
// normalization (windowTitle -> window_title -> active_window).
func (a *Integration) metadataKeyVariants(f *domain.SourceFile) []domain.Finding {
	if f.Category == domain.CategoryTest {
		return nil
	}
	var findings []domain.Finding
	for _, l := range f.Lines {
		for _, m := range quotedKeyRe.FindAllStringSubmatch(l.Text, -1) {
			key := m[1]
			canonical := a.rules.CanonicalKey(key)
			if canonical == "" && key != strings.ToLower(key) {
				snake := strings.ToLower(strings.Join(camelcase.Split(key), "_"))
				if snake != key {
					canonical = a.rules.CanonicalKey(snake)
					if canonical == "" {
						if _, ok := a.rules.MetadataSynonyms[snake]; ok {
							canonical = snake
						}
					}
				}
			}
			if canonical == "" || canonical == key {
				continue
			}
			findings = append(findings, domain.Finding{
				File:         f.Path,
				Line:         l.Num,
				Type:         domain.FindingMetadataKeyVariant,
				Category:     "integration",
				Severity:     domain.SeverityWarning,
				Matched:      key,
				Message:      fmt.Sprintf("metadata key %q is a variant of canonical %q", key, canonical),
				SuggestedFix: canonical,
				FixAvailable: true,
			})
		}
	}
	return findings
}

func (a *Integration) unsafeSubprocess(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	for _, l := range f.Lines {
		switch {
		case shellTrueRe.MatchString(l.Code):
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     l.Num,
				Type:     domain.FindingUnsafeSubprocess,
				Category: "integration",
				Severity: domain.SeverityError,
				Matched:  "shell=True",
				Message:  "shell=True invites injection; pass the command as a list",
			})
		case osSystemRe.MatchString(l.Code):
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     l.Num,
				Type:     domain.FindingUnsafeSubprocess,
				Category: "integration",
				Severity: domain.SeverityError,
				Matched:  "os.system",
				Message:  "os.system gives no control over output or errors; use subprocess.run",
			})
		case bareInterpRe.MatchString(l.Text):
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     l.Num,
				Type:     domain.FindingUnsafeSubprocess,
				Category: "integration",
				Severity: domain.SeverityWarning,
				Matched:  "python",
				Message:  "bare interpreter name resolves differently per environment; use sys.executable",
			})
		}
	}
	return findings
}

func (a *Integration) cacheWithoutCleanup(f *domain.SourceFile) []domain.Finding {
	firstMention := 0
	for _, l := range f.Lines {
		if cacheDirRe.MatchString(l.Text) {
			firstMention = l.Num
			break
		}
	}
	if firstMention == 0 {
		return nil
	}
	if cleanupRe.MatchString(fileText(f)) {
		return nil
	}
	return []domain.Finding{{
		File:     f.Path,
		Line:     firstMention,
		Type:     domain.FindingCacheNoCleanup,
		Category: "integration",
		Severity: domain.SeverityWarning,
		Message:  "cache directory referenced but no cleanup logic found in this file",
	}}
}

func (a *Integration) dashboardServiceCheck(f *domain.SourceFile) []domain.Finding {
	if f.Category != domain.CategoryDashboard {
		return nil
	}
	if serviceCheckRe.MatchString(fileText(f)) {
		return nil
	}
	return []domain.Finding{{
		File:     f.Path,
		Line:     1,
		Type:     domain.FindingNoServiceCheck,
		Category: "integration",
		Severity: domain.SeverityWarning,
		Message:  "dashboard never checks whether the memos service is running",
	}}
}
