package analyze

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Errors flags error-handling anti-patterns: bare except clauses, print
// calls inside exception handlers, no-op handlers, network calls without
// retry logic, and unguarded file operations.
type Errors struct{}

func NewErrors() *Errors {
	return &Errors{}
}

func (a *Errors) Name() string { return "errors" }

var (
	printCallRe   = regexp.MustCompile(`\bprint\s*\(`)
	networkCallRe = regexp.MustCompile(`\b(requests\.(?:get|post|put|delete|head|request)|urlopen|httpx\.(?:get|post|Client))\s*\(`)
	retryMarkerRe = regexp.MustCompile(`(?i)(retry|backoff|tenacity)`)
	fileOpRe      = regexp.MustCompile(`(?:^|[^\w.])(open|os\.remove|os\.unlink|os\.rename|shutil\.rmtree|shutil\.move)\s*\(`)
	guardRe       = regexp.MustCompile(`(?i)(\.exists\s*\(|os\.path\.exists|isfile|isdir|\btry\s*:|os\.access)`)
)

func (a *Errors) Analyze(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	findings = append(findings, a.handlerFindings(f)...)
	findings = append(findings, a.missingRetries(f)...)
	findings = append(findings, a.uncheckedFileOps(f)...)
	return findings
}

func (a *Errors) handlerFindings(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	for _, h := range f.Handlers {
		if h.Bare {
			findings = append(findings, domain.Finding{
				File:         f.Path,
				Line:         h.Line,
				Type:         domain.FindingBareExcept,
				Category:     "errors",
				Severity:     domain.SeverityError,
				Matched:      "except:",
				Message:      "bare except catches SystemExit and KeyboardInterrupt; catch Exception instead",
				SuggestedFix: "except Exception:",
				FixAvailable: true,
			})
		}

		body := f.LinesIn(h.BodyStart, h.BodyEnd)
		if h.BodyStart == h.Line {
			body = nil // headerless handler, nothing indented under it
		}

		for _, l := range body {
			if printCallRe.MatchString(l.Code) {
				findings = append(findings, domain.Finding{
					File:         f.Path,
					Line:         l.Num,
					Type:         domain.FindingPrintInExcept,
					Category:     "errors",
					Severity:     domain.SeverityWarning,
					Matched:      strings.TrimSpace(l.Text),
					Message:      "print inside an exception handler; use structured logging",
					SuggestedFix: "logger.error(...)",
					FixAvailable: true,
				})
			}
		}

		if isSilent(body) {
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     h.Line,
				Type:     domain.FindingSilentExcept,
				Category: "errors",
				Severity: domain.SeverityWarning,
				Message:  "exception handler swallows the error without logging",
			})
		}
	}
	return findings
}

// isSilent reports whether a handler body does nothing but pass/ellipsis.
func isSilent(body []domain.SourceLine) bool {
	code := 0
	for _, l := range body {
		t := strings.TrimSpace(l.Code)
		if t == "" {
			continue
		}
		if t != "pass" && t != "..." {
			return false
		}
		code++
	}
	return code > 0
}

func (a *Errors) missingRetries(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	for _, l := range f.Lines {
		m := networkCallRe.FindStringSubmatch(l.Code)
		if m == nil {
			continue
		}
		if a.hasRetryContext(f, l.Num) {
			continue
		}
		findings = append(findings, domain.Finding{
			File:     f.Path,
			Line:     l.Num,
			Type:     domain.FindingMissingRetry,
			Category: "errors",
			Severity: domain.SeverityWarning,
			Matched:  m[1],
			Message:  fmt.Sprintf("network call %s has no retry or backoff", m[1]),
		})
	}
	return findings
}

// hasRetryContext looks for a retry marker in the enclosing function (or the
// whole file when the call is at module level), including decorators.
func (a *Errors) hasRetryContext(f *domain.SourceFile, line int) bool {
	if fn := f.FuncAt(line); fn != nil {
		for _, d := range fn.Decorators {
			if retryMarkerRe.MatchString(d) {
				return true
			}
		}
		return retryMarkerRe.MatchString(spanText(f, fn.Start, fn.End))
	}
	return retryMarkerRe.MatchString(fileText(f))
}

func (a *Errors) uncheckedFileOps(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	seen := map[int]bool{}
	for _, l := range f.Lines {
		m := fileOpRe.FindStringSubmatch(l.Code)
		if m == nil {
			continue
		}
		fn := f.FuncAt(l.Num)
		if fn == nil {
			continue // module-level file ops are usually one-shot setup
		}
		if guardRe.MatchString(spanText(f, fn.Start, fn.End)) {
			continue
		}
		if seen[fn.Start] {
			continue
		}
		seen[fn.Start] = true
		findings = append(findings, domain.Finding{
			File:     f.Path,
			Line:     l.Num,
			Type:     domain.FindingUncheckedFileOp,
			Category: "errors",
			Severity: domain.SeverityWarning,
			Matched:  m[1],
			Message:  fmt.Sprintf("function %s touches files without an existence check or try block", fn.Name),
		})
	}
	return findings
}
