package analyze

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Hardcoded flags configuration values baked into code: suspicious ports,
// oversized timeouts/sleeps/retries/batch sizes, external URLs and absolute
// system paths. Config, setup and test files are skipped; defaults living
// there are legitimate.
type Hardcoded struct {
	rules domain.Rules
}

func NewHardcoded(rules domain.Rules) *Hardcoded {
	return &Hardcoded{rules: rules}
}

func (a *Hardcoded) Name() string { return "config" }

var (
	portRe      = regexp.MustCompile(`(?i)(?:port\s*[=:]\s*|localhost:|127\.0\.0\.1:)(\d{4,5})`)
	timeoutRe   = regexp.MustCompile(`(?i)\btimeout\s*[=:]\s*(\d+(?:\.\d+)?)`)
	sleepRe     = regexp.MustCompile(`(?i)\b(?:time\.)?sleep\s*\(\s*(\d+(?:\.\d+)?)`)
	retriesRe   = regexp.MustCompile(`(?i)\b(?:retries|retry_count|max_retries|max_attempts)\s*[=:]\s*(\d+)`)
	batchRe     = regexp.MustCompile(`(?i)\b(?:batch_size|chunk_size)\s*[=:]\s*(\d+)`)
	externalURL = regexp.MustCompile(`https://[A-Za-z0-9][\w.-]*[\w/.-]*`)
	absPathRe   = regexp.MustCompile(`["'](/(?:usr|etc|var|opt|home|Users)/[^"']+)["']`)
	skipFileRe  = regexp.MustCompile(`(?i)(config|settings|setup|conftest)`)
)

// hardcodedRule pairs a pattern with a validator; the validator decides
// whether the captured value is actually worth flagging.
type hardcodedRule struct {
	typ      string
	re       *regexp.Regexp
	severity string
	check    func(a *Hardcoded, m []string) (bool, string)
}

var hardcodedRules = []hardcodedRule{
	{
		typ: domain.FindingHardcodedPort, re: portRe, severity: domain.SeverityWarning,
		check: func(a *Hardcoded, m []string) (bool, string) {
			port, err := strconv.Atoi(m[1])
			if err != nil || port <= a.rules.MaxPort || a.rules.PortAllowed(port) {
				return false, ""
			}
			return true, fmt.Sprintf("hardcoded port %d; move it to configuration", port)
		},
	},
	{
		typ: domain.FindingHardcodedTimeout, re: timeoutRe, severity: domain.SeverityWarning,
		check: func(a *Hardcoded, m []string) (bool, string) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil || v <= a.rules.MaxTimeout {
				return false, ""
			}
			return true, fmt.Sprintf("timeout of %gs is suspiciously long", v)
		},
	},
	{
		typ: domain.FindingHardcodedSleep, re: sleepRe, severity: domain.SeverityWarning,
		check: func(a *Hardcoded, m []string) (bool, string) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil || v <= a.rules.MaxSleep {
				return false, ""
			}
			return true, fmt.Sprintf("sleep of %gs blocks the caller; poll or use a timer", v)
		},
	},
	{
		typ: domain.FindingHardcodedRetries, re: retriesRe, severity: domain.SeverityInfo,
		check: func(a *Hardcoded, m []string) (bool, string) {
			v, err := strconv.Atoi(m[1])
			if err != nil || v <= a.rules.MaxRetries {
				return false, ""
			}
			return true, fmt.Sprintf("%d retries will mask real outages", v)
		},
	},
	{
		typ: domain.FindingHardcodedBatchSize, re: batchRe, severity: domain.SeverityInfo,
		check: func(a *Hardcoded, m []string) (bool, string) {
			v, err := strconv.Atoi(m[1])
			if err != nil || v <= a.rules.MaxBatchSize {
				return false, ""
			}
			return true, fmt.Sprintf("batch size %d; large batches hold memory and locks", v)
		},
	},
	{
		typ: domain.FindingHardcodedURL, re: externalURL, severity: domain.SeverityInfo,
		check: func(a *Hardcoded, m []string) (bool, string) {
			if strings.Contains(m[0], "localhost") || strings.Contains(m[0], "127.0.0.1") {
				return false, ""
			}
			return true, fmt.Sprintf("external URL %s belongs in configuration", m[0])
		},
	},
	{
		typ: domain.FindingHardcodedPath, re: absPathRe, severity: domain.SeverityWarning,
		check: func(a *Hardcoded, m []string) (bool, string) {
			return true, fmt.Sprintf("absolute path %s will not survive another machine", m[1])
		},
	},
}

func (a *Hardcoded) Analyze(f *domain.SourceFile) []domain.Finding {
	if a.skip(f) {
		return nil
	}
	var findings []domain.Finding
	for _, l := range f.Lines {
		for _, rule := range hardcodedRules {
			m := rule.re.FindStringSubmatch(l.Text)
			if m == nil {
				continue
			}
			ok, msg := rule.check(a, m)
			if !ok {
				continue
			}
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     l.Num,
				Type:     rule.typ,
				Category: "config",
				Severity: rule.severity,
				Matched:  m[0],
				Message:  msg,
			})
		}
	}
	return findings
}

func (a *Hardcoded) skip(f *domain.SourceFile) bool {
	if f.Category == domain.CategoryTest {
		return true
	}
	return skipFileRe.MatchString(f.Path)
}
