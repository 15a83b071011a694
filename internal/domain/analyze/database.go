package analyze

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// Database flags data-access anti-patterns: raw driver usage outside the
// sanctioned data-access layer, multi-write functions without a transaction,
// N+1 query loops, and filter clauses on unindexed columns.
type Database struct {
	rules domain.Rules
}

func NewDatabase(rules domain.Rules) *Database {
	return &Database{rules: rules}
}

func (a *Database) Name() string { return "database" }

var (
	driverImportRe  = regexp.MustCompile(`^\s*(?:import\s+(sqlite3|psycopg2)\b|from\s+(sqlite3|psycopg2)\b)`)
	driverConnectRe = regexp.MustCompile(`\b(sqlite3|psycopg2)\.connect\s*\(`)
	writeSQLRe      = regexp.MustCompile(`(?i)\b(INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM)\b`)
	txMarkerRe      = regexp.MustCompile(`(?i)(transaction|\bbegin\b|\.commit\s*\(|\.rollback\s*\()`)
	whereColRe      = regexp.MustCompile(`(?i)\bWHERE\s+([a-z_][a-z0-9_]*)\s*[=<>]`)
	orderByColRe    = regexp.MustCompile(`(?i)\bORDER\s+BY\s+([a-z_][a-z0-9_]*)`)
	joinColRe       = regexp.MustCompile(`(?i)\bJOIN\s+\w+\s+ON\s+\w+\.([a-z_][a-z0-9_]*)`)
)

// Fetch-verb prefixes that make a call inside a loop look like an N+1 query.
var fetchVerbs = []string{"get_", "fetch_", "query_", "load_", "find_", "select_", "read_"}

func (a *Database) Analyze(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	findings = append(findings, a.rawDriverUsage(f)...)
	findings = append(findings, a.missingTransactions(f)...)
	findings = append(findings, a.nPlusOneLoops(f)...)
	findings = append(findings, a.indexOpportunities(f)...)
	return findings
}

func (a *Database) sanctioned(path string) bool {
	for _, frag := range a.rules.SanctionedDBModules {
		if strings.Contains(path, frag) {
			return true
		}
	}
	return false
}

func (a *Database) rawDriverUsage(f *domain.SourceFile) []domain.Finding {
	if a.sanctioned(f.Path) {
		return nil
	}
	var findings []domain.Finding
	for _, l := range f.Lines {
		var driver string
		if m := driverImportRe.FindStringSubmatch(l.Code); m != nil {
			driver = m[1] + m[2]
		} else if m := driverConnectRe.FindStringSubmatch(l.Code); m != nil {
			driver = m[1]
		} else {
			continue
		}
		findings = append(findings, domain.Finding{
			File:     f.Path,
			Line:     l.Num,
			Type:     domain.FindingRawDriverUsage,
			Category: "database",
			Severity: domain.SeverityWarning,
			Matched:  strings.TrimSpace(l.Text),
			Message:  fmt.Sprintf("direct %s usage outside the data-access layer", driver),
		})
	}
	return findings
}

func (a *Database) missingTransactions(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	for i := range f.Funcs {
		fn := &f.Funcs[i]
		writes := 0
		for _, l := range f.LinesIn(fn.Start, fn.End) {
			if writeSQLRe.MatchString(l.Text) {
				writes++
			}
		}
		if writes < 2 {
			continue
		}
		if txMarkerRe.MatchString(spanText(f, fn.Start, fn.End)) {
			continue
		}
		findings = append(findings, domain.Finding{
			File:     f.Path,
			Line:     fn.Start,
			Type:     domain.FindingMissingTransaction,
			Category: "database",
			Severity: domain.SeverityWarning,
			Message:  fmt.Sprintf("function %s performs %d write operations without a transaction", fn.Name, writes),
		})
	}
	return findings
}

func (a *Database) nPlusOneLoops(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	for _, loop := range f.Loops {
		for _, call := range f.CallsIn(loop.BodyStart, loop.End) {
			name := lastSegment(call.Name)
			if !hasFetchVerb(name) {
				continue
			}
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     call.Line,
				Type:     domain.FindingNPlusOneQuery,
				Category: "database",
				Severity: domain.SeverityWarning,
				Matched:  call.Name,
				Message:  fmt.Sprintf("%s called inside a %s loop; fetch the batch before iterating", call.Name, loop.Kind),
			})
		}
	}
	return findings
}

func hasFetchVerb(name string) bool {
	for _, verb := range fetchVerbs {
		if strings.HasPrefix(name, verb) {
			return true
		}
	}
	return false
}

func (a *Database) indexOpportunities(f *domain.SourceFile) []domain.Finding {
	var findings []domain.Finding
	for _, l := range f.Lines {
		for _, re := range []*regexp.Regexp{whereColRe, orderByColRe, joinColRe} {
			m := re.FindStringSubmatch(l.Text)
			if m == nil {
				continue
			}
			col := strings.ToLower(m[1])
			if a.rules.ColumnIndexed(col) {
				continue
			}
			findings = append(findings, domain.Finding{
				File:     f.Path,
				Line:     l.Num,
				Type:     domain.FindingIndexOpportunity,
				Category: "database",
				Severity: domain.SeverityInfo,
				Matched:  col,
				Message:  fmt.Sprintf("query filters on %q, which has no known index", col),
			})
		}
	}
	return findings
}
