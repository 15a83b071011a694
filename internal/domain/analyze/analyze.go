// Package analyze holds the four anti-pattern analyzers that the health
// scan runs over the Pensieve codebase: database access, error handling,
// hardcoded configuration, and service integration. One file per family,
// each exposing a type that implements domain.Analyzer.
package analyze

import (
	"strings"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// All returns every analyzer, in the order scans run them.
func All(rules domain.Rules) []domain.Analyzer {
	return []domain.Analyzer{
		NewDatabase(rules),
		NewErrors(),
		NewHardcoded(rules),
		NewIntegration(rules),
	}
}

// ByName returns the analyzer with the given name, or nil.
func ByName(rules domain.Rules, name string) domain.Analyzer {
	for _, a := range All(rules) {
		if a.Name() == name {
			return a
		}
	}
	return nil
}

// spanText joins the Text form of all lines in [start, end], lowercased.
// Used for presence checks of markers inside a block.
func spanText(f *domain.SourceFile, start, end int) string {
	var b strings.Builder
	for _, l := range f.LinesIn(start, end) {
		b.WriteString(strings.ToLower(l.Text))
		b.WriteString("\n")
	}
	return b.String()
}

// fileText joins the Text form of the whole file, lowercased.
func fileText(f *domain.SourceFile) string {
	return spanText(f, 1, len(f.Lines))
}

// lastSegment returns the final dotted segment of a call name.
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
