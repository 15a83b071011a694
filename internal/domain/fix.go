package domain

// FixOptions controls the auto-fixer.
type FixOptions struct {
	DryRun bool `json:"dry_run"`

	// Types restricts fixing to these finding types; empty means all
	// fixable types.
	Types []string `json:"types,omitempty"`
}

// AppliedFix records one substitution the auto-fixer made (or would make,
// under dry-run).
type AppliedFix struct {
	File        string `json:"file"`
	Line        int    `json:"line"`
	FindingType string `json:"finding_type"`
	Before      string `json:"before"`
	After       string `json:"after"`
}

// FixPlan is the outcome of one auto-fix pass.
type FixPlan struct {
	Applied []AppliedFix `json:"applied"`
	Skipped []AppliedFix `json:"skipped,omitempty"`
	DryRun  bool         `json:"dry_run"`
}
