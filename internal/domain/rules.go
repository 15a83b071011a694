package domain

// Rules carries the analyzer tuning knobs: allow-lists, thresholds and the
// metadata synonym table. Defaults match the Pensieve codebase; overrides
// come from .pensieve-doctor/rules.yaml.
type Rules struct {
	// AllowedPorts are high ports that are legitimate defaults (e.g. the
	// memos service port) and must not be flagged.
	AllowedPorts []int `yaml:"allowed_ports"`

	// KnownIndexedColumns are columns the memos schema already indexes;
	// WHERE/ORDER BY/JOIN on anything else is an index opportunity.
	KnownIndexedColumns []string `yaml:"known_indexed_columns"`

	// SanctionedDBModules are path fragments of the data-access layer where
	// direct driver usage is expected.
	SanctionedDBModules []string `yaml:"sanctioned_db_modules"`

	// MetadataSynonyms maps each canonical metadata key to the drifted
	// variants seen in the wild.
	MetadataSynonyms map[string][]string `yaml:"metadata_synonyms"`

	// ImplementedEndpoints is the allow-list used to grade endpoint groups.
	ImplementedEndpoints []string `yaml:"implemented_endpoints"`

	MaxPort      int     `yaml:"max_port"`
	MaxTimeout   float64 `yaml:"max_timeout_seconds"`
	MaxSleep     float64 `yaml:"max_sleep_seconds"`
	MaxRetries   int     `yaml:"max_retries"`
	MaxBatchSize int     `yaml:"max_batch_size"`
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		AllowedPorts:        []int{9200},
		KnownIndexedColumns: []string{"id", "rowid", "frame_id", "entity_id", "created_at"},
		SanctionedDBModules: []string{"database.py", "/db/", "storage.py"},
		MetadataSynonyms: map[string][]string{
			"active_window": {
				"window_title", "windowTitle", "current_window",
				"app_window", "window_name",
			},
			"ocr_result": {
				"ocr_text", "text_content", "extracted_text", "ocrText",
			},
			"screenshot_path": {
				"image_path", "imagePath", "capture_path",
			},
			"category": {
				"activity_category", "task_category", "activityCategory",
			},
		},
		ImplementedEndpoints: []string{
			"GET /api/health",
			"GET /api/frames",
			"GET /api/frames/{id}",
			"GET /api/ocr/{id}",
			"GET /api/search",
			"POST /api/metadata",
			"GET /api/metadata/{id}",
			"GET /api/config",
		},
		MaxPort:      9000,
		MaxTimeout:   30,
		MaxSleep:     5,
		MaxRetries:   5,
		MaxBatchSize: 1000,
	}
}

// CanonicalKey returns the canonical metadata key for a variant, or "" when
// the variant is unknown.
func (r Rules) CanonicalKey(variant string) string {
	for canonical, variants := range r.MetadataSynonyms {
		for _, v := range variants {
			if v == variant {
				return canonical
			}
		}
	}
	return ""
}

// PortAllowed reports whether a hardcoded port is on the allow-list.
func (r Rules) PortAllowed(port int) bool {
	for _, p := range r.AllowedPorts {
		if p == port {
			return true
		}
	}
	return false
}

// ColumnIndexed reports whether a column is known to be indexed.
func (r Rules) ColumnIndexed(col string) bool {
	for _, c := range r.KnownIndexedColumns {
		if c == col {
			return true
		}
	}
	return false
}
