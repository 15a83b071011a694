package rules

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

const fileName = ".pensieve-doctor/rules.yaml"

// Loader reads analyzer rule overrides from .pensieve-doctor/rules.yaml.
type Loader struct{}

func New() *Loader { return &Loader{} }

// Load returns the effective rule set for scanRoot. A missing file yields
// the defaults; explicit values override per-field.
func (l *Loader) Load(scanRoot string) (domain.Rules, error) {
	data, err := os.ReadFile(filepath.Join(scanRoot, fileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultRules(), nil
		}
		return domain.Rules{}, err
	}

	var override domain.Rules
	if err := yaml.Unmarshal(data, &override); err != nil {
		return domain.Rules{}, fmt.Errorf("parsing %s: %w", fileName, err)
	}
	return merge(domain.DefaultRules(), override), nil
}

// merge overlays explicit (non-zero) override values on the defaults.
func merge(base, override domain.Rules) domain.Rules {
	result := base
	if len(override.AllowedPorts) > 0 {
		result.AllowedPorts = override.AllowedPorts
	}
	if len(override.KnownIndexedColumns) > 0 {
		result.KnownIndexedColumns = override.KnownIndexedColumns
	}
	if len(override.SanctionedDBModules) > 0 {
		result.SanctionedDBModules = override.SanctionedDBModules
	}
	if len(override.MetadataSynonyms) > 0 {
		result.MetadataSynonyms = override.MetadataSynonyms
	}
	if len(override.ImplementedEndpoints) > 0 {
		result.ImplementedEndpoints = override.ImplementedEndpoints
	}
	if override.MaxPort > 0 {
		result.MaxPort = override.MaxPort
	}
	if override.MaxTimeout > 0 {
		result.MaxTimeout = override.MaxTimeout
	}
	if override.MaxSleep > 0 {
		result.MaxSleep = override.MaxSleep
	}
	if override.MaxRetries > 0 {
		result.MaxRetries = override.MaxRetries
	}
	if override.MaxBatchSize > 0 {
		result.MaxBatchSize = override.MaxBatchSize
	}
	return result
}
