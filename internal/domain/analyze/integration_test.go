package analyze_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/pyparser"
	"github.com/pensieve/pensieve-doctor/internal/domain"
	"github.com/pensieve/pensieve-doctor/internal/domain/analyze"
)

func TestIntegration_MetadataVariantFromSynonymTable(t *testing.T) {
	src := "meta[\"window_title\"] = title\n"
	f := pyparser.Parse("pensieve/capture.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingMetadataKeyVariant)

	require.Len(t, findings, 1)
	assert.Equal(t, "window_title", findings[0].Matched)
	assert.Equal(t, "active_window", findings[0].SuggestedFix)
	assert.True(t, findings[0].FixAvailable)
}

func TestIntegration_CamelCaseVariantNormalized(t *testing.T) {
	src := "meta[\"windowTitle\"] = title\n"
	f := pyparser.Parse("pensieve/capture.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingMetadataKeyVariant)

	require.Len(t, findings, 1)
	assert.Equal(t, "windowTitle", findings[0].Matched)
	assert.Equal(t, "active_window", findings[0].SuggestedFix)
}

func TestIntegration_CanonicalKeyNotFlagged(t *testing.T) {
	src := "meta[\"active_window\"] = title\n"
	f := pyparser.Parse("pensieve/capture.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingMetadataKeyVariant)

	assert.Empty(t, findings)
}

func TestIntegration_TestFilesSkippedForVariants(t *testing.T) {
	src := "meta[\"window_title\"] = title\n"
	f := pyparser.Parse("tests/test_capture.py", []byte(src))
	f.Category = domain.CategoryTest

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingMetadataKeyVariant)

	assert.Empty(t, findings)
}

func TestIntegration_ShellTrue(t *testing.T) {
	src := "subprocess.run(cmd, shell=True)\n"
	f := pyparser.Parse("pensieve/runner.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingUnsafeSubprocess)

	require.Len(t, findings, 1)
	assert.Equal(t, domain.SeverityError, findings[0].Severity)
	assert.Equal(t, "shell=True", findings[0].Matched)
}

func TestIntegration_OSSystem(t *testing.T) {
	src := "os.system(\"memos restart\")\n"
	f := pyparser.Parse("pensieve/runner.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingUnsafeSubprocess)

	require.Len(t, findings, 1)
	assert.Equal(t, "os.system", findings[0].Matched)
}

func TestIntegration_BareInterpreter(t *testing.T) {
	src := "subprocess.run(\"python worker.py\")\n"
	f := pyparser.Parse("pensieve/runner.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingUnsafeSubprocess)

	require.Len(t, findings, 1)
	assert.Equal(t, domain.SeverityWarning, findings[0].Severity)
}

func TestIntegration_CacheWithoutCleanup(t *testing.T) {
	src := "CACHE = Path(\".pensieve_cache\")\n" +
		"def store(key, value):\n" +
		"    cache_dir = CACHE / key\n"
	f := pyparser.Parse("pensieve/store.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingCacheNoCleanup)

	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Line)
}

func TestIntegration_CacheWithCleanupNotFlagged(t *testing.T) {
	src := "cache_dir = Path(\".pensieve_cache\")\n" +
		"def sweep():\n" +
		"    shutil.rmtree(cache_dir)\n"
	f := pyparser.Parse("pensieve/store.py", []byte(src))

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingCacheNoCleanup)

	assert.Empty(t, findings)
}

func TestIntegration_DashboardWithoutServiceCheck(t *testing.T) {
	src := "st.title(\"Pensieve\")\n" +
		"st.write(frames)\n"
	f := pyparser.Parse("pensieve/dashboard.py", []byte(src))
	f.Category = domain.CategoryDashboard

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingNoServiceCheck)

	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Line)
}

func TestIntegration_DashboardWithServiceCheckNotFlagged(t *testing.T) {
	src := "status = requests.get(\"http://localhost:8839/api/health\")\n" +
		"st.write(frames)\n"
	f := pyparser.Parse("pensieve/dashboard.py", []byte(src))
	f.Category = domain.CategoryDashboard

	a := analyze.NewIntegration(domain.DefaultRules())
	findings := findingsOfType(a.Analyze(f), domain.FindingNoServiceCheck)

	assert.Empty(t, findings)
}
