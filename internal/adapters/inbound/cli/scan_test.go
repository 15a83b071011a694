package cli_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/inbound/cli"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// writeScanTree drops a production source with n metadata-variant lines,
// each of which the integration analyzer reports as one finding.
func writeScanTree(t *testing.T, n int) string {
	t.Helper()
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("meta[\"window_title\"] = title\n")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "capture.py"), []byte(b.String()), 0o644))
	return dir
}

func TestScanCmd_CIExitCodeIsFindingCount(t *testing.T) {
	dir := writeScanTree(t, 3)

	_, err := execute(t, "scan", "--ci", dir)
	require.Error(t, err)
	assert.Equal(t, 3, cli.ExitCode(err))
	assert.Contains(t, err.Error(), "3 findings")
}

func TestScanCmd_CIExitCodeCappedAt125(t *testing.T) {
	dir := writeScanTree(t, 200)

	_, err := execute(t, "scan", "--ci", dir)
	require.Error(t, err)
	assert.Equal(t, 125, cli.ExitCode(err))
}

func TestScanCmd_CIMaxFindingsToleratesBudget(t *testing.T) {
	dir := writeScanTree(t, 3)

	_, err := execute(t, "scan", "--ci", "--max-findings", "5", dir)
	require.NoError(t, err)
}

func TestScanCmd_FindingsDoNotFailWithoutCI(t *testing.T) {
	dir := writeScanTree(t, 3)

	out, err := execute(t, "scan", "--json", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "metadata_key_variant")
}

func commitAll(t *testing.T, repo *git.Repository, msg string) string {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@pensieve.local", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestScanCmd_TestIncrementalResumesFromLastSummary(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	for _, name := range []string{"capture.py", "store.py"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("pass\n"), 0o644))
	}
	base := commitAll(t, repo, "initial")

	summary := []byte(`{"mode": "full", "commit_hash": "` + base + `"}`)
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "pensieve_health_summary.json"), summary, 0o644))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "search.py"), []byte("pass\n"), 0o644))
	commitAll(t, repo, "add search")

	t.Setenv("PENSIEVE_TEST_INCREMENTAL", "true")
	out, err := execute(t, "scan", "--json", dir)
	require.NoError(t, err)

	var report domain.ScanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.FilesAnalyzed)
}

func TestExitCode(t *testing.T) {
	assert.Zero(t, cli.ExitCode(nil))
	assert.Equal(t, 1, cli.ExitCode(assert.AnError))
}
