package gitinfo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/adapters/outbound/gitinfo"
)

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestIsGitRepo(t *testing.T) {
	dir := t.TempDir()
	adapter := gitinfo.New()

	assert.False(t, adapter.IsGitRepo(dir))

	_, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	assert.True(t, adapter.IsGitRepo(dir))
}

func TestCommitHash(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	want := commitFile(t, repo, dir, "capture.py", "pass\n")

	got, err := gitinfo.New().CommitHash(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCommitHash_NoRepo(t *testing.T) {
	_, err := gitinfo.New().CommitHash(t.TempDir())
	require.Error(t, err)
}

func TestChangedSince(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	base := commitFile(t, repo, dir, "capture.py", "pass\n")
	commitFile(t, repo, dir, "store.py", "pass\n")
	commitFile(t, repo, dir, "capture.py", "def run():\n    pass\n")

	changed, err := gitinfo.New().ChangedSince(dir, base)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"capture.py", "store.py"}, changed)
}

func TestChangedSince_UnknownRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	commitFile(t, repo, dir, "capture.py", "pass\n")

	_, err = gitinfo.New().ChangedSince(dir, "not-a-rev")
	require.Error(t, err)
}
