package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchforge/patchforge/internal/models"
)

func sampleResult() *models.Result {
	util := &models.Change{
		ID:      "pkg/util.go#0",
		File:    "pkg/util.go",
		Kind:    models.ChangeModify,
		Range:   models.LineRange{OldStart: 10, OldLines: 3, NewStart: 10, NewLines: 4},
		Body:    " a\n-b\n+b2\n+b3\n c\n",
		Added:   2,
		Deleted: 1,
		Digest:  "abc123",
	}
	caller := &models.Change{
		ID:    "pkg/caller.go#0",
		File:  "pkg/caller.go",
		Kind:  models.ChangeAdd,
		Range: models.LineRange{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 2},
		Body:  "+x\n+y\n",
		Added: 2,
	}
	return &models.Result{
		RunID: "run-1",
		Patches: []*models.Patch{
			{
				ID: 0, Name: "patch-000-util", Description: "1 file, +2/-1 lines: pkg/util.go",
				Changes: []*models.Change{util}, SizeLines: 3, Files: []string{"pkg/util.go"},
			},
			{
				ID: 1, Name: "patch-001-caller", DependsOn: []int{0},
				Changes: []*models.Change{caller}, SizeLines: 2, Files: []string{"pkg/caller.go"},
			},
		},
		Metrics:  models.Metrics{BalanceScore: 0.8, ReviewabilityScore: 0.9, MaxDependencyDepth: 1},
		Warnings: []string{"something advisory"},
	}
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWriter(dir).WriteAll(sampleResult()))

	for _, name := range []string{"patch-000-util.patch", "patch-001-caller.patch", "manifest.yaml", "apply.sh"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
}

func TestPatchFileFormat(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWriter(dir).WriteAll(sampleResult()))

	data, err := os.ReadFile(filepath.Join(dir, "patch-001-caller.patch"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, "Patch 1: patch-001-caller")
	assert.Contains(t, text, "Apply after patch(es): 0")
	assert.Contains(t, text, "diff --git a/pkg/caller.go b/pkg/caller.go")
	assert.Contains(t, text, "--- /dev/null\n+++ b/pkg/caller.go", "added files diff against /dev/null")
	assert.Contains(t, text, "@@ -0,0 +1,2 @@")
	assert.True(t, strings.HasSuffix(text, "+y\n"), "body keeps a trailing newline")
}

func TestManifestRoundtrip(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()
	require.NoError(t, NewWriter(dir).WriteAll(res))

	m, err := LoadManifest(dir)
	require.NoError(t, err)

	assert.Equal(t, "run-1", m.RunID)
	assert.Equal(t, res.Metrics, m.Metrics)
	assert.Equal(t, []string{"something advisory"}, m.Warnings)
	require.Len(t, m.Patches, 2)

	first := m.Patches[0]
	assert.Equal(t, 0, first.ID)
	assert.Equal(t, "patch-000-util.patch", first.File)
	require.Len(t, first.Changes, 1)
	assert.Equal(t, "pkg/util.go#0", first.Changes[0].ID)
	assert.Equal(t, "modify", first.Changes[0].Kind)
	assert.Equal(t, "abc123", first.Changes[0].Digest)

	assert.Equal(t, []int{0}, m.Patches[1].DependsOn)
}

func TestApplyScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, NewWriter(dir).WriteAll(sampleResult()))

	info, err := os.Stat(filepath.Join(dir, "apply.sh"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(dir, "apply.sh"))
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "set -euo pipefail")
	idx1 := strings.Index(text, "patch-000-util.patch")
	idx2 := strings.Index(text, "patch-001-caller.patch")
	assert.True(t, idx1 >= 0 && idx2 > idx1, "patches applied in id order")
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := LoadManifest(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}
