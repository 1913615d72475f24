package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchforge/patchforge/internal/models"
)

const multiFileDiff = `diff --git a/pkg/util.go b/pkg/util.go
--- a/pkg/util.go
+++ b/pkg/util.go
@@ -1,3 +1,4 @@
 package util
+
 func Helper() int {
 	return 1
diff --git a/pkg/new.go b/pkg/new.go
--- /dev/null
+++ b/pkg/new.go
@@ -0,0 +1,3 @@
+package util
+
+func Extra() int { return 2 }
diff --git a/pkg/old.go b/pkg/old.go
--- a/pkg/old.go
+++ /dev/null
@@ -1,2 +0,0 @@
-package util
-func Old() {}
`

func TestExtractMultiFileDiff(t *testing.T) {
	res, err := Extract(multiFileDiff, Options{})
	require.NoError(t, err)
	require.Len(t, res.Changes, 3)
	assert.Empty(t, res.Warnings)

	modify := res.Changes[0]
	assert.Equal(t, "pkg/util.go#0", modify.ID)
	assert.Equal(t, "pkg/util.go", modify.File)
	assert.Equal(t, models.ChangeModify, modify.Kind)
	assert.Equal(t, 1, modify.Added)
	assert.Equal(t, 0, modify.Deleted)
	assert.Equal(t, 1, modify.Range.OldStart)
	assert.Equal(t, 3, modify.Range.OldLines)
	assert.Equal(t, 4, modify.Range.NewLines)

	add := res.Changes[1]
	assert.Equal(t, "pkg/new.go", add.File)
	assert.Equal(t, models.ChangeAdd, add.Kind)
	assert.Equal(t, 3, add.Added)
	assert.Equal(t, 0, add.Deleted)

	del := res.Changes[2]
	assert.Equal(t, "pkg/old.go", del.File)
	assert.Equal(t, models.ChangeDelete, del.Kind)
	assert.Equal(t, 0, del.Added)
	assert.Equal(t, 2, del.Deleted)
}

func TestExtractEmptyDiff(t *testing.T) {
	res, err := Extract("", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)

	res, err = Extract("   \n\n", Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

// A hunk header that cannot be parsed in the middle of a multi-file diff
// must fail the whole extraction: the sections after it would otherwise
// vanish from the output without a trace.
func TestExtractMidStreamParseErrorIsFatal(t *testing.T) {
	diff := `diff --git a/a.go b/a.go
--- a/a.go
+++ b/a.go
@@ -1,1 +1,2 @@
 package a
+func A() {}
diff --git a/b.go b/b.go
--- a/b.go
+++ b/b.go
@@ garbage @@
+broken
diff --git a/c.go b/c.go
--- a/c.go
+++ b/c.go
@@ -1,1 +1,2 @@
 package c
+func C() {}
`
	res, err := Extract(diff, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse diff")
	assert.Nil(t, res)
}

func TestExtractTrailingGarbageKeepsChanges(t *testing.T) {
	diff := multiFileDiff +
		"diff --git a/trailing.go b/trailing.go\n" +
		"--- a/trailing.go\n+++ b/trailing.go\n@@ garbage @@\n+x\n"
	res, err := Extract(diff, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Changes, 3)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "malformed content after last valid hunk")
}

func TestExtractAttachesLanguage(t *testing.T) {
	res, err := Extract(multiFileDiff, Options{
		LanguageFor: func(file string) string { return "go" },
	})
	require.NoError(t, err)
	for _, c := range res.Changes {
		assert.Equal(t, "go", c.Language)
	}
}

// The digest must identify a hunk across re-diffing at a different
// offset: same content, different @@ line numbers.
func TestExtractDigestStableAcrossOffsets(t *testing.T) {
	shifted := `diff --git a/pkg/util.go b/pkg/util.go
--- a/pkg/util.go
+++ b/pkg/util.go
@@ -101,3 +101,4 @@
 package util
+
 func Helper() int {
 	return 1
`
	orig, err := Extract(multiFileDiff, Options{})
	require.NoError(t, err)
	moved, err := Extract(shifted, Options{})
	require.NoError(t, err)

	require.NotEmpty(t, moved.Changes)
	assert.Equal(t, orig.Changes[0].Digest, moved.Changes[0].Digest)
	assert.NotEqual(t, orig.Changes[0].Range.OldStart, moved.Changes[0].Range.OldStart)
}

func TestCountChangedLines(t *testing.T) {
	added, deleted := countChangedLines(" ctx\n+one\n+two\n-gone\n ctx\n")
	assert.Equal(t, 2, added)
	assert.Equal(t, 1, deleted)
}

func TestStripGitPrefix(t *testing.T) {
	assert.Equal(t, "pkg/x.go", stripGitPrefix("a/pkg/x.go"))
	assert.Equal(t, "pkg/x.go", stripGitPrefix("b/pkg/x.go"))
	assert.Equal(t, "", stripGitPrefix("/dev/null"))
	assert.Equal(t, "plain.go", stripGitPrefix("plain.go"))
}
