package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripPatchHeader(t *testing.T) {
	diff := "diff --git a/x.go b/x.go\n--- a/x.go\n+++ b/x.go\n@@ -1,1 +1,2 @@\n x\n+y\n"
	emitted := "Patch 0: patch-000-util\n\n1 file(s), +1/-0 lines: x.go\n\n" + diff

	assert.Equal(t, diff, stripPatchHeader(emitted), "emitted patch headers are dropped")
	assert.Equal(t, diff, stripPatchHeader(diff), "raw diffs pass through")
	assert.Equal(t, "no diff here\n", stripPatchHeader("no diff here\n"))
}
