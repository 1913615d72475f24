package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChangeID(t *testing.T) {
	assert.Equal(t, "pkg/util.go#0", ChangeID("pkg/util.go", 0))
	assert.Equal(t, "pkg/util.go#3", ChangeID("pkg/util.go", 3))
}

func TestContentDigestIgnoresWhitespaceDrift(t *testing.T) {
	a := "+func Helper() int {\n+\treturn 1\n+}\n"
	b := "+func   Helper() int {\n+    return 1\n+}\n"
	assert.Equal(t, ContentDigest(a), ContentDigest(b))
}

func TestContentDigestKeepsMarker(t *testing.T) {
	added := "+x := compute()\n"
	deleted := "-x := compute()\n"
	assert.NotEqual(t, ContentDigest(added), ContentDigest(deleted))
}

func TestContentDigestIgnoresBlankLines(t *testing.T) {
	// trailing newlines and empty lines never shift the digest
	assert.Equal(t, ContentDigest("+a\n+b"), ContentDigest("+a\n+b\n"))
}

func TestSizeLinesExcludesContext(t *testing.T) {
	c := &Change{Added: 4, Deleted: 2}
	assert.Equal(t, 6, c.SizeLines())
}

func TestQualifiedName(t *testing.T) {
	plain := Symbol{Name: "Helper"}
	assert.Equal(t, "Helper", plain.QualifiedName())

	scoped := Symbol{Name: "Helper", Package: "util"}
	assert.Equal(t, "util.Helper", scoped.QualifiedName())
}

func TestPatchChangeIDs(t *testing.T) {
	p := &Patch{Changes: []*Change{{ID: "a.go#0"}, {ID: "b.go#1"}}}
	assert.Equal(t, []string{"a.go#0", "b.go#1"}, p.ChangeIDs())
}
