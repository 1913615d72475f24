// Package enrich adds optional LLM-generated annotations on top of the
// structural pipeline. Enrichment is best-effort: every call is bounded
// by a timeout, and any failure degrades to the structural result with a
// warning, never an error.
package enrich

import (
	"context"

	"github.com/patchforge/patchforge/internal/models"
)

// Checkpoint identifies where in the pipeline an annotation pass runs
type Checkpoint string

const (
	CheckpointDependencies Checkpoint = "dependencies"
	CheckpointGrouping     Checkpoint = "grouping"
	CheckpointNaming       Checkpoint = "naming"
	CheckpointValidation   Checkpoint = "validation"
)

// Enricher is the optional LLM collaborator. Annotate returns advisory
// notes for a checkpoint; NamePatches may rewrite patch names and
// descriptions in place, nothing else. Implementations must be
// best-effort and never fail the run.
type Enricher interface {
	Annotate(ctx context.Context, cp Checkpoint, res *models.Result) []string
	NamePatches(ctx context.Context, patches []*models.Patch) []string
}

// Noop is the default enricher when no API key is configured
type Noop struct{}

func (Noop) Annotate(context.Context, Checkpoint, *models.Result) []string { return nil }

func (Noop) NamePatches(context.Context, []*models.Patch) []string { return nil }
