package output

import (
	"encoding/json"
	"io"

	"github.com/patchforge/patchforge/internal/models"
)

// JSONFormatter outputs the full result as indented JSON for tooling
type JSONFormatter struct{}

// jsonPatch flattens a patch so change bodies stay out of the stream
type jsonPatch struct {
	*models.Patch
	ChangeIDs []string `json:"changes"`
}

func (f *JSONFormatter) Format(result *models.Result, w io.Writer) error {
	patches := make([]jsonPatch, len(result.Patches))
	for i, p := range result.Patches {
		patches[i] = jsonPatch{Patch: p, ChangeIDs: p.ChangeIDs()}
	}

	payload := struct {
		RunID        string               `json:"run_id"`
		Changes      []*models.Change     `json:"changes"`
		Dependencies []models.Dependency  `json:"dependencies"`
		AtomicGroups []models.AtomicGroup `json:"atomic_groups"`
		Patches      []jsonPatch          `json:"patches"`
		Metrics      models.Metrics       `json:"metrics"`
		Warnings     []string             `json:"warnings,omitempty"`
	}{
		RunID:        result.RunID,
		Changes:      result.Changes,
		Dependencies: result.Dependencies,
		AtomicGroups: result.AtomicGroups,
		Patches:      patches,
		Metrics:      result.Metrics,
		Warnings:     result.Warnings,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
