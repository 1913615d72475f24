package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/patchforge/patchforge/internal/models"
)

// StandardFormatter outputs the patch table plus warnings (default)
type StandardFormatter struct{}

func (f *StandardFormatter) Format(result *models.Result, w io.Writer) error {
	fmt.Fprintf(w, "PatchForge split\n")
	fmt.Fprintf(w, "Changes: %d  Dependencies: %d  Atomic groups: %d\n\n",
		len(result.Changes), len(result.Dependencies), len(result.AtomicGroups))

	if len(result.Patches) == 0 {
		fmt.Fprintf(w, "No changes, nothing to split.\n")
		return nil
	}

	fmt.Fprintf(w, "Patches:\n")
	for _, p := range result.Patches {
		deps := "-"
		if len(p.DependsOn) > 0 {
			parts := make([]string, len(p.DependsOn))
			for i, d := range p.DependsOn {
				parts[i] = fmt.Sprintf("%d", d)
			}
			deps = strings.Join(parts, ",")
		}
		fmt.Fprintf(w, "%3d. %-40s %5d lines  %2d files  after: %s\n",
			p.ID, p.Name, p.SizeLines, len(p.Files), deps)
	}
	fmt.Fprintf(w, "\nBalance: %.2f  Reviewability: %.2f  Max depth: %d\n",
		result.Metrics.BalanceScore, result.Metrics.ReviewabilityScore,
		result.Metrics.MaxDependencyDepth)

	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\nWarnings:\n")
		for _, warning := range result.Warnings {
			fmt.Fprintf(w, "- %s\n", warning)
		}
	}
	return nil
}
