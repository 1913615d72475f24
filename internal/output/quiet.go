package output

import (
	"fmt"
	"io"

	"github.com/patchforge/patchforge/internal/models"
)

// QuietFormatter outputs a one-line summary (for scripts and hooks)
type QuietFormatter struct{}

func (f *QuietFormatter) Format(result *models.Result, w io.Writer) error {
	if len(result.Patches) == 0 {
		fmt.Fprintf(w, "no changes, nothing to split\n")
		return nil
	}

	fmt.Fprintf(w, "%d patches from %d changes", len(result.Patches), len(result.Changes))
	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, " (%d warnings)", len(result.Warnings))
	}
	fmt.Fprintf(w, "\n")
	return nil
}
