package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/patchforge/patchforge/internal/output"
)

var (
	resplitOutDir     string
	resplitPrevDir    string
	resplitTargetSize int
	resplitDryRun     bool
)

var resplitCmd = &cobra.Command{
	Use:   "resplit [diff-file]",
	Short: "Re-split an updated diff, reporting what moved since the last run",
	Long: `Resplit runs the same pipeline as split, then compares the result
against the manifest of a previous run by content digest. A hunk whose
normalized content is unchanged is matched even when its line numbers
drifted, so the report shows which patches carried over, which changed,
and which hunks are new or gone.

The input may also be a single .patch file from an earlier run: pass it
with a smaller --target-size to break an oversized patch further down.
The descriptive header emitted above the diff content is ignored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runResplit,
}

func init() {
	resplitCmd.Flags().StringVar(&resplitPrevDir, "prev", "patches", "directory holding the previous run's manifest")
	resplitCmd.Flags().StringVarP(&resplitOutDir, "out", "o", "", "output directory (default from config)")
	resplitCmd.Flags().IntVar(&resplitTargetSize, "target-size", 0, "override target changed lines per patch")
	resplitCmd.Flags().BoolVar(&resplitDryRun, "dry-run", false, "report only, write nothing")
}

// stripPatchHeader drops the descriptive preamble a written .patch file
// carries above its first file section, so emitted patches round-trip as
// resplit input. Text without such a section passes through untouched.
func stripPatchHeader(diffText string) string {
	if strings.HasPrefix(diffText, "diff --git ") {
		return diffText
	}
	if idx := strings.Index(diffText, "\ndiff --git "); idx >= 0 {
		return diffText[idx+1:]
	}
	return diffText
}

func runResplit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	prev, err := output.LoadManifest(resplitPrevDir)
	if err != nil {
		return err
	}

	var diffText string
	if len(args) == 1 && args[0] != "-" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read diff file: %w", err)
		}
		diffText = string(data)
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		diffText = string(data)
	}

	if resplitOutDir != "" {
		cfg.Output.Dir = resplitOutDir
	}
	if resplitTargetSize > 0 {
		cfg.Split.TargetSize = resplitTargetSize
	}

	res, err := runPipeline(ctx, stripPatchHeader(diffText))
	if err != nil {
		return err
	}

	// digest -> previous patch id
	prevPatch := make(map[string]int)
	for _, p := range prev.Patches {
		for _, c := range p.Changes {
			prevPatch[c.Digest] = p.ID
		}
	}

	fmt.Printf("Previous run %s: %d patches. New run: %d patches.\n\n",
		prev.RunID, len(prev.Patches), len(res.Patches))

	newHunks := 0
	seen := make(map[string]bool)
	for _, p := range res.Patches {
		carried := make(map[int]int)
		for _, c := range p.Changes {
			seen[c.Digest] = true
			if old, ok := prevPatch[c.Digest]; ok {
				carried[old]++
			} else {
				newHunks++
			}
		}
		switch len(carried) {
		case 0:
			fmt.Printf("patch %3d %-40s all hunks new\n", p.ID, p.Name)
		case 1:
			for old := range carried {
				fmt.Printf("patch %3d %-40s carries previous patch %d\n", p.ID, p.Name, old)
			}
		default:
			fmt.Printf("patch %3d %-40s merges hunks from %d previous patches\n", p.ID, p.Name, len(carried))
		}
	}

	gone := 0
	for digest := range prevPatch {
		if !seen[digest] {
			gone++
		}
	}
	fmt.Printf("\n%d new hunks, %d hunks from the previous run no longer present.\n", newHunks, gone)

	if !resplitDryRun && len(res.Patches) > 0 {
		if err := output.NewWriter(cfg.Output.Dir).WriteAll(res); err != nil {
			return err
		}
		logger.WithField("dir", cfg.Output.Dir).Info("Patches written")
	}
	return nil
}
