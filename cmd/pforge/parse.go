package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/patchforge/patchforge/internal/analyzer"
	"github.com/patchforge/patchforge/internal/extractor"
	"github.com/patchforge/patchforge/internal/gitio"
	"github.com/patchforge/patchforge/internal/resolver"
)

var parseShowSymbols bool

var parseCmd = &cobra.Command{
	Use:   "parse [diff-file]",
	Short: "Parse a diff and print the extracted changes and dependencies",
	Long: `Parse runs the extraction and analysis stages only, without splitting.

Useful for inspecting what the engine sees: one change per hunk, the
symbols found on each side, and the resolved dependency edges.

Examples:
  pforge parse changes.diff
  git diff | pforge parse -
  pforge parse changes.diff --symbols`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	parseCmd.Flags().BoolVar(&parseShowSymbols, "symbols", false, "include per-change symbol occurrences")
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read diff: %w", err)
	}

	extracted, err := extractor.Extract(string(data), extractor.Options{LanguageFor: gitio.DetectLanguage})
	if err != nil {
		return err
	}

	an := analyzer.New(cfg.Analyzer.Workers)
	if err := an.AnalyzeAll(ctx, extracted.Changes); err != nil {
		return err
	}

	idx := resolver.BuildIndex(extracted.Changes)
	resolved := resolver.Resolve(extracted.Changes, idx)

	payload := map[string]any{
		"changes":      extracted.Changes,
		"dependencies": resolved.Edges,
		"warnings":     append(extracted.Warnings, resolved.Warnings...),
	}
	if !parseShowSymbols {
		for _, c := range extracted.Changes {
			c.Symbols = nil
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
