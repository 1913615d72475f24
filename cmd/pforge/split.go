package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/patchforge/patchforge/internal/cache"
	"github.com/patchforge/patchforge/internal/engine"
	"github.com/patchforge/patchforge/internal/enrich"
	"github.com/patchforge/patchforge/internal/ghsource"
	"github.com/patchforge/patchforge/internal/gitio"
	"github.com/patchforge/patchforge/internal/models"
	"github.com/patchforge/patchforge/internal/output"
)

var (
	splitStaged     bool
	splitCommit     string
	splitRange      string
	splitPR         string
	splitRepoDir    string
	splitOutDir     string
	splitTargetSize int
	splitMaxPatches int
	splitDryRun     bool
	splitQuiet      bool
	splitJSON       bool
)

var splitCmd = &cobra.Command{
	Use:   "split [diff-file]",
	Short: "Split a diff into ordered, independently-applicable patches",
	Long: `Split reads a unified diff and partitions it into a sequence of
patches that apply cleanly in order.

The diff comes from the first matching source: an explicit file argument
("-" for stdin), --pr, --commit, --range, --staged, or the working tree.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().BoolVar(&splitStaged, "staged", false, "split the staged changes")
	splitCmd.Flags().StringVar(&splitCommit, "commit", "", "split the changes of one commit")
	splitCmd.Flags().StringVar(&splitRange, "range", "", "split a ref range, e.g. main...feature")
	splitCmd.Flags().StringVar(&splitPR, "pr", "", "split a GitHub pull request (owner/repo#number or URL)")
	splitCmd.Flags().StringVar(&splitRepoDir, "repo", ".", "repository directory for git-based sources")
	splitCmd.Flags().StringVarP(&splitOutDir, "out", "o", "", "output directory (default from config)")
	splitCmd.Flags().IntVar(&splitTargetSize, "target-size", 0, "target changed lines per patch (default from config)")
	splitCmd.Flags().IntVar(&splitMaxPatches, "max-patches", 0, "upper bound on patch count (0 = unlimited)")
	splitCmd.Flags().BoolVar(&splitDryRun, "dry-run", false, "compute the split without writing patch files")
	splitCmd.Flags().BoolVarP(&splitQuiet, "quiet", "q", false, "one-line summary only")
	splitCmd.Flags().BoolVar(&splitJSON, "json", false, "print the full result as JSON")
}

func runSplit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	diffText, err := readDiff(cmd, args)
	if err != nil {
		return err
	}

	if splitTargetSize > 0 {
		cfg.Split.TargetSize = splitTargetSize
	}
	if splitMaxPatches > 0 {
		cfg.Split.MaxPatches = splitMaxPatches
	}
	if splitOutDir != "" {
		cfg.Output.Dir = splitOutDir
	}

	res, err := runPipeline(ctx, diffText)
	if err != nil {
		return err
	}

	if !splitDryRun && len(res.Patches) > 0 {
		if err := output.NewWriter(cfg.Output.Dir).WriteAll(res); err != nil {
			return err
		}
		logger.WithField("dir", cfg.Output.Dir).Info("Patches written")
	}

	return formatResult(res)
}

// runPipeline assembles the engine from config and runs it over one diff
func runPipeline(ctx context.Context, diffText string) (*models.Result, error) {
	opts := []engine.Option{}

	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path)
		if err != nil {
			logger.WithError(err).Warn("Extraction cache unavailable, continuing without it")
		} else {
			defer store.Close()
			opts = append(opts, engine.WithCache(store))
		}
	}

	if enricher := enrich.NewOpenAI(cfg); enricher != nil {
		opts = append(opts, engine.WithEnricher(enricher))
	}

	return engine.New(cfg, opts...).Run(ctx, diffText, gitio.DetectLanguage)
}

// readDiff picks the diff source by flag precedence
func readDiff(cmd *cobra.Command, args []string) (string, error) {
	ctx := cmd.Context()

	if len(args) == 1 {
		if args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return "", fmt.Errorf("read stdin: %w", err)
			}
			return string(data), nil
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", fmt.Errorf("read diff file: %w", err)
		}
		return string(data), nil
	}

	switch {
	case splitPR != "":
		owner, repo, number, err := ghsource.ParsePRRef(splitPR)
		if err != nil {
			return "", err
		}
		client := ghsource.NewClient(cfg.GitHub.Token, cfg.GitHub.RateLimit)
		if title, err := client.FetchPRTitle(ctx, owner, repo, number); err == nil {
			logger.WithField("title", title).Infof("Splitting %s/%s#%d", owner, repo, number)
		}
		return client.FetchPRDiff(ctx, owner, repo, number)
	case splitCommit != "":
		return gitio.DiffCommit(ctx, splitRepoDir, splitCommit)
	case splitRange != "":
		return gitio.DiffRange(ctx, splitRepoDir, splitRange)
	case splitStaged:
		return gitio.DiffStaged(ctx, splitRepoDir)
	default:
		return gitio.DiffWorkingTree(ctx, splitRepoDir)
	}
}

func formatResult(res *models.Result) error {
	level := output.GetDefaultVerbosity()
	switch {
	case splitJSON:
		level = output.VerbosityJSON
	case splitQuiet:
		level = output.VerbosityQuiet
	case !term.IsTerminal(int(os.Stdout.Fd())):
		level = output.VerbosityQuiet
	}
	return output.NewFormatter(level).Format(res, os.Stdout)
}
