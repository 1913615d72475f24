// Package gitio produces unified diff text from a local repository. The
// engine never touches git itself; this is its diff-reading collaborator.
package gitio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Source names where a diff comes from
type Source string

const (
	SourceWorkingTree Source = "working-tree"
	SourceStaged      Source = "staged"
	SourceCommit      Source = "commit"
	SourceRange       Source = "range"
)

// DiffWorkingTree returns uncommitted, unstaged changes.
func DiffWorkingTree(ctx context.Context, repoDir string) (string, error) {
	return runDiff(ctx, repoDir, "diff")
}

// DiffStaged returns changes staged for the next commit.
func DiffStaged(ctx context.Context, repoDir string) (string, error) {
	return runDiff(ctx, repoDir, "diff", "--cached")
}

// DiffCommit returns the changes one commit introduced.
func DiffCommit(ctx context.Context, repoDir, ref string) (string, error) {
	return runDiff(ctx, repoDir, "diff", ref+"^!", "--")
}

// DiffRange returns the combined changes between two refs, e.g. a branch
// comparison like "main...feature".
func DiffRange(ctx context.Context, repoDir, spec string) (string, error) {
	return runDiff(ctx, repoDir, "diff", spec, "--")
}

func runDiff(ctx context.Context, repoDir string, args ...string) (string, error) {
	args = append(args, "--no-color", "--no-ext-diff")
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = repoDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s failed: %s", strings.Join(args, " "), msg)
	}
	return stdout.String(), nil
}

// DetectLanguage maps a file path to the language identifier the symbol
// analyzer understands. Unknown extensions return "" so the analyzer
// falls back to its heuristic extractor.
func DetectLanguage(filePath string) string {
	ext := strings.ToLower(filepath.Ext(filePath))

	languageMap := map[string]string{
		".go":  "go",
		".py":  "python",
		".pyi": "python",
		".js":  "javascript",
		".mjs": "javascript",
		".cjs": "javascript",
		".jsx": "jsx",
		".ts":  "typescript",
		".mts": "typescript",
		".cts": "typescript",
		".tsx": "tsx",
	}

	if lang, ok := languageMap[ext]; ok {
		return lang
	}
	return ""
}
