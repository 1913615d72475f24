// Package extractor parses unified diff text into atomic change units.
package extractor

import (
	"io"
	"log/slog"
	"strings"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/patchforge/patchforge/internal/errors"
	"github.com/patchforge/patchforge/internal/models"
)

// Options controls change extraction.
type Options struct {
	// LanguageFor maps a file path to its source language identifier.
	// Nil means no language is attached; the analyzer then uses its
	// heuristic fallback for every change.
	LanguageFor func(file string) string
}

// Result is the extractor output: ordered changes plus non-fatal warnings.
type Result struct {
	Changes  []*models.Change
	Warnings []string
}

// Extract parses unified-diff text into an ordered list of Changes, one per
// hunk. An empty diff yields zero changes and no error. An unparseable file
// section is fatal whenever valid sections would follow it; only malformed
// content after the last file section is dropped with a warning.
func Extract(diffText string, opts Options) (*Result, error) {
	res := &Result{}
	if strings.TrimSpace(diffText) == "" {
		return res, nil
	}

	reader := diff.NewMultiFileDiffReader(strings.NewReader(diffText))
	parsedFiles := 0
	totalSections := countFileSections(diffText)

	for {
		fd, err := reader.ReadFile()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A failure before the last file section would silently drop
			// every section after it, so partial output is not an option.
			if parsedFiles == 0 || parsedFiles+1 < totalSections {
				return nil, errors.MalformedDiffErrorf("cannot parse diff: %v", err)
			}
			slog.Warn("ignoring malformed trailing diff content", "error", err)
			res.Warnings = append(res.Warnings,
				"malformed content after last valid hunk was ignored")
			break
		}
		parsedFiles++

		file, kind := fileAndKind(fd)
		if file == "" {
			res.Warnings = append(res.Warnings, "skipped diff section with no usable file path")
			continue
		}

		lang := ""
		if opts.LanguageFor != nil {
			lang = opts.LanguageFor(file)
		}

		for i, hunk := range fd.Hunks {
			body := string(hunk.Body)
			added, deleted := countChangedLines(body)

			change := &models.Change{
				ID:   models.ChangeID(file, i),
				File: file,
				Kind: kind,
				Range: models.LineRange{
					OldStart: int(hunk.OrigStartLine),
					OldLines: int(hunk.OrigLines),
					NewStart: int(hunk.NewStartLine),
					NewLines: int(hunk.NewLines),
				},
				Body:     body,
				Added:    added,
				Deleted:  deleted,
				Digest:   models.ContentDigest(body),
				Language: lang,
			}
			res.Changes = append(res.Changes, change)
		}
	}

	return res, nil
}

// countFileSections counts the file sections the diff text claims to hold,
// independent of whether they parse. git diffs carry one "diff --git" line
// per file; headerless unified diffs carry one "+++" line instead.
func countFileSections(diffText string) int {
	gitHeaders, newFileLines := 0, 0
	for _, line := range strings.Split(diffText, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			gitHeaders++
		}
		if strings.HasPrefix(line, "+++ ") {
			newFileLines++
		}
	}
	if gitHeaders > 0 {
		return gitHeaders
	}
	return newFileLines
}

// fileAndKind derives the canonical path and change kind from a file diff.
// Deletions keep the old path since the new side is /dev/null.
func fileAndKind(fd *diff.FileDiff) (string, models.ChangeKind) {
	orig := stripGitPrefix(fd.OrigName)
	next := stripGitPrefix(fd.NewName)

	switch {
	case next == "" && orig == "":
		return "", models.ChangeModify
	case next == "":
		return orig, models.ChangeDelete
	case orig == "":
		return next, models.ChangeAdd
	default:
		return next, models.ChangeModify
	}
}

// stripGitPrefix removes the a/ or b/ prefix git puts on diff paths and
// normalizes /dev/null to the empty string.
func stripGitPrefix(name string) string {
	if name == "" || name == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

// countChangedLines counts added and deleted lines in a hunk body.
// Context lines are excluded; they never contribute to patch size.
func countChangedLines(body string) (added, deleted int) {
	for _, line := range strings.Split(body, "\n") {
		if line == "" {
			continue
		}
		switch line[0] {
		case '+':
			added++
		case '-':
			deleted++
		}
	}
	return added, deleted
}
