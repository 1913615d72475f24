// Package output materializes a run's result on disk: one .patch file
// per patch, a manifest describing the split, and an apply script.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/patchforge/patchforge/internal/models"
)

// Writer emits patch files into a target directory
type Writer struct {
	dir string
}

func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WriteAll writes every patch plus manifest.yaml and apply.sh. Existing
// files with the same names are overwritten.
func (w *Writer) WriteAll(res *models.Result) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var patchFiles []string
	for _, p := range res.Patches {
		name := fmt.Sprintf("%s.patch", p.Name)
		if err := w.writePatch(name, p); err != nil {
			return err
		}
		patchFiles = append(patchFiles, name)
	}

	if err := w.writeManifest(res, patchFiles); err != nil {
		return err
	}
	return w.writeApplyScript(patchFiles)
}

// writePatch emits one patch: a descriptive comment header, then the
// unified diff. git apply and patch(1) skip the leading prose.
func (w *Writer) writePatch(name string, p *models.Patch) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Patch %d: %s\n", p.ID, p.Name)
	if p.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Description)
	}
	if len(p.DependsOn) > 0 {
		fmt.Fprintf(&b, "\nApply after patch(es): %s\n", joinInts(p.DependsOn))
	}
	for _, warning := range p.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s\n", warning)
	}
	b.WriteString("\n")

	lastFile := ""
	for _, c := range p.Changes {
		if c.File != lastFile {
			writeFileHeader(&b, c)
			lastFile = c.File
		}
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n",
			c.Range.OldStart, c.Range.OldLines, c.Range.NewStart, c.Range.NewLines)
		b.WriteString(c.Body)
		if !strings.HasSuffix(c.Body, "\n") {
			b.WriteString("\n")
		}
	}

	path := filepath.Join(w.dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeFileHeader(b *strings.Builder, c *models.Change) {
	fmt.Fprintf(b, "diff --git a/%s b/%s\n", c.File, c.File)
	switch c.Kind {
	case models.ChangeAdd:
		fmt.Fprintf(b, "--- /dev/null\n+++ b/%s\n", c.File)
	case models.ChangeDelete:
		fmt.Fprintf(b, "--- a/%s\n+++ /dev/null\n", c.File)
	default:
		fmt.Fprintf(b, "--- a/%s\n+++ b/%s\n", c.File, c.File)
	}
}

// Manifest mirrors the result in a reviewer-facing shape: change bodies
// live in the .patch files, the manifest carries identity and ordering.
type Manifest struct {
	RunID     string          `yaml:"run_id"`
	Generated string          `yaml:"generated"`
	Patches   []ManifestPatch `yaml:"patches"`
	Metrics   models.Metrics  `yaml:"metrics"`
	Warnings  []string        `yaml:"warnings,omitempty"`
}

type ManifestPatch struct {
	ID          int              `yaml:"id"`
	Name        string           `yaml:"name"`
	File        string           `yaml:"file"`
	Description string           `yaml:"description,omitempty"`
	DependsOn   []int            `yaml:"depends_on"`
	SizeLines   int              `yaml:"size_lines"`
	Files       []string         `yaml:"files"`
	Changes     []ManifestChange `yaml:"changes"`
	Warnings    []string         `yaml:"warnings,omitempty"`
}

type ManifestChange struct {
	ID     string `yaml:"id"`
	File   string `yaml:"file"`
	Kind   string `yaml:"kind"`
	Digest string `yaml:"digest"`
}

// LoadManifest reads a previously written manifest.yaml from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "manifest.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func (w *Writer) writeManifest(res *models.Result, patchFiles []string) error {
	m := Manifest{
		RunID:     res.RunID,
		Generated: time.Now().UTC().Format(time.RFC3339),
		Metrics:   res.Metrics,
		Warnings:  res.Warnings,
	}
	for i, p := range res.Patches {
		mp := ManifestPatch{
			ID:          p.ID,
			Name:        p.Name,
			File:        patchFiles[i],
			Description: p.Description,
			DependsOn:   p.DependsOn,
			SizeLines:   p.SizeLines,
			Files:       p.Files,
			Warnings:    p.Warnings,
		}
		for _, c := range p.Changes {
			mp.Changes = append(mp.Changes, ManifestChange{
				ID:     c.ID,
				File:   c.File,
				Kind:   string(c.Kind),
				Digest: c.Digest,
			})
		}
		m.Patches = append(m.Patches, mp)
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	path := filepath.Join(w.dir, "manifest.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// writeApplyScript emits apply.sh, which applies the patches in id order
// and stops at the first failure.
func (w *Writer) writeApplyScript(patchFiles []string) error {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env bash\n")
	b.WriteString("# Applies the patches in dependency order. Run from the repository root.\n")
	b.WriteString("set -euo pipefail\n\n")
	b.WriteString("here=\"$(cd \"$(dirname \"$0\")\" && pwd)\"\n\n")
	for _, name := range patchFiles {
		fmt.Fprintf(&b, "echo \"applying %s\"\n", name)
		fmt.Fprintf(&b, "git apply --verbose \"$here/%s\"\n", name)
	}

	path := filepath.Join(w.dir, "apply.sh")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return fmt.Errorf("write apply script: %w", err)
	}
	return nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}
