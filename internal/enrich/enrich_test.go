package enrich

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patchforge/patchforge/internal/config"
	"github.com/patchforge/patchforge/internal/models"
)

func TestNoop(t *testing.T) {
	var e Enricher = Noop{}
	assert.Nil(t, e.Annotate(context.Background(), CheckpointDependencies, &models.Result{}))
	assert.Nil(t, e.NamePatches(context.Background(), nil))
}

func TestNewOpenAIDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Enrichment.Enabled = false
	assert.Nil(t, NewOpenAI(cfg))
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"bare array", `[{"id":1}]`, `[{"id":1}]`},
		{"fenced", "```json\n[{\"id\":1}]\n```", `[{"id":1}]`},
		{"prose wrapped", `Here you go: [{"id":1}] hope that helps`, `[{"id":1}]`},
		{"no array", "sorry, cannot help", "sorry, cannot help"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.reply))
		})
	}
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "refactor-parser-core", sanitizeName("Refactor Parser Core"))
	assert.Equal(t, "fix-issue-42", sanitizeName("  Fix issue #42! "))
	assert.Equal(t, "", sanitizeName("???"))

	long := sanitizeName(strings.Repeat("very-long-name-", 10))
	assert.LessOrEqual(t, len(long), 48)
	assert.False(t, strings.HasPrefix(long, "-"))
	assert.False(t, strings.HasSuffix(long, "-"))
}
