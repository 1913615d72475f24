package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/patchforge/patchforge/internal/config"
	"github.com/patchforge/patchforge/internal/models"
)

// OpenAIEnricher calls the OpenAI chat API at pipeline checkpoints.
// Calls are rate limited client-side and bounded by the configured
// timeout; the zero-value answer on any failure is "no annotation".
type OpenAIEnricher struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewOpenAI builds an enricher from config. Returns nil when enrichment
// is disabled or no key is available; callers substitute Noop.
func NewOpenAI(cfg *config.Config) *OpenAIEnricher {
	logger := slog.Default().With("component", "enrich")

	if !cfg.Enrichment.Enabled {
		return nil
	}
	key := config.ResolveAPIKey(cfg)
	if key == "" {
		logger.Info("enrichment enabled but no API key configured, proceeding structural-only")
		return nil
	}

	return &OpenAIEnricher{
		client:  openai.NewClient(key),
		model:   cfg.Enrichment.Model,
		timeout: cfg.Enrichment.Timeout,
		limiter: rate.NewLimiter(rate.Limit(cfg.Enrichment.RateLimit), 1),
		logger:  logger,
	}
}

func (e *OpenAIEnricher) Annotate(ctx context.Context, cp Checkpoint, res *models.Result) []string {
	prompt := annotationPrompt(cp, res)
	if prompt == "" {
		return nil
	}

	reply, err := e.complete(ctx, prompt)
	if err != nil {
		e.logger.Warn("annotation call failed", "checkpoint", string(cp), "error", err)
		return []string{fmt.Sprintf("enrichment unavailable at %s checkpoint: %v", cp, err)}
	}

	var notes []string
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			notes = append(notes, fmt.Sprintf("note (%s): %s", cp, line))
		}
	}
	return notes
}

// NamePatches asks the model for better names and descriptions. Only
// those two fields may change; ids, membership and ordering are fixed.
func (e *OpenAIEnricher) NamePatches(ctx context.Context, patches []*models.Patch) []string {
	if len(patches) == 0 {
		return nil
	}

	reply, err := e.complete(ctx, namingPrompt(patches))
	if err != nil {
		e.logger.Warn("naming call failed", "error", err)
		return []string{fmt.Sprintf("enrichment unavailable at naming checkpoint: %v", err)}
	}

	var suggestions []struct {
		ID          int    `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(extractJSON(reply)), &suggestions); err != nil {
		e.logger.Warn("naming reply not parseable", "error", err)
		return []string{"enrichment naming reply was not valid JSON; structural names kept"}
	}

	byID := make(map[int]*models.Patch, len(patches))
	for _, p := range patches {
		byID[p.ID] = p
	}
	for _, s := range suggestions {
		p := byID[s.ID]
		if p == nil {
			continue
		}
		if name := sanitizeName(s.Name); name != "" {
			p.Name = fmt.Sprintf("patch-%03d-%s", p.ID, name)
		}
		if desc := strings.TrimSpace(s.Description); desc != "" {
			p.Description = desc
		}
	}
	return nil
}

func (e *OpenAIEnricher) complete(ctx context.Context, prompt string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You review structured summaries of code-change partitions. Answer tersely.",
			},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
		MaxTokens:   800,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func annotationPrompt(cp Checkpoint, res *models.Result) string {
	var b strings.Builder
	switch cp {
	case CheckpointDependencies:
		fmt.Fprintf(&b, "A diff was split into %d changes with %d dependency edges.\n",
			len(res.Changes), len(res.Dependencies))
		b.WriteString("List up to 3 dependency relationships that look surprising, one per line, or reply OK.\n")
		for i, d := range res.Dependencies {
			if i >= 40 {
				break
			}
			fmt.Fprintf(&b, "%s -> %s (%s, %.2f)\n", d.Source, d.Target, d.Type, d.Strength)
		}
	case CheckpointGrouping:
		fmt.Fprintf(&b, "Changes were clustered into %d atomic groups.\n", len(res.AtomicGroups))
		b.WriteString("List up to 3 groups that look miscombined, one per line, or reply OK.\n")
		for i, g := range res.AtomicGroups {
			if i >= 20 {
				break
			}
			fmt.Fprintf(&b, "group %d: %s (%s)\n", g.ID, strings.Join(g.Changes, ", "), g.Reason)
		}
	case CheckpointValidation:
		fmt.Fprintf(&b, "Final split: %d patches, balance %.2f, reviewability %.2f, depth %d.\n",
			len(res.Patches), res.Metrics.BalanceScore, res.Metrics.ReviewabilityScore,
			res.Metrics.MaxDependencyDepth)
		b.WriteString("Give at most 2 one-line observations about review order or sizing, or reply OK.\n")
		for _, p := range res.Patches {
			fmt.Fprintf(&b, "patch %d: %s, %d lines, depends on %v\n", p.ID, p.Name, p.SizeLines, p.DependsOn)
		}
	default:
		return ""
	}
	return b.String()
}

func namingPrompt(patches []*models.Patch) string {
	var b strings.Builder
	b.WriteString("Suggest a short kebab-case name (max 5 words) and a one-sentence description for each patch.\n")
	b.WriteString("Reply with a JSON array of {\"id\": n, \"name\": \"...\", \"description\": \"...\"} only.\n\n")
	for _, p := range patches {
		fmt.Fprintf(&b, "patch %d: files %s; %s\n", p.ID, strings.Join(p.Files, ", "), p.Description)
	}
	return b.String()
}

// extractJSON pulls the first JSON array out of a reply that may be
// wrapped in markdown fences or prose.
func extractJSON(reply string) string {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return reply
	}
	return reply[start : end+1]
}

// sanitizeName reduces a suggestion to a safe kebab-case slug
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if len(out) > 48 {
		out = strings.Trim(out[:48], "-")
	}
	return out
}
