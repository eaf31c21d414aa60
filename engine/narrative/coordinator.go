package narrative

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/engine/choice"
	"github.com/Hrishap/ParallelLives/engine/lifemetrics"
	"github.com/Hrishap/ParallelLives/engine/llm"
)

// Generator is the external narrative collaborator: it receives the built
// prompts and returns raw (ideally JSON) text.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// SourceLLM and SourceFallback identify where a narrative came from.
const (
	SourceLLM      = "llm"
	SourceFallback = "fallback"
)

// Coordinator builds prompts, delegates to the generator, parses strictly,
// and degrades to the deterministic fallback on any failure.
type Coordinator struct {
	generator Generator
	timeout   time.Duration
}

// NewCoordinator creates a coordinator. A nil generator means every call
// uses the fallback template.
func NewCoordinator(generator Generator) *Coordinator {
	return &Coordinator{
		generator: generator,
		timeout:   60 * time.Second,
	}
}

// Generate produces the node narrative. It never fails: generator outages
// and parse failures degrade to FallbackNarrative. The returned source is
// SourceLLM or SourceFallback.
func (c *Coordinator) Generate(ctx context.Context, ch *choice.Choice, m *lifemetrics.Bundle, parent *ParentContext, prefs *Preferences) (*Narrative, string) {
	var parentHappiness *float64
	if parent != nil {
		h := parent.Composite.HappinessScore
		parentHappiness = &h
	}

	if c.generator == nil {
		return FallbackNarrative(m.Occupation.Name, m.City.Name, parentHappiness), SourceFallback
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := buildPrompt(ch, m, parent, prefs)
	content, err := c.generator.Complete(ctx, generatorSystemPrompt, prompt)
	if err != nil {
		slog.Warn("narrative: generator unavailable, using fallback template",
			"occupation", m.Occupation.Name, "city", m.City.Name, "error", err)
		return FallbackNarrative(m.Occupation.Name, m.City.Name, parentHappiness), SourceFallback
	}

	parsed, err := parseNarrative(content)
	if err != nil {
		slog.Warn("narrative: unparseable generator response, using fallback template",
			"error", err, "content_length", len(content))
		return FallbackNarrative(m.Occupation.Name, m.City.Name, parentHappiness), SourceFallback
	}
	return parsed, SourceLLM
}

// NewParentContext condenses a parent node for the prompt.
func NewParentContext(parentNarrative *Narrative, parentComposite lifemetrics.CompositeIndices, choicePath []string) *ParentContext {
	pc := &ParentContext{
		Composite:  parentComposite,
		ChoicePath: choicePath,
	}
	if parentNarrative != nil {
		pc.SummaryExcerpt = excerpt(parentNarrative.Summary, 240)
	}
	return pc
}

// parseNarrative strictly parses the generator response. Missing required
// fields are a hard failure: partially parsed narratives are never returned.
func parseNarrative(content string) (*Narrative, error) {
	content = stripCodeFence(content)

	var n Narrative
	if err := json.Unmarshal([]byte(content), &n); err != nil {
		return nil, errors.Wrapf(ErrParse, "invalid json: %v", err)
	}

	if strings.TrimSpace(n.Summary) == "" {
		return nil, errors.Wrap(ErrParse, "missing summary")
	}
	if len(n.Chapters) == 0 {
		return nil, errors.Wrap(ErrParse, "missing chapters")
	}
	for i, ch := range n.Chapters {
		if strings.TrimSpace(ch.Title) == "" || strings.TrimSpace(ch.Text) == "" {
			return nil, errors.Wrapf(ErrParse, "chapter %d missing title or text", i)
		}
	}
	for i, ms := range n.Milestones {
		if !ms.Significance.Valid() {
			return nil, errors.Wrapf(ErrParse, "milestone %d has invalid significance %q", i, ms.Significance)
		}
	}
	if n.ConfidenceScore < 0 || n.ConfidenceScore > 1 {
		n.ConfidenceScore = 0.5
	}
	return &n, nil
}

func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}

// llmGenerator adapts the chat service to the Generator interface.
type llmGenerator struct {
	svc llm.Service
}

// NewLLMGenerator wraps the chat service as a narrative Generator.
func NewLLMGenerator(svc llm.Service) Generator {
	return &llmGenerator{svc: svc}
}

func (g *llmGenerator) Complete(ctx context.Context, system, user string) (string, error) {
	content, _, err := g.svc.Chat(ctx, []llm.Message{
		llm.SystemPrompt(system),
		llm.UserMessage(user),
	})
	if err != nil {
		return "", errors.Wrap(ErrUnavailable, err.Error())
	}
	return content, nil
}
