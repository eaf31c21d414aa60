package choice

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/Hrishap/ParallelLives/engine/llm"
)

const classifierSystemPrompt = `You classify a life decision into structured change dimensions.
Return ONLY a JSON object with these optional string fields:
careerChange, educationChange, lifestyleChange, personalityChange, relationshipChange,
and an optional locationChange object {"city": "...", "country": "..."}.
Include only the dimensions the text actually expresses. Do not invent values.`

// llmClassifier delegates free-text classification to the LLM service.
type llmClassifier struct {
	svc llm.Service
}

// NewLLMClassifier builds a Classifier backed by the chat service.
func NewLLMClassifier(svc llm.Service) Classifier {
	return &llmClassifier{svc: svc}
}

func (c *llmClassifier) Classify(ctx context.Context, text string) (*Choice, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("empty text")
	}

	messages := []llm.Message{
		llm.SystemPrompt(classifierSystemPrompt),
		llm.UserMessage("Decision: " + text),
	}
	content, _, err := c.svc.Chat(ctx, messages)
	if err != nil {
		return nil, errors.Wrap(err, "classifier llm call failed")
	}

	parsed, err := parseChoiceJSON(content)
	if err != nil {
		return nil, err
	}
	if parsed.IsEmpty() {
		return nil, errors.New("classifier returned no dimensions")
	}
	return parsed, nil
}

// parseChoiceJSON parses a Choice from LLM output, tolerating markdown code
// block wrappers but nothing else.
func parseChoiceJSON(content string) (*Choice, error) {
	content = stripCodeFence(content)
	var c Choice
	if err := json.Unmarshal([]byte(content), &c); err != nil {
		return nil, errors.Wrap(err, "malformed classifier response")
	}
	return &c, nil
}

// stripCodeFence removes a surrounding markdown code block, if present.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
