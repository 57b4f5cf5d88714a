package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"sceneforge/internal/logging"
	"sceneforge/internal/provider"
)

const selectorSystemPrompt = `You pick which skills a motion-graphics code generator needs for a user request.
You are given a numbered list of available skills, each with an id and a trigger condition.
Reply with ONLY a JSON array of the skill ids that apply, most relevant first.
Pick a skill only when its trigger clearly matches the request. Reply with [] when none apply.`

// Selector asks the model which catalog skills apply to a prompt.
type Selector struct {
	client  provider.Client
	catalog *Catalog
	log     *zap.Logger
}

// NewSelector builds a selector over the fixed catalog.
func NewSelector(client provider.Client, catalog *Catalog) *Selector {
	return &Selector{
		client:  client,
		catalog: catalog,
		log:     logging.Named("skills"),
	}
}

// Select returns the applicable skills for prompt, in the model's relevance
// order. summary is optional conversation context. Skills whose ids appear
// in exclude are removed from the candidate list before the call so
// already-injected knowledge is never re-sent. Ids the model invents are
// dropped. When no candidates remain after exclusion the provider is not
// called at all.
func (s *Selector) Select(ctx context.Context, prompt, summary string, exclude []string) ([]Descriptor, error) {
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	candidates := make([]Descriptor, 0, s.catalog.Len())
	for _, d := range s.catalog.All() {
		if !excluded[d.ID] {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString("Available skills:\n")
	for i, d := range candidates {
		fmt.Fprintf(&sb, "%d. id=%s category=%s trigger=%s\n", i+1, d.ID, d.Category, d.Trigger)
	}
	if summary != "" {
		sb.WriteString("\nConversation so far:\n")
		sb.WriteString(summary)
		sb.WriteString("\n")
	}
	sb.WriteString("\nUser request:\n")
	sb.WriteString(prompt)

	response, err := s.client.CompleteWithSystem(ctx, selectorSystemPrompt, sb.String())
	if err != nil {
		return nil, fmt.Errorf("skill selection: %w", err)
	}

	ids := parseIDArray(response)
	selected := make([]Descriptor, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || excluded[id] {
			continue
		}
		d, ok := s.catalog.Get(id)
		if !ok {
			s.log.Warn("selector returned unknown skill id", zap.String("id", id))
			continue
		}
		seen[id] = true
		selected = append(selected, d)
	}

	s.log.Debug("skills selected",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)))
	return selected, nil
}

// parseIDArray pulls a JSON string array out of a model reply that may be
// wrapped in prose or a code fence.
func parseIDArray(response string) []string {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(response[start:end+1]), &ids); err != nil {
		return nil
	}
	return ids
}
