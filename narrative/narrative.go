// Package narrative produces model-written prose: a general explanation of a medication
// list and translations of service output.
package narrative

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/rxscan-api/interactions"
	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/llm"
	"github.com/giygas/rxscan-api/metrics"
	"github.com/giygas/rxscan-api/prompts"
)

// EnglishCode is the language the service composes in; translating into it is the identity
const EnglishCode = "en"

var (
	_ interfaces.Explainer  = (*Explainer)(nil)
	_ interfaces.Translator = (*Translator)(nil)
)

// Explainer asks a model for a short, non-diagnostic explanation
type Explainer struct {
	client llm.Client
	prompt prompts.Prompt
}

// NewExplainer creates an explainer using the explanation prompt
func NewExplainer(client llm.Client, p *prompts.Prompts) *Explainer {
	return &Explainer{client: client, prompt: p.Explanation}
}

// Explain writes prose about names and the interactions found among them
func (e *Explainer) Explain(ctx context.Context, names []string, matches []interactions.Match) (text string, err error) {
	defer func(start time.Time) { metrics.ObserveCollaborator("explainer", start, err) }(time.Now())

	prompt := e.prompt.Render(map[string]string{
		"meds":         formatNames(names),
		"interactions": formatMatches(matches),
	})

	text, err = e.client.Generate(ctx, prompt, e.prompt.Temperature)
	if err != nil {
		return "", fmt.Errorf("generating explanation: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("generating explanation: empty response")
	}
	return text, nil
}

// Translator asks a model to translate text, returning only the translation
type Translator struct {
	client llm.Client
	prompt prompts.Prompt
}

// NewTranslator creates a translator using the translation prompt
func NewTranslator(client llm.Client, p *prompts.Prompts) *Translator {
	return &Translator{client: client, prompt: p.Translation}
}

// Translate returns text in lang. Empty text and English targets are returned without a model call.
func (t *Translator) Translate(ctx context.Context, text, lang string) (out string, err error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if lang == "" || lang == EnglishCode {
		return text, nil
	}

	defer func(start time.Time) { metrics.ObserveCollaborator("translator", start, err) }(time.Now())

	prompt := t.prompt.Render(map[string]string{"lang": lang, "text": text})
	out, err = t.client.Generate(ctx, prompt, t.prompt.Temperature)
	if err != nil {
		return "", fmt.Errorf("translating to %s: %w", lang, err)
	}
	return out, nil
}

// formatNames renders names as a JSON list so the model sees clear boundaries
func formatNames(names []string) string {
	if len(names) == 0 {
		return "[]"
	}
	data, err := json.Marshal(names)
	if err != nil {
		return strings.Join(names, ", ")
	}
	return string(data)
}

func formatMatches(matches []interactions.Match) string {
	if len(matches) == 0 {
		return "none"
	}
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		line := m.DrugA + " + " + m.DrugB
		if m.Severity != "" {
			line += " (" + m.Severity + ")"
		}
		if m.Note != "" {
			line += ": " + m.Note
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "; ")
}
