// Package extraction reads medication names out of prescription images with a vision model.
package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/giygas/rxscan-api/interfaces"
	"github.com/giygas/rxscan-api/llm"
	"github.com/giygas/rxscan-api/metrics"
	"github.com/giygas/rxscan-api/prompts"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const extractTimeout = 60 * time.Second

var _ interfaces.Extractor = (*Gemini)(nil)

// Gemini implements the Extractor interface using Google Gemini
type Gemini struct {
	client    *genai.Client
	modelName string
	prompt    prompts.Prompt
}

// NewGemini creates a new Gemini extractor
func NewGemini(ctx context.Context, apiKey, modelName string, p *prompts.Prompts) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Gemini{
		client:    client,
		modelName: modelName,
		prompt:    p.Extraction,
	}, nil
}

// Extract sends the image and the extraction prompt and parses the JSON reply
func (g *Gemini) Extract(ctx context.Context, image []byte, mimeType string) (result interfaces.Extraction, err error) {
	defer func(start time.Time) { metrics.ObserveCollaborator("extractor", start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(g.prompt.Temperature)
	model.ResponseMIMEType = "application/json"

	// genai.ImageData expects the format suffix ("jpeg"), not the full MIME type
	parts := []genai.Part{
		genai.Text(g.prompt.Render(nil)),
		genai.ImageData(imageFormat(mimeType), image),
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return interfaces.Extraction{}, fmt.Errorf("generating content: %w", err)
	}

	text, err := llm.ResponseText(resp)
	if err != nil {
		return interfaces.Extraction{}, fmt.Errorf("reading gemini response: %w", err)
	}

	return ParseResponse(text), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

func imageFormat(mimeType string) string {
	format := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
	if format == "" || format == "jpg" {
		return "jpeg"
	}
	return format
}
