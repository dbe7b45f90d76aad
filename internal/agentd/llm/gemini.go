package llm

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/askdb/askdb/internal/config"
)

// Gemini generates SQL through the Google Generative AI API.
type Gemini struct {
	apiKey string
	model  string
}

func NewGemini(cfg config.GeminiConfig) *Gemini {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &Gemini{apiKey: cfg.APIKey, model: model}
}

func (g *Gemini) Name() string {
	return "gemini"
}

func (g *Gemini) IsConfigured() bool {
	return g.apiKey != ""
}

func (g *Gemini) GenerateSQL(ctx context.Context, req Request) (*Response, error) {
	if !g.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	// Temperature 0 for deterministic SQL generation
	var temperature float32 = 0.0
	model.Temperature = &temperature

	resp, err := model.GenerateContent(ctx, genai.Text(BuildPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}

	var output string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			output += string(text)
		}
	}

	sql := ExtractSQL(output)
	explanation := StripCodeBlocks(output)
	if explanation == "" {
		explanation = "I prepared a query for your question."
	}

	return &Response{SQL: sql, Explanation: explanation}, nil
}
