package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini serves the text tasks through a Gemini model. It keeps one client
// for the lifetime of the process; call Close on shutdown.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini connects to the Gemini API.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Gemini{client: cl, model: strings.TrimSpace(model)}, nil
}

// Close releases the underlying connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// Summarize asks the model for a short factual caption of text.
func (g *Gemini) Summarize(ctx context.Context, text string, minLength, maxLength int) (string, error) {
	m := g.generativeModel(int32(maxLength * 2))
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(fmt.Sprintf(
			"Summarize the comic panel text in one sentence of %d to %d words. "+
				"Answer with the summary only.", minLength, maxLength))},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", fmt.Errorf("gemini summarize: %w", err)
	}
	out := strings.TrimSpace(firstText(resp))
	if out == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// RankLabels asks the model for the single best label. The answer is free
// text; callers canonicalise it against the candidate set.
func (g *Gemini) RankLabels(ctx context.Context, text string, candidates []string) ([]string, error) {
	m := g.generativeModel(16)
	m.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(
			"Classify the genre of the comic panel text. Reply with exactly one label from this list and nothing else: " +
				strings.Join(candidates, ", "))},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini classify: %w", err)
	}
	label := strings.Trim(strings.TrimSpace(firstText(resp)), ".\"'`")
	if label == "" {
		return nil, ErrEmptyResponse
	}
	return []string{label}, nil
}

func (g *Gemini) generativeModel(maxTokens int32) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:     ptrFloat32(0),
		MaxOutputTokens: &maxTokens,
	}
	return m
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
