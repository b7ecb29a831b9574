// Package gemini wraps the Google GenAI client behind the two narrow
// interfaces the engine needs: prompt-in/text-out generation and text
// embedding.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const (
	// DefaultModel is the generative model used for extraction and analysis.
	DefaultModel = "gemini-2.5-flash"
	// DefaultEmbedModel is the text-projection model.
	DefaultEmbedModel = "gemini-embedding-001"
)

// Client holds a configured GenAI client shared by the generator and
// embedder. Construct once at process start and pass by reference.
type Client struct {
	client     *genai.Client
	model      string
	embedModel string
	embedDims  int32
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	Model      string
	EmbedModel string
	EmbedDims  int32
}

// New creates a Client for the Gemini API backend.
func New(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.EmbedModel == "" {
		opts.EmbedModel = DefaultEmbedModel
	}
	if opts.EmbedDims <= 0 {
		opts.EmbedDims = 768
	}

	return &Client{
		client:     client,
		model:      opts.Model,
		embedModel: opts.EmbedModel,
		embedDims:  opts.EmbedDims,
	}, nil
}

// Model returns the configured generative model name.
func (c *Client) Model() string { return c.model }

// GenerateContent sends a single prompt and returns the concatenated
// text of the first response. An empty response is an error; the caller
// decides whether to recover.
func (c *Client) GenerateContent(ctx context.Context, prompt string) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("gemini: prompt must not be empty")
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(text)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errors.New("gemini: empty response")
	}
	return out, nil
}
