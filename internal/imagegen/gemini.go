package imagegen

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/fakhrymubarak/dioramacast/internal/config"
)

const defaultGeminiModel = "gemini-2.5-flash-image"

// Gemini generates images through generateContent and reads inline image parts.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, cfg config.ImageConfig, httpClient *http.Client) (*Gemini, error) {
	client, err := newGenAIClient(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Generate(ctx context.Context, prompt string) (*Image, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		CandidateCount:     1,
		ImageConfig:        &genai.ImageConfig{AspectRatio: "1:1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return firstInlineImage(resp)
}

// firstInlineImage returns the first inline image part of the first candidate.
func firstInlineImage(resp *genai.GenerateContentResponse) (*Image, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}
	content := resp.Candidates[0].Content
	if content == nil {
		return nil, ErrNoImage
	}
	for _, part := range content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &Image{Data: part.InlineData.Data, MIMEType: mime}, nil
	}
	return nil, ErrNoImage
}

func newGenAIClient(ctx context.Context, cfg config.ImageConfig, httpClient *http.Client) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}
