package imagegen

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/fakhrymubarak/dioramacast/internal/config"
)

// OpenAI generates images through the Images API. Responses carry either
// base64 JSON or a hosted URL.
type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(cfg config.ImageConfig, httpClient *http.Client) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	model := cfg.Model
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
	}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) Generate(ctx context.Context, prompt string) (*Image, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.model,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("openai create image: %w", err)
	}
	for _, item := range resp.Data {
		if item.B64JSON != "" {
			data, err := base64.StdEncoding.DecodeString(item.B64JSON)
			if err != nil {
				return nil, fmt.Errorf("openai decode image: %w", err)
			}
			return &Image{Data: data, MIMEType: "image/png"}, nil
		}
		if item.URL != "" {
			return &Image{URL: item.URL}, nil
		}
	}
	return nil, ErrNoImage
}
