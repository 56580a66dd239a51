package imagegen

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/fakhrymubarak/dioramacast/internal/config"
)

const defaultImagenModel = "imagen-4.0-generate-001"

// Imagen generates images through generateImages and reads the structured
// generated-image object.
type Imagen struct {
	client *genai.Client
	model  string
}

func NewImagen(ctx context.Context, cfg config.ImageConfig, httpClient *http.Client) (*Imagen, error) {
	client, err := newGenAIClient(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultImagenModel
	}
	return &Imagen{client: client, model: model}, nil
}

func (i *Imagen) Name() string { return ProviderImagen }

func (i *Imagen) Generate(ctx context.Context, prompt string) (*Image, error) {
	resp, err := i.client.Models.GenerateImages(ctx, i.model, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return nil, fmt.Errorf("imagen generate images: %w", err)
	}
	if resp == nil {
		return nil, ErrNoImage
	}
	for _, generated := range resp.GeneratedImages {
		if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
			continue
		}
		mime := generated.Image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &Image{Data: generated.Image.ImageBytes, MIMEType: mime}, nil
	}
	return nil, ErrNoImage
}
