// Package imagegen wraps generative-image providers behind one capability
// interface so the gateway never depends on a provider's response envelope.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fakhrymubarak/dioramacast/internal/config"
)

var (
	// ErrNoImage means the provider completed the call but produced no image,
	// typically because of safety filtering.
	ErrNoImage = errors.New("provider returned no image")
	// ErrCredentialMissing is returned by New when no API key is configured.
	ErrCredentialMissing = errors.New("image API key not configured")
	ErrUnknownProvider   = errors.New("unknown image provider")
)

// Image is either raw bytes with a MIME type or a provider-hosted URL.
type Image struct {
	Data     []byte
	MIMEType string
	URL      string
}

// Provider generates one image for a prompt.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (*Image, error)
}

const (
	ProviderGemini = "gemini"
	ProviderImagen = "imagen"
	ProviderOpenAI = "openai"
)

// New selects a provider by name. httpClient should come from the shared pool.
func New(ctx context.Context, cfg config.ImageConfig, httpClient *http.Client) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, ErrCredentialMissing
	}
	switch cfg.Provider {
	case "", ProviderGemini:
		return NewGemini(ctx, cfg, httpClient)
	case ProviderImagen:
		return NewImagen(ctx, cfg, httpClient)
	case ProviderOpenAI:
		return NewOpenAI(cfg, httpClient), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
