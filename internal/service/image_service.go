package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/imagegen"
	"github.com/fakhrymubarak/dioramacast/internal/model"
	"github.com/fakhrymubarak/dioramacast/internal/prompt"
)

const (
	PlaceholderImageURL = "https://via.placeholder.com/1000x1000.png?text=Configure+API+Key"

	MessagePlaceholder = "Image API key not configured. This is a placeholder."
	MessageSuccess     = "Image generation successful"
	MessageNoImage     = "No image was generated. The request may have been blocked by safety filters."
	MessageCheckConfig = "Check API key configuration and model availability"
)

// GenerationError reports a failed provider call together with the prompt
// the caller may inspect or retry.
type GenerationError struct {
	Prompt string
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("failed to generate image: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ImageServiceInterface defines the image generation operation used by handlers.
type ImageServiceInterface interface {
	GenerateScene(ctx context.Context, req model.ImageRequest) (*model.GeneratedScene, error)
}

// ImageService turns a scene request into a generated image. A nil provider
// means no key is configured and every call returns the placeholder scene.
type ImageService struct {
	provider imagegen.Provider
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.SugaredLogger
}

func NewImageService(provider imagegen.Provider, timeout time.Duration, now func() time.Time, logger *zap.SugaredLogger) *ImageService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ImageService{provider: provider, timeout: timeout, now: now, logger: logger}
}

// Configured reports whether a real provider is wired.
func (s *ImageService) Configured() bool {
	return s.provider != nil
}

func (s *ImageService) GenerateScene(ctx context.Context, req model.ImageRequest) (*model.GeneratedScene, error) {
	p := prompt.Build(req.Location, req.Weather, req.Temperature, s.now())
	if len(req.Settings) > 0 {
		s.logger.Debugw("image settings received but not applied", "settings", req.Settings)
	}

	if s.provider == nil {
		s.logger.Warnw("image generation attempted without API key", "location", req.Location)
		placeholder := PlaceholderImageURL
		return &model.GeneratedScene{ImageURL: &placeholder, Prompt: p, Message: MessagePlaceholder}, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	s.logger.Infow("starting image generation", "location", req.Location, "provider", s.provider.Name())
	img, err := s.provider.Generate(ctx, p)
	if err == nil && img == nil {
		err = imagegen.ErrNoImage
	}
	switch {
	case errors.Is(err, imagegen.ErrNoImage):
		s.logger.Warnw("no image generated, check safety ratings", "location", req.Location, "provider", s.provider.Name())
		return &model.GeneratedScene{ImageURL: nil, Prompt: p, Message: MessageNoImage}, nil
	case err != nil:
		s.logger.Errorw("image provider error", "location", req.Location, "provider", s.provider.Name(), "error", err)
		return nil, &GenerationError{Prompt: p, Err: err}
	}

	url := dataURL(img)
	s.logger.Infow("image generation completed", "location", req.Location, "elapsed", time.Since(start).String())
	return &model.GeneratedScene{ImageURL: &url, Prompt: p, Message: MessageSuccess}, nil
}

// dataURL inlines image bytes, or passes a provider-hosted URL through.
func dataURL(img *imagegen.Image) string {
	if img.URL != "" && len(img.Data) == 0 {
		return img.URL
	}
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
