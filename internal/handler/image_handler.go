package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/model"
	"github.com/fakhrymubarak/dioramacast/internal/service"
	"github.com/fakhrymubarak/dioramacast/internal/validator"
)

type ImageHandler struct {
	ImageService service.ImageServiceInterface
	logger       *zap.SugaredLogger
}

func NewImageHandler(svc service.ImageServiceInterface, logger *zap.SugaredLogger) *ImageHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ImageHandler{ImageService: svc, logger: logger}
}

// HandleGenerateImage serves POST /api/generate-image.
func (h *ImageHandler) HandleGenerateImage(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		rejectInvalid(w, h.logger, "generate-image", &validator.Error{Kind: validator.MalformedBody, Message: "Invalid JSON data"})
		h.logger.Debugw("request body unreadable", "error", err)
		return
	}
	req, err := validator.ValidateImageRequest(body)
	if err != nil {
		rejectInvalid(w, h.logger, "generate-image", err)
		return
	}

	scene, err := h.ImageService.GenerateScene(context.WithoutCancel(r.Context()), req)
	if err != nil {
		var genErr *service.GenerationError
		if errors.As(err, &genErr) {
			writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
				Error:   "Failed to generate image",
				Prompt:  genErr.Prompt,
				Message: service.MessageCheckConfig,
			})
			return
		}
		h.logger.Errorw("image request failed", "location", req.Location, "error", err)
		writeError(w, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}

	writeJSON(w, http.StatusOK, scene)
}
