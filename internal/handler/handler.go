// Package handler contains the HTTP handlers of the gateway routes.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/model"
	"github.com/fakhrymubarak/dioramacast/internal/validator"
)

// maxBodyBytes bounds request bodies read by the image route.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.S().Warnw("could not encode json", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, msg string) {
	writeJSON(w, statusCode, model.ErrorResponse{Error: msg})
}

// allowMethods writes a 405 and returns false when r uses another method.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// NotFound answers every unmatched path.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// rejectInvalid logs the validation kind and answers 400 with the client-facing message.
func rejectInvalid(w http.ResponseWriter, logger *zap.SugaredLogger, route string, err error) {
	vErr := &validator.Error{Kind: validator.MalformedBody, Message: "Invalid request"}
	errors.As(err, &vErr)
	logger.Warnw("invalid request", "route", route, "kind", string(vErr.Kind), "field", vErr.Field, "error", err)
	writeError(w, http.StatusBadRequest, vErr.Message)
}

func timestamp(now func() time.Time) string {
	return now().Format(time.RFC3339)
}
