package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/fakhrymubarak/dioramacast/internal/model"
)

// Recover converts a handler panic into a generic 500 and logs the details.
func Recover(logger *zap.SugaredLogger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				logger.Errorw("unhandled panic",
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{
					Error:   "An unexpected error occurred",
					Message: "Please try again later",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
