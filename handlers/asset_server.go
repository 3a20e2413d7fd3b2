package handlers

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/camden-git/attendancesys/media"
)

// CaptureServer serves archived class photos by their store-relative path.
// example route:
//
//	r.Get("/captures/*", CaptureServer(store, logger))
func CaptureServer(store media.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := chi.URLParam(r, "*")
		if relativePath == "" {
			WriteAPIError(w, http.StatusBadRequest, "Invalid capture path")
			return
		}

		fullPath, err := store.GetFullPath(relativePath)
		if err != nil {
			logger.Warn("capture access outside store", zap.String("path", r.URL.Path), zap.Error(err))
			WriteAPIError(w, http.StatusForbidden, "Forbidden")
			return
		}

		info, err := os.Stat(fullPath)
		if os.IsNotExist(err) || (err == nil && info.IsDir()) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			logger.Error("failed to stat capture", zap.String("path", fullPath), zap.Error(err))
			WriteAPIError(w, http.StatusInternalServerError, "Internal server error")
			return
		}

		// captures are immutable once written
		cacheDuration := 24 * time.Hour
		w.Header().Set("Cache-Control", fmt.Sprintf("private, max-age=%d", int(cacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(cacheDuration).Format(http.TimeFormat))
		http.ServeFile(w, r, fullPath)
	}
}
