package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"tripmeet-backend/internal/storage"
)

// FileHandler serves objects kept by the local storage backend.
type FileHandler struct {
	store storage.StorageInterface
}

func NewFileHandler(store storage.StorageInterface) *FileHandler {
	return &FileHandler{store: store}
}

// LocalFile streams /files/{key}.
func (h *FileHandler) LocalFile(w http.ResponseWriter, r *http.Request) {
	key := pathVar(r, "key")
	if key == "" {
		respondMessage(w, http.StatusBadRequest, "validation", "Missing file key")
		return
	}

	file, err := h.store.ReadFile(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			respondMessage(w, http.StatusBadRequest, "validation", "Invalid file key")
			return
		}
		respondMessage(w, http.StatusNotFound, "not_found", "File not found")
		return
	}
	defer file.Close()

	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	_, _ = io.Copy(w, file)
}
