package handler

import (
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"village-portal/internal/util"
	"village-portal/pkg/apierror"
)

type fileResolver interface {
	Resolve(key string) (string, error)
}

// FileHandler serves stored budget-plan documents and institution logos.
type FileHandler struct {
	files fileResolver
}

func NewFileHandler(files fileResolver) *FileHandler {
	return &FileHandler{files: files}
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "*"))

	absPath, err := h.files.Resolve(key)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, apierror.New("NOT_FOUND", "file not found", "", http.StatusNotFound))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		writeError(w, err)
		return
	}
	if info.IsDir() {
		writeError(w, apierror.New("NOT_FOUND", "file not found", "", http.StatusNotFound))
		return
	}

	name := filepath.Base(absPath)
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := "attachment"
	if util.IsImageMIME(contentType) {
		disposition = "inline"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": name}))
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeContent(w, r, name, info.ModTime(), file)
}
