package service

import (
	"io"
	"log/slog"

	"village-portal/internal/storage"
)

// FileStore keeps uploaded documents and logos. *storage.Storage implements it.
type FileStore interface {
	SaveDocument(kind storage.Kind, r io.Reader) (string, error)
	SaveLogo(kind storage.Kind, r io.Reader) (string, error)
	RemoveURL(u string) error
}

var _ FileStore = (*storage.Storage)(nil)

// discardFile removes a stored file that is no longer referenced. Failures are
// logged; the row change they follow has already been committed or abandoned.
func discardFile(files FileStore, u *string, reason string) {
	if u == nil || *u == "" {
		return
	}
	if err := files.RemoveURL(*u); err != nil {
		slog.Warn("failed to remove stored file", "url", *u, "reason", reason, "error", err)
	}
}
