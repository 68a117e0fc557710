package filestorage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"clinicalnotes/cmd/internal/config"
)

// Router hides which backend is active behind one stable API.
type Router struct {
	backend Backend
	now     func() time.Time
}

// NewRouter resolves the backend from cfg.Type. An unknown type is an error
// the caller should treat as fatal.
func NewRouter(ctx context.Context, cfg config.StorageConfig) (*Router, error) {
	var (
		backend Backend
		err     error
	)

	switch strings.ToLower(cfg.Type) {
	case TypeLocal, "":
		backend, err = NewLocalBackend(cfg.LocalPath)
	case TypeS3:
		backend, err = NewS3Backend(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown file storage type %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Retries > 0 {
		backend = NewRetryBackend(backend, cfg.Retries)
	}

	log.Infof("file storage backend: %s", cfg.Type)
	return NewRouterWithBackend(backend), nil
}

func NewRouterWithBackend(backend Backend) *Router {
	return &Router{backend: backend, now: time.Now}
}

// BuildPath renders {patientID}/{unixMillis}-{noteID}{ext}. The extension is
// taken from originalName and may be empty.
func BuildPath(patientID, noteID, originalName string, now time.Time) string {
	ext := ""
	if base := filepath.Base(originalName); base != "." && base != ".." {
		ext = filepath.Ext(base)
	}
	return fmt.Sprintf("%s/%d-%s%s", patientID, now.UnixMilli(), noteID, ext)
}

// SaveFile stores the upload and returns the relative path to persist on the note.
func (r *Router) SaveFile(ctx context.Context, upload Upload, patientID, noteID string) (string, error) {
	relPath := BuildPath(patientID, noteID, upload.Filename, r.now())
	return r.backend.Save(ctx, upload.Data, relPath, upload.ContentType)
}

func (r *Router) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	return r.backend.Open(ctx, relPath)
}
