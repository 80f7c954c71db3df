// Package media acquires inbound attachments into per-message temporary
// files and sweeps stale leftovers.
package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/lfsouza/finzap/pkg/bus"
	"github.com/lfsouza/finzap/pkg/logger"
)

// Downloader fetches attachment bytes from the messaging bridge. The session
// transport implements it.
type Downloader interface {
	Download(ctx context.Context, ref bus.MediaRef) ([]byte, error)
}

// DownloadError reports that the attachment could not be acquired. The
// pipeline stops before any temp file is written.
type DownloadError struct {
	Err error
}

func (e *DownloadError) Error() string { return fmt.Sprintf("media download failed: %v", e.Err) }
func (e *DownloadError) Unwrap() error { return e.Err }

// extByMime is the fixed content-type table; anything unrecognized is stored
// as .jpg.
var extByMime = map[string]string{
	"image/jpeg":      ".jpg",
	"image/jpg":       ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ExtensionFor maps a declared content type to a storage extension.
func ExtensionFor(mimeType string) string {
	if ext, ok := extByMime[mimeType]; ok {
		return ext
	}
	return ".jpg"
}

// Artifact is one downloaded attachment, stored on disk for the duration of
// a single message's processing.
type Artifact struct {
	Path     string
	Bytes    []byte
	MimeType string
}

// Release removes the temp file. Safe to call more than once.
func (a *Artifact) Release() {
	if a == nil || a.Path == "" {
		return
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		logger.WarnCF("media", "Temp file removal failed", map[string]any{
			"path":  a.Path,
			"error": err.Error(),
		})
		return
	}
	logger.DebugCF("media", "Temp file removed", map[string]any{"path": a.Path})
	a.Path = ""
}

// Ingestor downloads attachments and stores them under the scratch
// directory with collision-free names.
type Ingestor struct {
	tempDir    string
	downloader Downloader
}

func NewIngestor(tempDir string, downloader Downloader) *Ingestor {
	return &Ingestor{tempDir: tempDir, downloader: downloader}
}

// Ingest acquires the attachment and persists it to a unique temp file. The
// caller must Release the artifact on every exit path.
func (i *Ingestor) Ingest(ctx context.Context, ref bus.MediaRef) (*Artifact, error) {
	data, err := i.downloader.Download(ctx, ref)
	if err != nil {
		return nil, &DownloadError{Err: err}
	}
	if len(data) == 0 {
		return nil, &DownloadError{Err: fmt.Errorf("bridge returned empty media %s", ref.ID)}
	}

	if err := os.MkdirAll(i.tempDir, 0o755); err != nil {
		return nil, &DownloadError{Err: err}
	}

	name := fmt.Sprintf("comprovante_%d_%s%s",
		time.Now().UnixMilli(), uuid.New().String(), ExtensionFor(ref.MimeType))
	path := filepath.Join(i.tempDir, name)

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, &DownloadError{Err: err}
	}

	logger.InfoCF("media", "Attachment stored", map[string]any{
		"path": path,
		"mime": ref.MimeType,
		"size": len(data),
	})

	return &Artifact{Path: path, Bytes: data, MimeType: ref.MimeType}, nil
}
