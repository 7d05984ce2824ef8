package store

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload is the stored-file record returned to the uploader. The url is
// later echoed verbatim inside "file" chat events; the relay never looks at
// the bytes again.
type Upload struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Mimetype string `json:"mimetype"`
}

// Uploads keeps received attachments on disk under a single directory.
type Uploads struct {
	dir string
	log *slog.Logger
}

// NewUploads creates the upload directory if needed.
func NewUploads(dir string, log *slog.Logger) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploads{dir: dir, log: log}, nil
}

// Dir returns the directory served back at /uploads/.
func (u *Uploads) Dir() string { return u.dir }

// Save writes src to disk under a fresh unique name, keeping the original
// extension. contentType may be empty; the stored bytes are sniffed then.
func (u *Uploads) Save(src io.Reader, originalName, contentType string) (Upload, error) {
	originalName = filepath.Base(originalName)
	ext := filepath.Ext(originalName)
	stored := strings.ReplaceAll(uuid.NewString(), "-", "") + ext
	dst := filepath.Join(u.dir, stored)

	f, err := os.Create(dst)
	if err != nil {
		return Upload{}, fmt.Errorf("create %s: %w", stored, err)
	}
	size, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return Upload{}, fmt.Errorf("write %s: %w", stored, err)
	}

	if contentType == "" {
		if mt, merr := mimetype.DetectFile(dst); merr == nil {
			contentType = mt.String()
		} else {
			contentType = "application/octet-stream"
		}
	}

	u.log.Info("upload.saved", "filename", originalName, "stored", stored, "bytes", size, "mimetype", contentType)
	return Upload{Filename: originalName, URL: "/uploads/" + stored, Mimetype: contentType}, nil
}
