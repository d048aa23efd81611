// Package storage persists attachment and editor image bytes.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/accio/servicemeow/internal/config"
	apperrors "github.com/accio/servicemeow/pkg/util/errorutil"
)

const editorImagesDir = "editor-images"

// AllowedContentTypes lists the sniffed types accepted for attachments.
var AllowedContentTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain",
	"text/csv",
	"application/json",
	"application/xml",
	"text/yaml",
	"application/zip",
}

// StoredFile describes bytes written by the store.
type StoredFile struct {
	Filename         string
	OriginalFilename string
	Path             string
	Size             int64
	ContentType      string
}

// FileStore saves uploads and reads them back by stored path.
type FileStore interface {
	Save(ticketID uuid.UUID, originalName string, data []byte) (*StoredFile, error)
	Read(storedPath string) ([]byte, error)
	Remove(storedPath string) error
	SaveEditorImage(originalName string, data []byte) (*StoredFile, error)
	ReadEditorImage(filename string) ([]byte, string, error)
}

type fileStore struct {
	fs       afero.Fs
	maxBytes int64
}

// NewLocalFileStore confines all paths to the configured upload directory.
func NewLocalFileStore(cfg config.StorageConfig) (FileStore, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return NewFileStore(afero.NewBasePathFs(afero.NewOsFs(), cfg.UploadDir), cfg.MaxUploadBytes()), nil
}

// NewFileStore builds a store over any afero filesystem.
func NewFileStore(fs afero.Fs, maxBytes int64) FileStore {
	return &fileStore{fs: fs, maxBytes: maxBytes}
}

func (s *fileStore) Save(ticketID uuid.UUID, originalName string, data []byte) (*StoredFile, error) {
	if err := s.checkSize(data); err != nil {
		return nil, err
	}
	contentType, ok := detectAllowed(data, AllowedContentTypes)
	if !ok {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("detected file type %s not allowed", contentType), nil)
	}
	return s.write(ticketID.String(), originalName, contentType, data)
}

func (s *fileStore) SaveEditorImage(originalName string, data []byte) (*StoredFile, error) {
	if err := s.checkSize(data); err != nil {
		return nil, err
	}
	contentType := baseType(mimetype.Detect(data))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperrors.NewBadRequest("only image files are allowed", nil)
	}
	return s.write(editorImagesDir, originalName, contentType, data)
}

func (s *fileStore) ReadEditorImage(filename string) ([]byte, string, error) {
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, "", apperrors.NewBadRequest("invalid filename", nil)
	}
	data, err := s.Read(path.Join(editorImagesDir, filename))
	if err != nil {
		return nil, "", err
	}
	return data, baseType(mimetype.Detect(data)), nil
}

func (s *fileStore) Read(storedPath string) ([]byte, error) {
	cleaned, err := cleanStoredPath(storedPath)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(s.fs, cleaned)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperrors.NewNotFound("file", map[string]any{"path": storedPath})
	}
	return data, err
}

func (s *fileStore) Remove(storedPath string) error {
	cleaned, err := cleanStoredPath(storedPath)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(cleaned); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *fileStore) checkSize(data []byte) error {
	if len(data) == 0 {
		return apperrors.NewBadRequest("file is empty", nil)
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return apperrors.NewBadRequest(
			fmt.Sprintf("file size exceeds %dMB limit", s.maxBytes/(1024*1024)),
			map[string]any{"max_bytes": s.maxBytes})
	}
	return nil
}

func (s *fileStore) write(dir, originalName, contentType string, data []byte) (*StoredFile, error) {
	original := safeName(originalName)
	filename := fmt.Sprintf("%s_%s", uuid.NewString(), original)
	stored := path.Join(dir, filename)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	if err := afero.WriteFile(s.fs, stored, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", stored, err)
	}

	return &StoredFile{
		Filename:         filename,
		OriginalFilename: original,
		Path:             stored,
		Size:             int64(len(data)),
		ContentType:      contentType,
	}, nil
}

// safeName keeps only the final path element of a client supplied name.
func safeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(strings.TrimSpace(name))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "unnamed"
	}
	return base
}

func cleanStoredPath(storedPath string) (string, error) {
	cleaned := path.Clean("/" + storedPath)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(storedPath, "/") {
		return "", apperrors.NewBadRequest("invalid file path", nil)
	}
	return cleaned, nil
}

// detectAllowed walks the sniffed type and its parents looking for an allowed match.
func detectAllowed(data []byte, allowed []string) (string, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, candidate := range allowed {
			if m.Is(candidate) {
				return baseType(m), true
			}
		}
	}
	return baseType(detected), false
}

func baseType(m *mimetype.MIME) string {
	value, _, _ := strings.Cut(m.String(), ";")
	return strings.TrimSpace(value)
}
