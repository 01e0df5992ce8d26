package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"photoquest/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes is the upload limit for slips, QR codes and photos.
const DefaultMaxBytes = 5 << 20

// Kind groups stored blobs by what they are.
type Kind string

const (
	KindSlip  Kind = "slips"
	KindQR    Kind = "qr"
	KindPhoto Kind = "photos"
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// BlobStore persists uploaded images and returns their public URL.
type BlobStore interface {
	Store(ctx context.Context, kind Kind, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

// DiskStore keeps blobs under dir and serves them at urlPrefix.
type DiskStore struct {
	dir       string
	urlPrefix string
	maxBytes  int64
}

func NewDiskStore(dir, urlPrefix string, maxBytes int64) (*DiskStore, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	for _, k := range []Kind{KindSlip, KindQR, KindPhoto} {
		if err := os.MkdirAll(filepath.Join(dir, string(k)), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &DiskStore{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/"), maxBytes: maxBytes}, nil
}

func (s *DiskStore) MaxBytes() int64 {
	return s.maxBytes
}

// Validate checks size and declared type, and that the bytes really are
// that type. Nothing is written.
func (s *DiskStore) Validate(data []byte, contentType string) (ext string, err error) {
	if len(data) == 0 {
		return "", domain.Validation("file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return "", domain.Validation("file exceeds %d MB", s.maxBytes>>20)
	}

	declared := normalizeType(contentType)
	ext, ok := allowedTypes[declared]
	if !ok {
		return "", domain.Validation("content type %q is not allowed; use jpeg, png or webp", contentType)
	}

	detected := mimetype.Detect(data)
	if !detected.Is(declared) {
		return "", domain.Validation("file content is %s, not %s", detected.String(), declared)
	}
	return ext, nil
}

func (s *DiskStore) Store(ctx context.Context, kind Kind, data []byte, contentType string) (string, error) {
	ext, err := s.Validate(data, contentType)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	target := filepath.Join(s.dir, string(kind), name)

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move blob: %w", err)
	}

	return path.Join(s.urlPrefix, string(kind), name), nil
}

// Delete removes a blob previously returned by Store. Unknown URLs are ignored.
func (s *DiskStore) Delete(_ context.Context, url string) error {
	rel, ok := strings.CutPrefix(url, s.urlPrefix+"/")
	if !ok || rel == "" || strings.Contains(rel, "..") {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func normalizeType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "image/jpg" {
		ct = "image/jpeg"
	}
	return ct
}
