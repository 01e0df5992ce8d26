package storage

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photoquest/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newStore(t *testing.T, max int64) (*DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewDiskStore(dir, "/uploads", max)
	require.NoError(t, err)
	return s, dir
}

func TestStoreWritesValidImage(t *testing.T) {
	t.Parallel()
	s, dir := newStore(t, 0)

	url, err := s.Store(context.Background(), KindSlip, pngBytes(t), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/slips/"))
	assert.True(t, strings.HasSuffix(url, ".png"))

	name := strings.TrimPrefix(url, "/uploads/")
	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), url))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreRejects(t *testing.T) {
	t.Parallel()
	s, dir := newStore(t, 1<<10)

	cases := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{"empty", nil, "image/png"},
		{"too large", append(pngBytes(t), make([]byte, 2<<10)...), "image/png"},
		{"disallowed type", []byte("%PDF-1.4"), "application/pdf"},
		{"spoofed type", []byte("plain text pretending"), "image/jpeg"},
		{"png declared as webp", pngBytes(t), "image/webp"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Store(context.Background(), KindPhoto, tc.data, tc.contentType)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	entries, err := os.ReadDir(filepath.Join(dir, string(KindPhoto)))
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads must not leave files behind")
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", normalizeType("Image/JPG"))
	assert.Equal(t, "image/png", normalizeType("image/png; charset=binary"))
}

func TestDeleteIgnoresForeignURLs(t *testing.T) {
	s, _ := newStore(t, 0)
	assert.NoError(t, s.Delete(context.Background(), "https://elsewhere/x.png"))
	assert.NoError(t, s.Delete(context.Background(), "/uploads/../etc/passwd"))
}
