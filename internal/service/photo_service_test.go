package service

import (
	"context"
	"testing"

	"photoquest/internal/domain"
	"photoquest/internal/storage"

	"github.com/stretchr/testify/assert"
)

type countingStore struct{ stored int }

func (s *countingStore) Store(context.Context, storage.Kind, []byte, string) (string, error) {
	s.stored++
	return "/uploads/x.png", nil
}

func (s *countingStore) Delete(context.Context, string) error { return nil }

func TestUploadRequiresTitle(t *testing.T) {
	blobs := &countingStore{}
	svc := NewPhotoService(nil, nil, blobs, nil)

	for _, title := range []string{"", "   \t"} {
		_, err := svc.Upload(context.Background(), 1, NewPhoto{Title: title}, Upload{Data: []byte("x"), ContentType: "image/png"})
		assert.ErrorIs(t, err, domain.ErrValidation, "title %q", title)
	}
	assert.Zero(t, blobs.stored)
}
