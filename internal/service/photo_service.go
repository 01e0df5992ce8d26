package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"photoquest/internal/domain"
	"photoquest/internal/logger"
	"photoquest/internal/repository"
	"photoquest/internal/storage"
)

type PhotoService struct {
	photos *repository.PhotoRepository
	quests *repository.QuestRepository
	blobs  storage.BlobStore
	audit  *AuditService
}

func NewPhotoService(photos *repository.PhotoRepository, quests *repository.QuestRepository, blobs storage.BlobStore, audit *AuditService) *PhotoService {
	return &PhotoService{photos: photos, quests: quests, blobs: blobs, audit: audit}
}

type NewPhoto struct {
	QuestID     *int64
	Title       string
	Description string
}

// Upload stores a photo. Photos tagged with a quest require membership.
func (s *PhotoService) Upload(ctx context.Context, userID int64, n NewPhoto, file Upload) (*domain.Photo, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return nil, domain.Validation("title is required")
	}

	if n.QuestID != nil {
		if _, err := s.quests.GetByID(ctx, *n.QuestID); err != nil {
			return nil, err
		}
		member, err := s.quests.IsParticipant(ctx, *n.QuestID, userID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, domain.Forbidden("join quest %d before submitting photos", *n.QuestID)
		}
	}

	url, err := s.blobs.Store(ctx, storage.KindPhoto, file.Data, file.ContentType)
	if err != nil {
		return nil, err
	}

	p := &domain.Photo{
		UserID:      userID,
		QuestID:     n.QuestID,
		Title:       n.Title,
		Description: strings.TrimSpace(n.Description),
		FileURL:     url,
	}
	if err := s.photos.Create(ctx, p); err != nil {
		s.discard(ctx, url)
		return nil, err
	}
	return p, nil
}

func (s *PhotoService) Get(ctx context.Context, id int64) (*domain.PhotoView, error) {
	return s.photos.GetByID(ctx, id)
}

func (s *PhotoService) List(ctx context.Context, questID *int64) ([]*domain.PhotoView, error) {
	return s.photos.List(ctx, questID)
}

func (s *PhotoService) ListByUser(ctx context.Context, userID int64) ([]*domain.PhotoView, error) {
	return s.photos.ListByUser(ctx, userID)
}

// Delete removes a photo owned by the caller; admins may remove any photo.
func (s *PhotoService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	photo, err := s.photos.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if photo.UserID != p.UserID && !p.IsAdmin() {
		return domain.Forbidden("photo %d belongs to another user", id)
	}
	if err := s.photos.Delete(ctx, id); err != nil {
		return err
	}
	s.discard(ctx, photo.FileURL)
	s.audit.Log(ctx, p.UserID, domain.AuditActionPhotoDelete, domain.AuditCategoryPhoto, map[string]interface{}{
		"photo_id": id,
		"owner_id": photo.UserID,
	})
	return nil
}

func (s *PhotoService) ToggleLike(ctx context.Context, userID, photoID int64) (liked bool, count int64, err error) {
	return s.photos.ToggleLike(ctx, photoID, userID)
}

func (s *PhotoService) LikeCount(ctx context.Context, photoID int64) (int64, error) {
	if _, err := s.photos.GetByID(ctx, photoID); err != nil {
		return 0, err
	}
	return s.photos.LikeCount(ctx, photoID)
}

func (s *PhotoService) AddComment(ctx context.Context, userID, photoID int64, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validation("comment must not be empty")
	}
	if utf8.RuneCountInString(text) > domain.MaxCommentLength {
		return nil, domain.Validation("comment exceeds %d characters", domain.MaxCommentLength)
	}
	c := &domain.Comment{PhotoID: photoID, UserID: userID, Comment: text}
	if err := s.photos.AddComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *PhotoService) ListComments(ctx context.Context, photoID int64) ([]*domain.Comment, error) {
	return s.photos.ListComments(ctx, photoID)
}

func (s *PhotoService) discard(ctx context.Context, url string) {
	if err := s.blobs.Delete(context.WithoutCancel(ctx), url); err != nil {
		logger.WithContext(ctx).Warn("failed to remove blob", "url", url, "error", err)
	}
}
