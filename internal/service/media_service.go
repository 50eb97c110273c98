package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/polaritylab/crosspost/internal/models"
	"github.com/polaritylab/crosspost/internal/repository"
)

var ErrMediaNotFound = errors.New("media not found")

var allowedMediaTypes = map[string]struct{}{
	"jpg": {}, "png": {}, "gif": {}, "webp": {}, "mp4": {}, "mov": {},
}

type MediaService interface {
	Upload(ctx context.Context, userID string, file *multipart.FileHeader) (*models.Media, error)
	List(ctx context.Context, userID string) ([]*models.Media, error)
	Remove(ctx context.Context, userID, mediaID string) error
}

type mediaService struct {
	mr      repository.MediaRepository
	storage Storage
}

func NewMediaService(mr repository.MediaRepository, storage Storage) MediaService {
	return &mediaService{
		mr:      mr,
		storage: storage,
	}
}

func (s *mediaService) Upload(ctx context.Context, userID string, file *multipart.FileHeader) (*models.Media, error) {
	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}
	defer fileContent.Close()

	fileBytes, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("error reading file content: %w", err)
	}

	fileType, err := filetype.Match(fileBytes)
	if err != nil || fileType == types.Unknown {
		return nil, invalid("unsupported file type")
	}
	if _, ok := allowedMediaTypes[fileType.Extension]; !ok {
		return nil, invalid("file type %s is not allowed", fileType.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	key := fmt.Sprintf("media/%s/%s.%s", userID, id, fileType.Extension)

	if err := s.storage.Upload(ctx, key, fileBytes, fileType.MIME.Value); err != nil {
		return nil, fmt.Errorf("error uploading file: %w", err)
	}

	media := &models.Media{
		UserID:     userID,
		URL:        s.storage.PublicURL(key),
		StorageKey: key,
		Filename:   file.Filename,
		MimeType:   fileType.MIME.Value,
		Size:       int64(len(fileBytes)),
	}

	media.ID, err = s.mr.Create(ctx, media)
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			slog.Error("failed to delete orphaned object", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("error saving media: %w", err)
	}

	return media, nil
}

func (s *mediaService) List(ctx context.Context, userID string) ([]*models.Media, error) {
	items, err := s.mr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing media: %w", err)
	}
	if items == nil {
		items = []*models.Media{}
	}
	return items, nil
}

func (s *mediaService) Remove(ctx context.Context, userID, mediaID string) error {
	media, err := s.mr.GetByID(ctx, mediaID)
	if err != nil {
		return fmt.Errorf("error getting media: %w", err)
	}
	if media == nil || media.UserID != userID {
		return fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID)
	}

	// The object may already be gone.
	if err := s.storage.Delete(ctx, media.StorageKey); err != nil {
		slog.Warn("failed to delete media object", "key", media.StorageKey, "error", err)
	}

	if err := s.mr.Remove(ctx, mediaID); err != nil {
		return fmt.Errorf("error removing media: %w", err)
	}
	return nil
}
