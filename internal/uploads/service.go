package uploads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"outfitlens/internal/domain"
	"outfitlens/internal/imageproc"
	"outfitlens/internal/storage"
)

// Service validates, stores and catalogues user images.
type Service struct {
	images   domain.ImageRepository
	store    storage.Store
	maxBytes int64
	logger   zerolog.Logger

	now   func() time.Time
	newID func() string
}

// NewService wires the upload service. maxBytes <= 0 falls back to 10 MB.
func NewService(images domain.ImageRepository, store storage.Store, maxBytes int64, logger zerolog.Logger) *Service {
	if maxBytes <= 0 {
		maxBytes = imageproc.DefaultMaxBytes
	}
	return &Service{
		images:   images,
		store:    store,
		maxBytes: maxBytes,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.NewString() },
	}
}

// MaxBytes returns the upload size limit.
func (s *Service) MaxBytes() int64 { return s.maxBytes }

// Upload stores a user-supplied subject or garment photo.
func (s *Service) Upload(ctx context.Context, userID string, imageType domain.ImageType, data []byte) (*domain.Image, error) {
	if !imageType.Uploadable() {
		return nil, fmt.Errorf("%w: %q cannot be uploaded", domain.ErrInvalidImage, imageType)
	}
	info, err := imageproc.Probe(data, s.maxBytes)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, userID, imageType, data, info)
}

// SaveResult stores a generated try-on image for userID.
func (s *Service) SaveResult(ctx context.Context, userID string, data []byte, info imageproc.Info) (*domain.Image, error) {
	return s.save(ctx, userID, domain.ImageTypeResult, data, info)
}

func (s *Service) save(ctx context.Context, userID string, imageType domain.ImageType, data []byte, info imageproc.Info) (*domain.Image, error) {
	id := s.newID()
	key := fmt.Sprintf("users/%s/%s/%s%s", userID, imageType, id, info.Ext)
	key, err := s.store.Write(ctx, key, data, info.MIME)
	if err != nil {
		return nil, err
	}

	img := &domain.Image{
		ID:         id,
		UserID:     userID,
		URL:        s.store.URL(key),
		Type:       imageType,
		FileSize:   int64(len(data)),
		Width:      info.Width,
		Height:     info.Height,
		MIME:       info.MIME,
		StorageKey: key,
		CreatedAt:  s.now(),
	}
	if err := s.images.Save(ctx, img); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn().Err(delErr).Str("storage_key", key).Msg("uploads: cleanup after failed save")
		}
		return nil, err
	}
	s.logger.Info().
		Str("image_id", img.ID).
		Str("user_id", userID).
		Str("image_type", string(imageType)).
		Int64("bytes", img.FileSize).
		Msg("uploads: image stored")
	return img, nil
}

// Get returns an image owned by userID. Foreign images are reported as missing.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Image, error) {
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if img.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return img, nil
}

// Raw loads the stored bytes of an image owned by userID.
func (s *Service) Raw(ctx context.Context, userID, id string) (*domain.Image, []byte, error) {
	img, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.Bytes(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	return img, data, nil
}

// Bytes loads the stored bytes of img.
func (s *Service) Bytes(ctx context.Context, img *domain.Image) ([]byte, error) {
	data, err := s.store.Read(ctx, img.StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	return data, err
}

// List returns a page of the user's images, optionally of one type.
func (s *Service) List(ctx context.Context, userID string, imageType domain.ImageType, page domain.PageRequest) (domain.Page[domain.Image], error) {
	if imageType != "" && !imageType.Valid() {
		return domain.Page[domain.Image]{}, fmt.Errorf("%w: unknown image type %q", domain.ErrInvalidImage, imageType)
	}
	page = page.Normalize()
	items, total, err := s.images.List(ctx, domain.ImageFilter{UserID: userID, Type: imageType, Page: page})
	if err != nil {
		return domain.Page[domain.Image]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

// Delete removes an upload and its stored bytes.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	img, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.images.Delete(ctx, userID, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, img.StorageKey); err != nil {
		s.logger.Warn().Err(err).Str("image_id", id).Msg("uploads: stored object not removed")
	}
	return nil
}

// Count returns how many photos the user has uploaded.
func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.images.CountByUser(ctx, userID)
}
