package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"outfitlens/internal/domain"
	"outfitlens/internal/events"
)

// ImageCounter reports how many photos a user uploaded.
type ImageCounter interface {
	Count(ctx context.Context, userID string) (int, error)
}

// Service accepts try-on requests, answers status queries and serves history.
// Accepted jobs are handed to the worker through a buffered queue; jobs that
// do not fit stay pending and are picked up by the worker's sweep.
type Service struct {
	generations domain.GenerationRepository
	images      domain.ImageRepository
	publisher   events.Publisher
	logger      zerolog.Logger
	queue       chan string

	now   func() time.Time
	newID func() string
}

// NewService builds a Service with a queue of the given capacity.
func NewService(generations domain.GenerationRepository, images domain.ImageRepository, publisher events.Publisher, logger zerolog.Logger, queueSize int) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Service{
		generations: generations,
		images:      images,
		publisher:   publisher,
		logger:      logger,
		queue:       make(chan string, queueSize),
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() string { return "gen_" + uuid.NewString() },
	}
}

// Queue exposes accepted job ids to the worker.
func (s *Service) Queue() <-chan string { return s.queue }

// Create registers a pending job for the subject and garment photos.
func (s *Service) Create(ctx context.Context, userID, userPhotoID, clothingPhotoID string) (domain.JobTicket, error) {
	subject, err := s.ownedImage(ctx, userID, userPhotoID, domain.ImageTypeSubject)
	if err != nil {
		return domain.JobTicket{}, err
	}
	garment, err := s.ownedImage(ctx, userID, clothingPhotoID, domain.ImageTypeGarment)
	if err != nil {
		return domain.JobTicket{}, err
	}

	now := s.now()
	gen := &domain.Generation{
		ID:            s.newID(),
		UserID:        userID,
		UserPhoto:     *subject,
		ClothingPhoto: *garment,
		Status:        domain.GenerationPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.generations.Create(ctx, gen); err != nil {
		return domain.JobTicket{}, err
	}
	s.logger.Info().Str("job_id", gen.ID).Str("user_id", userID).Msg("generation: accepted")
	s.publish(ctx, *gen)

	select {
	case s.queue <- gen.ID:
	default:
		s.logger.Warn().Str("job_id", gen.ID).Msg("generation: queue full, left for sweep")
	}

	return domain.JobTicket{ID: gen.ID, Status: gen.Status, CreatedAt: gen.CreatedAt}, nil
}

func (s *Service) ownedImage(ctx context.Context, userID, id string, want domain.ImageType) (*domain.Image, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s id is required", domain.ErrInvalidImage, want)
	}
	img, err := s.images.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if img.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if img.Type != want {
		return nil, fmt.Errorf("%w: image %s is %s, want %s", domain.ErrInvalidImage, id, img.Type, want)
	}
	return img, nil
}

// Get returns a generation owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (*domain.Generation, error) {
	gen, err := s.generations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if gen.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return gen, nil
}

// Status reports the job's progress.
func (s *Service) Status(ctx context.Context, userID, id string) (domain.JobStatusReport, error) {
	gen, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.JobStatusReport{}, err
	}
	return gen.Report(), nil
}

// History lists the user's generations, newest first.
func (s *Service) History(ctx context.Context, userID string, page domain.PageRequest) (domain.Page[domain.Generation], error) {
	page = page.Normalize()
	items, total, err := s.generations.ListByUser(ctx, userID, page)
	if err != nil {
		return domain.Page[domain.Generation]{}, err
	}
	return domain.NewPage(items, total, page), nil
}

// Stats returns the dashboard counters.
func (s *Service) Stats(ctx context.Context, userID string, uploads ImageCounter) (domain.Stats, error) {
	total, err := s.generations.CountByUser(ctx, userID)
	if err != nil {
		return domain.Stats{}, err
	}
	images, err := uploads.Count(ctx, userID)
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{TotalGenerations: total, ImagesUploaded: images}, nil
}

func (s *Service) publish(ctx context.Context, gen domain.Generation) {
	if err := s.publisher.PublishGeneration(ctx, events.NewGenerationEvent(gen, s.now())); err != nil {
		s.logger.Warn().Err(err).Str("job_id", gen.ID).Msg("generation: publish event failed")
	}
}
