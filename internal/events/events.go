package events

import (
	"context"
	"time"

	"outfitlens/internal/domain"
)

// GenerationEvent announces a generation lifecycle change.
type GenerationEvent struct {
	GenerationID  string                  `json:"generation_id"`
	UserID        string                  `json:"user_id"`
	Status        domain.GenerationStatus `json:"status"`
	ResultImageID string                  `json:"result_image_id,omitempty"`
	Error         string                  `json:"error,omitempty"`
	HappenedAt    int64                   `json:"happened_at"`
}

// NewGenerationEvent builds the event for the current state of gen.
func NewGenerationEvent(gen domain.Generation, at time.Time) GenerationEvent {
	ev := GenerationEvent{
		GenerationID: gen.ID,
		UserID:       gen.UserID,
		Status:       gen.Status,
		Error:        gen.ErrorMessage,
		HappenedAt:   at.Unix(),
	}
	if gen.ResultImage != nil {
		ev.ResultImageID = gen.ResultImage.ID
	}
	return ev
}

// Publisher delivers generation events to interested consumers.
type Publisher interface {
	PublishGeneration(ctx context.Context, ev GenerationEvent) error
}

// Noop discards every event.
type Noop struct{}

func (Noop) PublishGeneration(context.Context, GenerationEvent) error { return nil }
