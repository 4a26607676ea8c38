package domain

import (
	"context"
	"time"
)

// UserRepository defines access methods for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

// ImageRepository persists image descriptors.
type ImageRepository interface {
	Save(ctx context.Context, img *Image) error
	GetByID(ctx context.Context, id string) (*Image, error)
	List(ctx context.Context, filter ImageFilter) ([]Image, int, error)
	Delete(ctx context.Context, userID, id string) error
	CountByUser(ctx context.Context, userID string) (int, error)
}

// GenerationRepository persists generation jobs.
type GenerationRepository interface {
	Create(ctx context.Context, gen *Generation) error
	GetByID(ctx context.Context, id string) (*Generation, error)
	// UpdateStatus moves a generation forward. It returns ErrInvalidTransition
	// when the move would break the monotonic lifecycle.
	UpdateStatus(ctx context.Context, id string, status GenerationStatus, result *Image, errMsg string) (*Generation, error)
	ListByUser(ctx context.Context, userID string, page PageRequest) ([]Generation, int, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// PendingIDs lists generations still waiting for a worker, oldest first.
	PendingIDs(ctx context.Context, limit int) ([]string, error)
	// StaleIDs lists generations left in processing since before, oldest first.
	StaleIDs(ctx context.Context, before time.Time, limit int) ([]string, error)
}
