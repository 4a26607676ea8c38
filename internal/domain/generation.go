package domain

import "time"

// GenerationStatus enumerates the lifecycle of a try-on generation job.
type GenerationStatus string

const (
	GenerationPending    GenerationStatus = "pending"
	GenerationProcessing GenerationStatus = "processing"
	GenerationCompleted  GenerationStatus = "completed"
	GenerationFailed     GenerationStatus = "failed"
)

// Terminal reports whether no further transitions can happen from s.
func (s GenerationStatus) Terminal() bool {
	return s == GenerationCompleted || s == GenerationFailed
}

// CanTransition reports whether moving from s to next keeps the lifecycle monotonic.
func (s GenerationStatus) CanTransition(next GenerationStatus) bool {
	switch s {
	case GenerationPending:
		return next == GenerationProcessing || next.Terminal()
	case GenerationProcessing:
		return next.Terminal()
	default:
		return false
	}
}

// Generation is a virtual try-on request together with its outcome.
type Generation struct {
	ID            string           `json:"id"`
	UserID        string           `json:"user_id"`
	UserPhoto     Image            `json:"user_photo"`
	ClothingPhoto Image            `json:"clothing_photo"`
	ResultImage   *Image           `json:"result_image,omitempty"`
	Status        GenerationStatus `json:"status"`
	ErrorMessage  string           `json:"error_message,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// JobTicket is returned when a generation job is accepted.
type JobTicket struct {
	ID        string           `json:"id"`
	Status    GenerationStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
}

// JobStatusReport is the answer to a status query for a generation job.
type JobStatusReport struct {
	ID           string           `json:"id"`
	Status       GenerationStatus `json:"status"`
	ResultImage  *Image           `json:"result_image,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// Report builds the status view of g.
func (g Generation) Report() JobStatusReport {
	return JobStatusReport{
		ID:           g.ID,
		Status:       g.Status,
		ResultImage:  g.ResultImage,
		ErrorMessage: g.ErrorMessage,
	}
}
