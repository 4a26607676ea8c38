package wizard

import (
	"errors"
	"fmt"
)

const (
	MsgUploadFailed     = "Failed to upload image"
	MsgSubmissionFailed = "Failed to start generation"
	MsgPollFailed       = "Network error while polling"
	MsgGenerationFailed = "Generation failed"
	MsgMissingResult    = "Generation finished without a result image"
)

var (
	ErrNotReady     = errors.New("wizard: action not available in current state")
	ErrBusy         = errors.New("wizard: another action is in progress")
	ErrClosed       = errors.New("wizard: controller closed")
	ErrEmptyFile    = errors.New("wizard: no file selected")
	ErrSessionReset = errors.New("wizard: session was reset while the action was running")
)

// UploadError means a file submission failed. Prior steps are untouched.
type UploadError struct {
	Step Step
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload for %s: %v", e.Step, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// UserMessage is the text shown next to the active step.
func (e *UploadError) UserMessage() string { return MsgUploadFailed }

// SubmissionError means the generation job could not be created.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("create generation job: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) UserMessage() string { return MsgSubmissionFailed }

// PollError means a status query failed in transport. Polling is not retried.
type PollError struct {
	JobID string
	Err   error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll job %s: %v", e.JobID, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

func (e *PollError) UserMessage() string { return MsgPollFailed }

// TerminalJobFailure means the backend reported the job as failed.
type TerminalJobFailure struct {
	JobID   string
	Message string
}

func (e *TerminalJobFailure) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.UserMessage())
}

func (e *TerminalJobFailure) UserMessage() string {
	if e.Message == "" {
		return MsgGenerationFailed
	}
	return e.Message
}

// ErrorText returns the user-facing text for err.
func ErrorText(err error) string {
	if err == nil {
		return ""
	}
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		return um.UserMessage()
	}
	return err.Error()
}
