package wizard

import (
	"fmt"

	"outfitlens/internal/domain"
)

// Step is one of the four fixed wizard steps.
type Step int

const (
	StepSubjectPhoto Step = iota + 1
	StepGarmentPhoto
	StepConfirm
	StepResult
)

var stepTitles = map[Step]string{
	StepSubjectPhoto: "Upload Your Photo",
	StepGarmentPhoto: "Upload Clothing",
	StepConfirm:      "Generate",
	StepResult:       "Result",
}

// Title is the label shown in the progress bar.
func (s Step) Title() string {
	if title, ok := stepTitles[s]; ok {
		return title
	}
	return fmt.Sprintf("Step %d", int(s))
}

func (s Step) String() string {
	switch s {
	case StepSubjectPhoto:
		return "AwaitingSubjectPhoto"
	case StepGarmentPhoto:
		return "AwaitingGarmentPhoto"
	case StepConfirm:
		return "ReadyToConfirm"
	case StepResult:
		return "AwaitingResult"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// ImageType returns the upload category implied by an upload step.
func (s Step) ImageType() (domain.ImageType, bool) {
	switch s {
	case StepSubjectPhoto:
		return domain.ImageTypeSubject, true
	case StepGarmentPhoto:
		return domain.ImageTypeGarment, true
	default:
		return "", false
	}
}

// Phase is the sub-state of StepResult.
type Phase string

const (
	PhaseNone       Phase = ""
	PhaseSubmitting Phase = "Submitting"
	PhasePolling    Phase = "Polling"
	PhaseSucceeded  Phase = "Succeeded"
	PhaseFailed     Phase = "Failed"
)

// Settled reports whether nothing is in flight for the phase.
func (p Phase) Settled() bool {
	return p != PhaseSubmitting && p != PhasePolling
}

// Session is the transient state of one wizard run.
type Session struct {
	Step         Step
	Phase        Phase
	SubjectImage *domain.Image
	GarmentImage *domain.Image
	ActiveJob    *domain.JobStatusReport
	LastError    error
}

func initialSession() Session {
	return Session{Step: StepSubjectPhoto}
}

// Snapshot is a read-only copy of the session for presentation.
type Snapshot struct {
	Step         Step
	Phase        Phase
	SubjectImage *domain.Image
	GarmentImage *domain.Image
	ActiveJob    *domain.JobStatusReport
	LastError    error
	ErrorText    string
	Busy         bool

	version uint64
}

// State names the state machine node, e.g. "AwaitingResult/Polling".
func (s Snapshot) State() string {
	if s.Step == StepResult && s.Phase != PhaseNone {
		return s.Step.String() + "/" + string(s.Phase)
	}
	return s.Step.String()
}

// JobID returns the active job identifier, if any.
func (s Snapshot) JobID() string {
	if s.ActiveJob == nil {
		return ""
	}
	return s.ActiveJob.ID
}

// ResultImage returns the generated image once the job succeeded.
func (s Snapshot) ResultImage() *domain.Image {
	if s.Phase != PhaseSucceeded || s.ActiveJob == nil {
		return nil
	}
	return s.ActiveJob.ResultImage
}

// CanGoBack mirrors the enabled state of the Back control.
func (s Snapshot) CanGoBack() bool {
	return !s.Busy && (s.Step == StepGarmentPhoto || s.Step == StepConfirm)
}

// CanGoNext mirrors the enabled state of the Next control.
func (s Snapshot) CanGoNext() bool {
	if s.Busy {
		return false
	}
	switch s.Step {
	case StepSubjectPhoto:
		return s.SubjectImage != nil
	case StepGarmentPhoto:
		return s.GarmentImage != nil
	default:
		return false
	}
}

// CanGenerate mirrors the enabled state of the Generate control.
func (s Snapshot) CanGenerate() bool {
	return !s.Busy && s.Step == StepConfirm && s.SubjectImage != nil && s.GarmentImage != nil
}

func cloneImage(img *domain.Image) *domain.Image {
	if img == nil {
		return nil
	}
	cp := *img
	return &cp
}

func cloneReport(r *domain.JobStatusReport) *domain.JobStatusReport {
	if r == nil {
		return nil
	}
	cp := *r
	cp.ResultImage = cloneImage(r.ResultImage)
	return &cp
}
