// Package wizard drives the four-step try-on flow: subject photo, garment
// photo, confirmation, then job submission and status polling until the
// generation reaches a terminal state.
package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"outfitlens/internal/domain"
	"outfitlens/internal/repeat"
)

// DefaultPollInterval matches the cadence the web client used.
const DefaultPollInterval = 2 * time.Second

// File is a picture selected by the user.
type File struct {
	Name string
	Data []byte
}

// Uploader stores an image under a category.
type Uploader interface {
	UploadImage(ctx context.Context, file File, imageType domain.ImageType) (domain.Image, error)
}

// GenerationService creates try-on jobs and reports their status.
type GenerationService interface {
	CreateGenerationJob(ctx context.Context, subjectImageID, garmentImageID string) (domain.JobTicket, error)
	GetJobStatus(ctx context.Context, jobID string) (domain.JobStatusReport, error)
}

// Options tune a Controller.
type Options struct {
	PollInterval time.Duration
	TickSource   repeat.TickSource
	Logger       zerolog.Logger
	// OnChange receives a snapshot after every state change. It may run on the
	// polling goroutine and may call back into the controller.
	OnChange func(Snapshot)
}

// Controller owns one WizardSession. Create one per wizard visit and Close it
// when the user navigates away.
type Controller struct {
	uploader Uploader
	gen      GenerationService
	opts     Options
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session Session
	busy    bool
	closed  bool
	epoch   uint64
	task    *repeat.Task
	changed chan struct{}
	version uint64

	// OnChange delivery. Versions only move forward; a snapshot older than
	// the last delivered one is dropped.
	pubMu      sync.Mutex
	delivering bool
	pending    *Snapshot
	delivered  uint64
}

// New builds a controller in the AwaitingSubjectPhoto state.
func New(uploader Uploader, gen GenerationService, opts Options) *Controller {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		uploader: uploader,
		gen:      gen,
		opts:     opts,
		logger:   opts.Logger.With().Str("component", "wizard").Logger(),
		ctx:      ctx,
		cancel:   cancel,
		session:  initialSession(),
		changed:  make(chan struct{}),
	}
}

// Snapshot returns a copy of the current session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := c.session
	return Snapshot{
		Step:         s.Step,
		Phase:        s.Phase,
		SubjectImage: cloneImage(s.SubjectImage),
		GarmentImage: cloneImage(s.GarmentImage),
		ActiveJob:    cloneReport(s.ActiveJob),
		LastError:    s.LastError,
		ErrorText:    ErrorText(s.LastError),
		Busy:         c.busy,
		version:      c.version,
	}
}

// commitLocked wakes Await callers and returns the snapshot to publish.
func (c *Controller) commitLocked() Snapshot {
	c.version++
	close(c.changed)
	c.changed = make(chan struct{})
	return c.snapshotLocked()
}

// publish hands s to OnChange in commit order. Whoever is already delivering
// drains newer snapshots, so a hook that calls back into the controller does
// not deadlock and a slow hook cannot let a stale snapshot land last.
func (c *Controller) publish(s Snapshot) {
	if c.opts.OnChange == nil {
		return
	}
	c.pubMu.Lock()
	if c.pending == nil || s.version > c.pending.version {
		c.pending = &s
	}
	if c.delivering {
		c.pubMu.Unlock()
		return
	}
	c.delivering = true
	for c.pending != nil {
		next := *c.pending
		c.pending = nil
		if next.version <= c.delivered {
			continue
		}
		c.delivered = next.version
		c.pubMu.Unlock()
		c.opts.OnChange(next)
		c.pubMu.Lock()
	}
	c.delivering = false
	c.pubMu.Unlock()
}

// SubmitImage uploads file for the given upload step and, on success,
// advances to the next step. A failed upload leaves the session as it was
// apart from the error text.
func (c *Controller) SubmitImage(ctx context.Context, step Step, file File) (domain.Image, error) {
	if len(file.Data) == 0 {
		return domain.Image{}, ErrEmptyFile
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return domain.Image{}, ErrClosed
	}
	if c.busy {
		c.mu.Unlock()
		return domain.Image{}, ErrBusy
	}
	imageType, ok := step.ImageType()
	if !ok || step != c.session.Step {
		c.mu.Unlock()
		return domain.Image{}, ErrNotReady
	}
	c.busy = true
	epoch := c.epoch
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	img, err := c.uploader.UploadImage(ctx, file, imageType)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		return domain.Image{}, ErrSessionReset
	}
	c.busy = false
	if err != nil {
		uerr := &UploadError{Step: step, Err: err}
		c.session.LastError = uerr
		snap = c.commitLocked()
		c.mu.Unlock()
		c.logger.Warn().Err(err).Stringer("step", step).Msg("wizard: upload failed")
		c.publish(snap)
		return domain.Image{}, uerr
	}
	stored := img
	if step == StepSubjectPhoto {
		c.session.SubjectImage = &stored
	} else {
		c.session.GarmentImage = &stored
	}
	c.session.LastError = nil
	c.session.Step = step + 1
	snap = c.commitLocked()
	c.mu.Unlock()
	c.logger.Debug().Str("image_id", img.ID).Stringer("step", step).Msg("wizard: image stored")
	c.publish(snap)
	return img, nil
}

// Back returns to the previous upload step. It is not available from the
// first step or once generation started.
func (c *Controller) Back() error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.session.Step != StepGarmentPhoto && c.session.Step != StepConfirm {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.session.Step--
	c.session.LastError = nil
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// Next moves forward from an upload step whose image is already present,
// e.g. after going Back.
func (c *Controller) Next() error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	s := c.session
	ready := (s.Step == StepSubjectPhoto && s.SubjectImage != nil) ||
		(s.Step == StepGarmentPhoto && s.GarmentImage != nil)
	if !ready {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.session.Step++
	c.session.LastError = nil
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

func (c *Controller) guardLocked() error {
	if c.closed {
		return ErrClosed
	}
	if c.busy {
		return ErrBusy
	}
	return nil
}

// ConfirmAndGenerate creates exactly one generation job for the two stored
// images and starts polling it. It is only available in ReadyToConfirm.
func (c *Controller) ConfirmAndGenerate(ctx context.Context) error {
	c.mu.Lock()
	if err := c.guardLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	s := c.session
	if s.Step != StepConfirm || s.SubjectImage == nil || s.GarmentImage == nil {
		c.mu.Unlock()
		return ErrNotReady
	}
	subjectID, garmentID := s.SubjectImage.ID, s.GarmentImage.ID
	c.session.Step = StepResult
	c.session.Phase = PhaseSubmitting
	c.session.ActiveJob = nil
	c.session.LastError = nil
	c.busy = true
	epoch := c.epoch
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)

	ticket, err := c.gen.CreateGenerationJob(ctx, subjectID, garmentID)

	c.mu.Lock()
	if epoch != c.epoch {
		c.mu.Unlock()
		if err == nil {
			c.logger.Info().Str("job_id", ticket.ID).Msg("wizard: job created after reset, not tracking")
		}
		return ErrSessionReset
	}
	if err != nil {
		serr := &SubmissionError{Err: err}
		c.session.Phase = PhaseFailed
		c.session.LastError = serr
		c.busy = false
		snap = c.commitLocked()
		c.mu.Unlock()
		c.logger.Error().Err(err).Msg("wizard: job creation failed")
		c.publish(snap)
		return serr
	}
	status := ticket.Status
	if status == "" {
		status = domain.GenerationPending
	}
	c.session.ActiveJob = &domain.JobStatusReport{ID: ticket.ID, Status: status}
	c.session.Phase = PhasePolling
	c.startPollingLocked(ticket.ID, epoch)
	snap = c.commitLocked()
	c.mu.Unlock()
	c.logger.Info().Str("job_id", ticket.ID).Msg("wizard: job created, polling")
	c.publish(snap)
	return nil
}

// startPollingLocked acquires the poll task. Every path that leaves
// PhasePolling releases it.
func (c *Controller) startPollingLocked(jobID string, epoch uint64) {
	var opts []repeat.Option
	if c.opts.TickSource != nil {
		opts = append(opts, repeat.WithTickSource(c.opts.TickSource))
	}
	c.task = repeat.Start(c.ctx, c.opts.PollInterval, func(ctx context.Context) bool {
		return c.pollOnce(ctx, jobID, epoch)
	}, opts...)
}

// pollOnce issues one status query. It returns false once polling must stop.
func (c *Controller) pollOnce(ctx context.Context, jobID string, epoch uint64) bool {
	report, err := c.gen.GetJobStatus(ctx, jobID)

	c.mu.Lock()
	if epoch != c.epoch || c.session.Phase != PhasePolling || c.session.ActiveJob == nil || c.session.ActiveJob.ID != jobID {
		c.mu.Unlock()
		return false
	}
	if err != nil {
		if ctx.Err() != nil {
			c.mu.Unlock()
			return false
		}
		c.finishLocked(PhaseFailed, &PollError{JobID: jobID, Err: err})
		snap := c.commitLocked()
		c.mu.Unlock()
		c.logger.Error().Err(err).Str("job_id", jobID).Msg("wizard: status query failed")
		c.publish(snap)
		return false
	}
	if report.ID == "" {
		report.ID = jobID
	}
	c.session.ActiveJob = &report

	keepPolling := false
	switch {
	case report.Status == domain.GenerationCompleted && report.ResultImage != nil:
		c.finishLocked(PhaseSucceeded, nil)
	case report.Status == domain.GenerationCompleted:
		c.finishLocked(PhaseFailed, &TerminalJobFailure{JobID: jobID, Message: MsgMissingResult})
	case report.Status == domain.GenerationFailed:
		c.finishLocked(PhaseFailed, &TerminalJobFailure{JobID: jobID, Message: report.ErrorMessage})
	default:
		keepPolling = true
	}
	snap := c.commitLocked()
	c.mu.Unlock()

	if keepPolling {
		c.logger.Debug().Str("job_id", jobID).Str("status", string(report.Status)).Msg("wizard: job still running")
	} else {
		c.logger.Info().Str("job_id", jobID).Str("phase", string(snap.Phase)).Msg("wizard: job settled")
	}
	c.publish(snap)
	return keepPolling
}

// finishLocked leaves PhasePolling and releases the poll task.
func (c *Controller) finishLocked(phase Phase, err error) {
	c.session.Phase = phase
	c.session.LastError = err
	c.busy = false
	if c.task != nil {
		c.task.Cancel()
		c.task = nil
	}
}

// Retry goes back to ReadyToConfirm after a failure, keeping both images.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.session.Step != StepResult || c.session.Phase != PhaseFailed {
		c.mu.Unlock()
		return ErrNotReady
	}
	c.session.Step = StepConfirm
	c.session.Phase = PhaseNone
	c.session.ActiveJob = nil
	c.session.LastError = nil
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

// Reset clears the session from any state. Stored uploads are not deleted.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.resetLocked()
	snap := c.commitLocked()
	c.mu.Unlock()
	c.publish(snap)
}

func (c *Controller) resetLocked() {
	if c.task != nil {
		c.task.Cancel()
		c.task = nil
	}
	c.epoch++
	c.busy = false
	c.session = initialSession()
}

// Close ends the controller lifecycle. Polling stops and later actions
// return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.resetLocked()
	c.closed = true
	c.commitLocked()
	c.mu.Unlock()
	c.cancel()
}

// Await blocks until nothing is in flight (no upload, submission or polling)
// and returns the settled snapshot.
func (c *Controller) Await(ctx context.Context) (Snapshot, error) {
	for {
		c.mu.Lock()
		if !c.busy && c.session.Phase.Settled() {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, nil
		}
		ch := c.changed
		c.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}
