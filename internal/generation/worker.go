package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"outfitlens/internal/domain"
	"outfitlens/internal/imageproc"
)

const (
	jobPollInterval = 2 * time.Second
	sweepBatch      = 16
	defaultLease    = 5 * time.Minute

	// MsgFailed is the message stored when rendering fails for a reason the
	// user cannot act on.
	MsgFailed = "Generation failed"
	// MsgInterrupted is stored when the worker shuts down mid-job.
	MsgInterrupted = "Generation interrupted"
	// MsgTimedOut is stored on jobs whose worker vanished mid-render.
	MsgTimedOut = "Generation timed out"
)

// ImageStore loads source photos and stores rendered results.
type ImageStore interface {
	Bytes(ctx context.Context, img *domain.Image) ([]byte, error)
	SaveResult(ctx context.Context, userID string, data []byte, info imageproc.Info) (*domain.Image, error)
}

// WorkerOptions tune the worker pool.
type WorkerOptions struct {
	Workers       int
	Delay         time.Duration // simulated inference latency
	SweepInterval time.Duration
	// Lease is how long a job may stay in processing before the sweep
	// fails it. It must exceed Delay plus render time.
	Lease     time.Duration
	Composite imageproc.CompositeOptions
}

// Worker renders pending jobs. Several goroutines share the service queue and
// periodically sweep the repository for jobs the queue missed.
type Worker struct {
	svc       *Service
	images    ImageStore
	moderator Moderator
	opts      WorkerOptions
	logger    zerolog.Logger
}

// NewWorker builds a worker pool for svc.
func NewWorker(svc *Service, images ImageStore, moderator Moderator, opts WorkerOptions, logger zerolog.Logger) *Worker {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = jobPollInterval
	}
	if opts.Lease <= 0 {
		opts.Lease = defaultLease
	}
	if opts.Lease <= opts.Delay {
		opts.Lease = 2*opts.Delay + defaultLease
	}
	if opts.Composite.MaxEdge <= 0 {
		opts.Composite = imageproc.DefaultCompositeOptions()
	}
	if moderator == nil {
		moderator = NewBlocklist(nil)
	}
	return &Worker{svc: svc, images: images, moderator: moderator, opts: opts, logger: logger}
}

// Run blocks until ctx is cancelled and every goroutine has returned.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Int("workers", w.opts.Workers).Msg("worker: started")
	var wg sync.WaitGroup
	for i := 0; i < w.opts.Workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.loop(ctx, n)
		}(i)
	}
	wg.Wait()
	w.logger.Info().Msg("worker: stopped")
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, n int) {
	ticker := time.NewTicker(w.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.svc.Queue():
			w.handle(ctx, id, n)
		case <-ticker.C:
			w.sweep(ctx, n)
		}
	}
}

func (w *Worker) sweep(ctx context.Context, n int) {
	w.reapStale(ctx)
	ids, err := w.svc.generations.PendingIDs(ctx, sweepBatch)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("worker: failed to list pending jobs")
		}
		return
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		w.handle(ctx, id, n)
	}
}

// reapStale fails jobs a crashed worker left in processing. Moving them to
// failed keeps the lifecycle monotonic and ends client polling.
func (w *Worker) reapStale(ctx context.Context) {
	gens := w.svc.generations
	ids, err := gens.StaleIDs(ctx, time.Now().Add(-w.opts.Lease), sweepBatch)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("worker: failed to list stale jobs")
		}
		return
	}
	for _, id := range ids {
		gen, err := gens.UpdateStatus(ctx, id, domain.GenerationFailed, nil, MsgTimedOut)
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			w.logger.Error().Err(err).Str("job_id", id).Msg("worker: failed to expire job")
			continue
		}
		w.logger.Warn().Str("job_id", id).Dur("lease", w.opts.Lease).Msg("worker: expired stale job")
		w.svc.publish(ctx, *gen)
	}
}

func (w *Worker) handle(ctx context.Context, id string, n int) {
	if err := w.Process(ctx, id); err != nil {
		w.logger.Error().Err(err).Str("job_id", id).Int("worker", n).Msg("worker: job failed")
	}
}

// Process claims one pending job and drives it to a terminal status. Jobs
// already claimed elsewhere are skipped.
func (w *Worker) Process(ctx context.Context, id string) error {
	gens := w.svc.generations
	gen, err := gens.UpdateStatus(ctx, id, domain.GenerationProcessing, nil, "")
	if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.Info().Str("job_id", id).Msg("worker: picked job")
	w.svc.publish(ctx, *gen)

	result, reason, renderErr := w.render(ctx, gen)

	finishCtx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		finishCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		reason = MsgInterrupted
	}

	var final *domain.Generation
	switch {
	case reason != "":
		final, err = gens.UpdateStatus(finishCtx, id, domain.GenerationFailed, nil, reason)
	case renderErr != nil:
		w.logger.Error().Err(renderErr).Str("job_id", id).Msg("worker: render failed")
		final, err = gens.UpdateStatus(finishCtx, id, domain.GenerationFailed, nil, MsgFailed)
	default:
		final, err = gens.UpdateStatus(finishCtx, id, domain.GenerationCompleted, result, "")
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		w.logger.Warn().Str("job_id", id).Msg("worker: job expired before it finished")
		return nil
	}
	if err != nil {
		return err
	}
	w.logger.Info().Str("job_id", id).Str("status", string(final.Status)).Msg("worker: job finished")
	w.svc.publish(finishCtx, *final)
	return nil
}

// render returns the stored result, or a user-facing rejection reason, or an error.
func (w *Worker) render(ctx context.Context, gen *domain.Generation) (*domain.Image, string, error) {
	if err := sleepCtx(ctx, w.opts.Delay); err != nil {
		return nil, "", err
	}
	subject, err := w.images.Bytes(ctx, &gen.UserPhoto)
	if err != nil {
		return nil, "", err
	}
	garment, err := w.images.Bytes(ctx, &gen.ClothingPhoto)
	if err != nil {
		return nil, "", err
	}
	reason, err := w.moderator.Review(ctx, subject, garment)
	if err != nil || reason != "" {
		return nil, reason, err
	}
	data, info, err := imageproc.Composite(subject, garment, w.opts.Composite)
	if err != nil {
		return nil, "", err
	}
	img, err := w.images.SaveResult(ctx, gen.UserID, data, info)
	if err != nil {
		return nil, "", err
	}
	return img, "", nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
