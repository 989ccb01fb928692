package sakura

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/logger"
)

// releaseTimeout bounds the store call that hands a job back to the pool
const releaseTimeout = 10 * time.Second

// DispatcherConfig tunes every dispatcher a registry starts
type DispatcherConfig struct {
	PollInterval      time.Duration // idle wait between claim attempts
	FailureBackoff    time.Duration // first wait after a failure, doubled per consecutive failure
	MaxFailureBackoff time.Duration
	StopTimeout       time.Duration // how long stopping a worker waits for its loop to exit
}

// DefaultDispatcherConfig returns the am package defaults
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfigFrom(am.SakuraConfig{})
}

// DispatcherConfigFrom reads dispatcher timings from the [sakura] config section
func DispatcherConfigFrom(cfg am.SakuraConfig) DispatcherConfig {
	return DispatcherConfig{
		PollInterval:      cfg.PollInterval(),
		FailureBackoff:    cfg.FailureBackoff(),
		MaxFailureBackoff: cfg.MaxFailureBackoff(),
		StopTimeout:       cfg.StopTimeout(),
	}
}

// outcome of one execution
type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeCancelled
)

// Dispatcher is the control loop of one active worker:
//
//	Idle -> Claiming -> Executing -> Completing | Releasing -> Idle
//
// Cancelling its context moves it to Stopped. A job held at that moment is
// released, never completed.
type Dispatcher struct {
	workerID string
	store    *JobStore
	registry *WorkerRegistry
	client   WorkerClient
	cfg      DispatcherConfig

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *zap.SugaredLogger
}

func newDispatcher(workerID string, r *WorkerRegistry) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		workerID: workerID,
		store:    r.store,
		registry: r,
		client:   r.client,
		cfg:      r.cfg,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		logger:   r.logger.With(logger.FieldWorkerID, workerID),
	}
}

func (d *Dispatcher) start() {
	go d.run()
}

// stop cancels the loop and waits for it to exit, at most StopTimeout.
// It returns false if the loop was still running when the wait gave up.
func (d *Dispatcher) stop() bool {
	d.cancel()

	timer := time.NewTimer(d.cfg.StopTimeout)
	defer timer.Stop()

	select {
	case <-d.done:
		return true
	case <-timer.C:
		d.logger.Warnw("Dispatcher did not stop in time, it will release its job on exit",
			"timeout", d.cfg.StopTimeout)
		return false
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	logger.AddDispatchOpenSymbol(d.logger).Infow("Dispatcher started")
	defer logger.AddDispatchCloseSymbol(d.logger).Infow("Dispatcher stopped")

	backoff := newBackoff(d.cfg.FailureBackoff, d.cfg.MaxFailureBackoff)

	for d.ctx.Err() == nil {
		job, err := d.claim()
		if d.ctx.Err() != nil {
			return
		}
		if err != nil {
			wait := backoff.next()
			d.logger.Errorw("Failed to claim job",
				logger.FieldError, err,
				logger.FieldBackoff, wait)
			d.sleep(wait)
			continue
		}
		if job == nil {
			d.sleep(d.cfg.PollInterval)
			continue
		}

		switch d.execute(job) {
		case outcomeCompleted:
			if backoff.failures > 0 {
				d.logger.Infow("Worker recovered", "previous_failures", backoff.failures)
			}
			backoff.reset()
			d.registry.recordOutcome(d.workerID, true)
		case outcomeFailed:
			failures := d.registry.recordOutcome(d.workerID, false)
			wait := backoff.next()
			d.logger.Warnw("Backing off after failed job",
				logger.FieldFailures, failures,
				logger.FieldBackoff, wait)
			d.sleep(wait)
		}
	}
}

// claim runs ClaimNext without the loop's cancellation so a claim is either
// fully applied or not at all. A job claimed while a stop was starting goes
// straight back to the pool.
func (d *Dispatcher) claim() (*Job, error) {
	job, err := d.store.ClaimNext(context.WithoutCancel(d.ctx), d.workerID)
	if err != nil || job == nil {
		return nil, err
	}
	if d.ctx.Err() != nil {
		d.release(job)
		return nil, nil
	}
	return job, nil
}

func (d *Dispatcher) execute(job *Job) outcome {
	log := d.logger.With(logger.FieldJobID, job.ID, logger.FieldTask, job.Task)

	endpoint, ok := d.registry.endpoint(d.workerID)
	if !ok {
		d.release(job)
		return outcomeCancelled
	}

	d.registry.UpdateProgress(d.workerID, &Progress{JobID: job.ID, Task: job.Task})
	defer d.registry.ClearProgress(d.workerID)

	log.Infow("Executing job", logger.FieldEndpoint, endpoint)
	start := time.Now()

	ctx := logger.WithJobID(logger.WithWorkerID(d.ctx, d.workerID), job.ID)
	err := d.client.Execute(ctx, endpoint, job, func(p Progress) {
		if d.ctx.Err() != nil {
			return
		}
		p.JobID, p.Task = job.ID, job.Task
		d.registry.UpdateProgress(d.workerID, &p)
	})

	// A result that arrives after a stop began is not trusted, success included
	if d.ctx.Err() != nil {
		d.release(job)
		log.Infow("Job released on stop")
		return outcomeCancelled
	}

	if err != nil {
		log.Warnw("Job failed, releasing", logger.FieldError, err)
		d.release(job)
		return outcomeFailed
	}

	if err := d.store.Complete(context.WithoutCancel(d.ctx), job.ID); err != nil {
		log.Errorw("Failed to remove completed job, releasing", logger.FieldError, err)
		d.release(job)
		return outcomeFailed
	}

	log.Infow("Job completed", logger.FieldDurationMS, time.Since(start).Milliseconds())
	return outcomeCompleted
}

// release hands job back to the pool if this worker still holds it
func (d *Dispatcher) release(job *Job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(d.ctx), releaseTimeout)
	defer cancel()

	if _, err := d.store.ReleaseFrom(ctx, job.ID, d.workerID); err != nil {
		d.logger.Errorw("Failed to release job",
			logger.FieldJobID, job.ID,
			logger.FieldError, err)
	}
}

// sleep waits for dur or until the dispatcher is stopped
func (d *Dispatcher) sleep(dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()

	select {
	case <-d.ctx.Done():
	case <-timer.C:
	}
}

// backoff doubles from initial up to max on each consecutive failure
type backoff struct {
	initial  time.Duration
	max      time.Duration
	current  time.Duration
	failures int
}

func newBackoff(initial, ceiling time.Duration) *backoff {
	if ceiling < initial {
		ceiling = initial
	}
	return &backoff{initial: initial, max: ceiling}
}

func (b *backoff) next() time.Duration {
	b.failures++
	if b.current == 0 {
		b.current = b.initial
	} else {
		b.current = min(b.current*2, b.max)
	}
	return b.current
}

func (b *backoff) reset() {
	b.current = 0
	b.failures = 0
}
