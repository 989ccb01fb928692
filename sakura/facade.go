package sakura

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/auth"
	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
)

// Limits are the submission gates. They can be changed at runtime.
type Limits struct {
	MinAccountAge time.Duration
	MaxQueuedJobs int
}

// DefaultLimits returns the am package defaults (7 days, 150 jobs)
func DefaultLimits() Limits {
	return LimitsFrom(am.SakuraConfig{
		MaxQueuedJobs:      am.DefaultMaxQueuedJobs,
		MinAccountAgeHours: am.DefaultMinAccountAgeHours,
	})
}

// LimitsFrom reads the submission gates from the [sakura] config section
func LimitsFrom(cfg am.SakuraConfig) Limits {
	return Limits{
		MinAccountAge: cfg.MinAccountAge(),
		MaxQueuedJobs: cfg.MaxQueuedJobs,
	}
}

// Facade is the operation surface the HTTP layer calls. It enforces
// eligibility and privilege, then delegates to the store and the registry.
type Facade struct {
	store    *JobStore
	registry *WorkerRegistry
	resolver WorkResolver
	logger   *zap.SugaredLogger
	now      func() time.Time

	mu     sync.RWMutex
	limits Limits
}

// NewFacade wires the scheduler together
func NewFacade(store *JobStore, registry *WorkerRegistry, resolver WorkResolver, limits Limits, log *zap.SugaredLogger) *Facade {
	if log == nil {
		log = logger.Logger
	}
	return &Facade{
		store:    store,
		registry: registry,
		resolver: resolver,
		logger:   logger.AddSakuraSymbol(log.Named("sakura")),
		now:      time.Now,
		limits:   limits,
	}
}

// SetLimits replaces the submission gates, e.g. after a config reload
func (f *Facade) SetLimits(limits Limits) {
	f.mu.Lock()
	f.limits = limits
	f.mu.Unlock()

	f.logger.Infow("Submission limits updated",
		"min_account_age", limits.MinAccountAge,
		"max_queued_jobs", limits.MaxQueuedJobs)
}

// Limits returns the current submission gates
func (f *Facade) Limits() Limits {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.limits
}

// Status lists every job and worker. Endpoints are blanked unless viewer is
// elevated; viewer may be nil.
func (f *Facade) Status(ctx context.Context, viewer *auth.User) (*Status, error) {
	jobs, err := f.store.List(ctx)
	if err != nil {
		return nil, err
	}

	workers := f.registry.All()
	if !viewer.IsElevated() {
		for i := range workers {
			workers[i].Endpoint = ""
		}
	}

	return &Status{Jobs: jobs, Workers: workers}, nil
}

// SubmitJob queues task for user. Gates run in order: login, account age,
// queue capacity, locator, work lookup, duplicate task.
func (f *Facade) SubmitJob(ctx context.Context, user *auth.User, task string) (*Job, error) {
	if user == nil {
		return nil, ErrLoginRequired
	}

	limits := f.Limits()
	if user.AccountAge(f.now()) < limits.MinAccountAge {
		return nil, errors.WithDetailf(ErrAccountTooYoung, "accounts must be older than %s", limits.MinAccountAge)
	}

	total, err := f.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	if total >= limits.MaxQueuedJobs {
		return nil, errors.WithDetailf(ErrQueueFull, "%d of %d slots used", total, limits.MaxQueuedJobs)
	}

	task = strings.TrimSpace(task)
	locator, err := ParseLocator(task)
	if err != nil {
		return nil, err
	}
	description, err := locator.Describe(ctx, f.resolver)
	if err != nil {
		return nil, err
	}

	job := &Job{
		Task:        task,
		Description: description,
		Submitter:   user.Username,
	}
	created, err := f.store.Create(ctx, job)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, errors.WithDetailf(ErrTaskExists, "task %s", task)
	}

	f.logger.Infow("Job submitted",
		logger.FieldJobID, job.ID,
		logger.FieldTask, job.Task,
		logger.FieldUser, user.Username,
		logger.FieldQueueSize, total+1)
	return job, nil
}

// DeleteJob removes an unassigned job. Only its submitter or an elevated user
// may delete it.
func (f *Facade) DeleteJob(ctx context.Context, user *auth.User, id string) error {
	if user == nil {
		return ErrLoginRequired
	}

	job, err := f.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.Submitter != user.Username && !user.IsElevated() {
		return ErrNotJobOwner
	}

	deleted, err := f.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return errors.WithDetailf(ErrJobOccupied, "job %s", id)
	}

	f.logger.Infow("Job deleted",
		logger.FieldJobID, id,
		logger.FieldUser, user.Username)
	return nil
}

// RegisterWorker adds an inactive worker
func (f *Facade) RegisterWorker(ctx context.Context, user *auth.User, gpu, endpoint, description string) (Worker, error) {
	if err := requireElevated(user); err != nil {
		return Worker{}, err
	}

	gpu = strings.TrimSpace(gpu)
	if gpu == "" {
		return Worker{}, errors.NewInvalidRequestError("gpu is required")
	}
	endpoint = strings.TrimSpace(endpoint)
	if err := ValidateEndpoint(endpoint); err != nil {
		return Worker{}, err
	}

	w := f.registry.Register(gpu, endpoint, strings.TrimSpace(description))
	f.logger.Infow("Worker registered",
		logger.FieldWorkerID, w.ID,
		logger.FieldGPU, w.GPU,
		logger.FieldUser, user.Username)
	return w, nil
}

// UnregisterWorker stops and removes a worker
func (f *Facade) UnregisterWorker(ctx context.Context, user *auth.User, id string) error {
	if err := requireElevated(user); err != nil {
		return err
	}
	if err := f.registry.Unregister(ctx, id); err != nil {
		return err
	}
	f.logger.Infow("Worker unregistered", logger.FieldWorkerID, id, logger.FieldUser, user.Username)
	return nil
}

// StartWorker attaches a dispatcher to the worker
func (f *Facade) StartWorker(ctx context.Context, user *auth.User, id string) error {
	if err := requireElevated(user); err != nil {
		return err
	}
	if err := f.registry.SetActive(ctx, id, true); err != nil {
		return err
	}
	f.logger.Infow("Worker started", logger.FieldWorkerID, id, logger.FieldUser, user.Username)
	return nil
}

// StopWorker detaches the worker's dispatcher and releases its job
func (f *Facade) StopWorker(ctx context.Context, user *auth.User, id string) error {
	if err := requireElevated(user); err != nil {
		return err
	}
	if err := f.registry.SetActive(ctx, id, false); err != nil {
		return err
	}
	f.logger.Infow("Worker stopped", logger.FieldWorkerID, id, logger.FieldUser, user.Username)
	return nil
}

// RecoverOrphans releases every assigned job. Call once at startup, before
// any worker is started.
func (f *Facade) RecoverOrphans(ctx context.Context) (int64, error) {
	n, err := f.store.ReleaseAll(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		f.logger.Warnw("Released jobs orphaned by a previous run", logger.FieldCount, n)
	}
	return n, nil
}

// Shutdown stops every dispatcher, releasing held jobs
func (f *Facade) Shutdown(ctx context.Context) {
	f.registry.Shutdown(ctx)
}

func requireElevated(user *auth.User) error {
	if user == nil {
		return ErrLoginRequired
	}
	if !user.IsElevated() {
		return ErrNotMaintainer
	}
	return nil
}

// ValidateEndpoint accepts absolute ws, wss, http or https URLs with a host
func ValidateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return errors.WithDetailf(ErrInvalidEndpoint, "%q: %v", endpoint, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return errors.WithDetailf(ErrInvalidEndpoint, "%q: scheme must be ws, wss, http or https", endpoint)
	}
	if u.Host == "" {
		return errors.WithDetailf(ErrInvalidEndpoint, "%q: missing host", endpoint)
	}
	return nil
}
