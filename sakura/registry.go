package sakura

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
)

// WorkerRegistry is the in-memory directory of registered workers.
//
// mu guards the map and every Worker field. It is never held while a
// dispatcher is being waited for or while a worker is contacted. Each record
// also has its own lifecycle mutex so start, stop and unregister of one worker
// happen one at a time without blocking status reads.
type WorkerRegistry struct {
	mu      sync.RWMutex
	workers map[string]*workerRecord
	order   []string

	store  *JobStore
	client WorkerClient
	cfg    DispatcherConfig
	logger *zap.SugaredLogger
	now    func() time.Time
}

type workerRecord struct {
	lifecycle  sync.Mutex
	worker     Worker
	dispatcher *Dispatcher
	removed    bool
}

// NewWorkerRegistry creates an empty registry. Dispatchers it starts claim
// from store and execute through client.
func NewWorkerRegistry(store *JobStore, client WorkerClient, cfg DispatcherConfig, log *zap.SugaredLogger) *WorkerRegistry {
	if log == nil {
		log = logger.Logger
	}
	return &WorkerRegistry{
		workers: make(map[string]*workerRecord),
		store:   store,
		client:  client,
		cfg:     cfg,
		logger:  log.Named("dispatcher"),
		now:     time.Now,
	}
}

// Register adds an inactive worker with a fresh id
func (r *WorkerRegistry) Register(gpu, endpoint, description string) Worker {
	rec := &workerRecord{
		worker: Worker{
			ID:          uuid.NewString(),
			GPU:         gpu,
			Endpoint:    endpoint,
			Description: description,
			CreatedAt:   r.now().UTC(),
		},
	}

	r.mu.Lock()
	r.workers[rec.worker.ID] = rec
	r.order = append(r.order, rec.worker.ID)
	r.mu.Unlock()

	return rec.worker.clone()
}

// Unregister stops the worker if needed, releases anything it held and
// removes it.
func (r *WorkerRegistry) Unregister(ctx context.Context, id string) error {
	rec, err := r.record(id)
	if err != nil {
		return err
	}

	rec.lifecycle.Lock()
	defer rec.lifecycle.Unlock()

	r.mu.Lock()
	if rec.removed {
		r.mu.Unlock()
		return errors.WithDetailf(ErrWorkerNotFound, "worker %s", id)
	}
	rec.removed = true
	delete(r.workers, id)
	for i, wid := range r.order {
		if wid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.deactivate(ctx, rec)
	return nil
}

// Get returns a copy of the worker
func (r *WorkerRegistry) Get(id string) (Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.workers[id]
	if !ok {
		return Worker{}, errors.WithDetailf(ErrWorkerNotFound, "worker %s", id)
	}
	return rec.worker.clone(), nil
}

// All returns copies of every worker in registration order
func (r *WorkerRegistry) All() []Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workers := make([]Worker, 0, len(r.order))
	for _, id := range r.order {
		workers = append(workers, r.workers[id].worker.clone())
	}
	return workers
}

// SetActive starts or stops the worker's dispatcher. Stopping waits for the
// loop to exit (bounded by the stop timeout) and then releases any job still
// assigned to the worker. Setting the current state again is a no-op.
func (r *WorkerRegistry) SetActive(ctx context.Context, id string, active bool) error {
	rec, err := r.record(id)
	if err != nil {
		return err
	}

	rec.lifecycle.Lock()
	defer rec.lifecycle.Unlock()

	if !active {
		r.deactivate(ctx, rec)
		return nil
	}

	r.mu.Lock()
	if rec.removed {
		r.mu.Unlock()
		return errors.WithDetailf(ErrWorkerNotFound, "worker %s", id)
	}
	if rec.worker.Active {
		r.mu.Unlock()
		return nil
	}
	d := newDispatcher(id, r)
	rec.dispatcher = d
	rec.worker.Active = true
	rec.worker.Failures = 0
	r.mu.Unlock()

	d.start()
	return nil
}

// deactivate must be called with rec.lifecycle held
func (r *WorkerRegistry) deactivate(ctx context.Context, rec *workerRecord) {
	r.mu.Lock()
	d := rec.dispatcher
	id := rec.worker.ID
	rec.dispatcher = nil
	rec.worker.Active = false
	r.mu.Unlock()

	if d == nil {
		return
	}

	if !d.stop() {
		// Still inside Execute. The loop releases its own job on exit; a
		// blanket release now could race a restart of the same worker.
		return
	}

	released, err := r.store.ReleaseWorker(context.WithoutCancel(ctx), id)
	if err != nil {
		r.logger.Errorw("Failed to release jobs of stopped worker",
			logger.FieldWorkerID, id,
			logger.FieldError, err)
		return
	}
	if released > 0 {
		r.logger.Warnw("Released jobs still assigned to stopped worker",
			logger.FieldWorkerID, id,
			logger.FieldCount, released)
	}
}

// UpdateProgress replaces the worker's progress snapshot. Unknown ids are ignored.
func (r *WorkerRegistry) UpdateProgress(id string, progress *Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.workers[id]; ok {
		rec.worker.Progress = progress
	}
}

// ClearProgress marks the worker idle
func (r *WorkerRegistry) ClearProgress(id string) {
	r.UpdateProgress(id, nil)
}

// Shutdown stops every active worker in parallel and waits for all of them
func (r *WorkerRegistry) Shutdown(ctx context.Context) {
	r.mu.RLock()
	records := make([]*workerRecord, 0, len(r.workers))
	for _, rec := range r.workers {
		records = append(records, rec)
	}
	r.mu.RUnlock()

	var wg sync.WaitGroup
	for _, rec := range records {
		wg.Add(1)
		go func(rec *workerRecord) {
			defer wg.Done()
			rec.lifecycle.Lock()
			defer rec.lifecycle.Unlock()
			r.deactivate(ctx, rec)
		}(rec)
	}
	wg.Wait()
}

func (r *WorkerRegistry) record(id string) (*workerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.workers[id]
	if !ok {
		return nil, errors.WithDetailf(ErrWorkerNotFound, "worker %s", id)
	}
	return rec, nil
}

// endpoint is read by the dispatcher before each execution
func (r *WorkerRegistry) endpoint(id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.workers[id]
	if !ok {
		return "", false
	}
	return rec.worker.Endpoint, true
}

// recordOutcome updates the consecutive failure count and returns it
func (r *WorkerRegistry) recordOutcome(id string, success bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.workers[id]
	if !ok {
		return 0
	}
	if success {
		rec.worker.Failures = 0
	} else {
		rec.worker.Failures++
	}
	return rec.worker.Failures
}
