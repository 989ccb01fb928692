package sakura

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
)

// fakeResolver knows a fixed set of works
type fakeResolver struct {
	web     map[string]string // "provider/novel" -> Japanese title
	wenku   map[string]string // novel -> title
	volumes map[string]bool   // "novel/volume"
	err     error             // returned by every call when set
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		web:     map[string]string{"providerX/novelY": "転生したら桜だった件"},
		wenku:   map[string]string{"42": "桜の森の満開の下"},
		volumes: map[string]bool{"42/vol1.epub": true},
	}
}

func (r *fakeResolver) WebNovelTitle(_ context.Context, providerID, novelID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	title, ok := r.web[providerID+"/"+novelID]
	if !ok {
		return "", errors.ErrNotFound
	}
	return title, nil
}

func (r *fakeResolver) WenkuNovelTitle(_ context.Context, novelID string) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	title, ok := r.wenku[novelID]
	if !ok {
		return "", errors.ErrNotFound
	}
	return title, nil
}

func (r *fakeResolver) WenkuVolumeExists(_ context.Context, novelID, volumeID string) (bool, error) {
	if r.err != nil {
		return false, r.err
	}
	return r.volumes[novelID+"/"+volumeID], nil
}

// scriptedClient lets a test decide how each execution ends.
// Every Execute call is announced on started, then run is invoked.
type scriptedClient struct {
	mu      sync.Mutex
	calls   int
	started chan *Job
	run     func(ctx context.Context, job *Job, onProgress func(Progress)) error
}

func newScriptedClient(run func(ctx context.Context, job *Job, onProgress func(Progress)) error) *scriptedClient {
	return &scriptedClient{started: make(chan *Job, 16), run: run}
}

func (c *scriptedClient) Execute(ctx context.Context, _ string, job *Job, onProgress func(Progress)) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	select {
	case c.started <- job:
	default:
	}
	return c.run(ctx, job, onProgress)
}

func (c *scriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// untilCancelled blocks like a worker that never finishes on its own
func untilCancelled(ctx context.Context, _ *Job, _ func(Progress)) error {
	<-ctx.Done()
	return ctx.Err()
}

func fastDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		PollInterval:      10 * time.Millisecond,
		FailureBackoff:    10 * time.Millisecond,
		MaxFailureBackoff: 40 * time.Millisecond,
		StopTimeout:       2 * time.Second,
	}
}

func newTestRegistry(t *testing.T, store *JobStore, client WorkerClient) *WorkerRegistry {
	t.Helper()
	r := NewWorkerRegistry(store, client, fastDispatcherConfig(), logger.Logger)
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r
}

func waitForJob(t *testing.T, ch <-chan *Job) *Job {
	t.Helper()
	select {
	case job := <-ch:
		return job
	case <-time.After(3 * time.Second):
		t.Fatal("worker was never asked to execute a job")
		return nil
	}
}
