package sakura

import "context"

// WorkerClient drives one job on a remote worker process.
//
// Execute sends the task to endpoint and blocks until the worker reports a
// terminal status, the connection fails, or ctx is cancelled. A nil return
// means the worker reported success. onProgress is called synchronously from
// Execute and never after it returns.
type WorkerClient interface {
	Execute(ctx context.Context, endpoint string, job *Job, onProgress func(Progress)) error
}

// WorkerClientFunc adapts a function to WorkerClient
type WorkerClientFunc func(ctx context.Context, endpoint string, job *Job, onProgress func(Progress)) error

// Execute implements WorkerClient
func (f WorkerClientFunc) Execute(ctx context.Context, endpoint string, job *Job, onProgress func(Progress)) error {
	return f(ctx, endpoint, job, onProgress)
}
