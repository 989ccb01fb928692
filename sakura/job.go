// Package sakura schedules translation jobs onto remote GPU workers.
//
// Jobs live in SQLite (JobStore) and are claimed oldest-first by one
// Dispatcher per active worker. Workers are registered at runtime and live in
// memory only (WorkerRegistry). The Facade is what the HTTP layer talks to.
//
// Every mutation that races between humans and dispatchers (claim, release,
// delete) is a single conditional SQL statement. No lock is ever held across
// a call to a remote worker.
package sakura

import "time"

// Job is one queued translation request.
//
// WorkerID is empty while the job is claimable. Description is resolved once at
// submission and never refreshed.
type Job struct {
	ID          string    `json:"id" yaml:"id"`
	Task        string    `json:"task" yaml:"task"`
	Description string    `json:"description" yaml:"description"`
	Submitter   string    `json:"submitter" yaml:"submitter"`
	WorkerID    string    `json:"worker_id,omitempty" yaml:"worker_id,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
}

// Assigned reports whether a worker currently owns the job
func (j *Job) Assigned() bool {
	return j.WorkerID != ""
}

// Progress is a worker's snapshot of the job it is executing.
// Each update replaces the previous snapshot wholesale.
type Progress struct {
	JobID           string `json:"job_id"`
	Task            string `json:"task"`
	ChapterTotal    int    `json:"chapter_total"`
	ChapterFinished int    `json:"chapter_finished"`
	ChapterError    int    `json:"chapter_error"`
}

// Percentage of chapters done, errors included (0-100)
func (p Progress) Percentage() float64 {
	if p.ChapterTotal == 0 {
		return 0
	}
	return float64(p.ChapterFinished+p.ChapterError) / float64(p.ChapterTotal) * 100
}

// Worker is an operator-supplied remote translation process.
type Worker struct {
	ID          string    `json:"id"`
	GPU         string    `json:"gpu"`
	Endpoint    string    `json:"endpoint"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	Progress    *Progress `json:"progress"`
	Failures    int       `json:"failures"` // consecutive failed executions
	CreatedAt   time.Time `json:"created_at"`
}

// clone returns a copy that shares no memory with w
func (w Worker) clone() Worker {
	if w.Progress != nil {
		p := *w.Progress
		w.Progress = &p
	}
	return w
}

// Status is the scheduler snapshot returned to viewers
type Status struct {
	Jobs    []*Job   `json:"jobs"`
	Workers []Worker `json:"workers"`
}
