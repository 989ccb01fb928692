package sakura

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/Somnusochi/auto-novel/errors"
)

// JobStore persists queued jobs in the sakura_jobs table.
//
// Claim, release and delete each run as one conditional statement, so races
// between dispatchers and humans are settled by SQLite and never by a
// read-then-write in Go.
type JobStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewJobStore creates a job store over an already migrated database
func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db, now: time.Now}
}

// List returns every queued job, oldest first (claim order)
func (s *JobStore) List(ctx context.Context) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM sakura_jobs ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	jobs := make([]*Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating jobs")
	}
	return jobs, nil
}

// Count returns the number of queued jobs, assigned or not
func (s *JobStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sakura_jobs`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "failed to count jobs")
	}
	return n, nil
}

// Create inserts job unless another queued job already has the same task.
// It returns false for a duplicate. An empty ID or zero CreatedAt is filled in.
func (s *JobStore) Create(ctx context.Context, job *Job) (bool, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = s.now().UTC()
	}

	query := `
		INSERT INTO sakura_jobs (id, task, description, submitter, worker_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(task) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Task,
		job.Description,
		job.Submitter,
		nullableWorker(job.WorkerID),
		job.CreatedAt.UnixNano(),
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to create job for task %s", job.Task)
	}

	return affected(result, "create job")
}

// Get returns the job with id, or ErrJobNotFound
func (s *JobStore) Get(ctx context.Context, id string) (*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM sakura_jobs WHERE id = ?`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithDetailf(ErrJobNotFound, "job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job %s", id)
	}
	return job, nil
}

// ClaimNext assigns the oldest unassigned job to workerID and returns it.
// It returns nil, nil when nothing is claimable. Concurrent callers never
// receive the same job: the worker_id IS NULL guard on the outer UPDATE makes
// a lost race affect zero rows.
func (s *JobStore) ClaimNext(ctx context.Context, workerID string) (*Job, error) {
	query := `
		UPDATE sakura_jobs
		SET worker_id = ?
		WHERE id = (
			SELECT id FROM sakura_jobs
			WHERE worker_id IS NULL
			ORDER BY created_at ASC, rowid ASC
			LIMIT 1
		)
		AND worker_id IS NULL
		RETURNING ` + jobColumns

	job, err := scanJob(s.db.QueryRowContext(ctx, query, workerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to claim job for worker %s", workerID)
	}
	return job, nil
}

// Release returns a job to the claimable pool. Releasing an unassigned or
// missing job is a no-op.
func (s *JobStore) Release(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE sakura_jobs SET worker_id = NULL WHERE id = ?`, id); err != nil {
		return errors.Wrapf(err, "failed to release job %s", id)
	}
	return nil
}

// ReleaseFrom releases id only while workerID still owns it. A dispatcher
// uses this so a late release never clears another worker's claim.
func (s *JobStore) ReleaseFrom(ctx context.Context, id, workerID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sakura_jobs SET worker_id = NULL WHERE id = ? AND worker_id = ?`, id, workerID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to release job %s from worker %s", id, workerID)
	}
	return affected(result, "release job")
}

// ReleaseWorker releases every job held by workerID and returns how many
func (s *JobStore) ReleaseWorker(ctx context.Context, workerID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE sakura_jobs SET worker_id = NULL WHERE worker_id = ?`, workerID)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to release jobs of worker %s", workerID)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return n, nil
}

// ReleaseAll releases every assigned job. Workers do not survive a restart,
// so at startup any assignment is orphaned.
func (s *JobStore) ReleaseAll(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE sakura_jobs SET worker_id = NULL WHERE worker_id IS NOT NULL`)
	if err != nil {
		return 0, errors.Wrap(err, "failed to release orphaned jobs")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to get rows affected")
	}
	return n, nil
}

// Delete removes id only if no worker holds it. False means the job is
// occupied or already gone; callers that need to tell those apart Get first.
func (s *JobStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sakura_jobs WHERE id = ? AND worker_id IS NULL`, id)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete job %s", id)
	}
	return affected(result, "delete job")
}

// Complete removes a finished job regardless of assignment
func (s *JobStore) Complete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sakura_jobs WHERE id = ?`, id); err != nil {
		return errors.Wrapf(err, "failed to complete job %s", id)
	}
	return nil
}

func affected(result sql.Result, op string) (bool, error) {
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "failed to get rows affected for %s", op)
	}
	return rows > 0, nil
}
