package sakura

import (
	"database/sql"
	"time"
)

// jobColumns is the column order every job SELECT and RETURNING clause uses
const jobColumns = `id, task, description, submitter, worker_id, created_at`

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanJob reads one row in jobColumns order
func scanJob(row rowScanner) (*Job, error) {
	var (
		job       Job
		workerID  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&job.ID, &job.Task, &job.Description, &job.Submitter, &workerID, &createdAt); err != nil {
		return nil, err
	}
	job.WorkerID = workerID.String
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	return &job, nil
}

func nullableWorker(workerID string) sql.NullString {
	return sql.NullString{String: workerID, Valid: workerID != ""}
}
