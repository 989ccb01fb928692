package remote

import "github.com/Somnusochi/auto-novel/sakura"

// Frame types of the worker protocol
const (
	TypeTask     = "task"     // scheduler -> worker, first and only frame sent
	TypeProgress = "progress" // worker -> scheduler, any number
	TypeSuccess  = "success"  // worker -> scheduler, terminal
	TypeFailure  = "failure"  // worker -> scheduler, terminal
)

// TaskMessage hands a job to the worker
type TaskMessage struct {
	Type        string `json:"type"`
	JobID       string `json:"job_id"`
	Task        string `json:"task"`
	Description string `json:"description"`
}

// WorkerMessage is any frame sent by the worker
type WorkerMessage struct {
	Type     string           `json:"type"`
	Progress *sakura.Progress `json:"progress,omitempty"`
	Error    string           `json:"error,omitempty"`
}
