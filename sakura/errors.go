package sakura

import "github.com/Somnusochi/auto-novel/errors"

// Reasons surfaced to callers. Each keeps its category sentinel so the HTTP
// layer maps it to a status code; the message tells the caller which gate
// failed. Messages must stay distinct because errors.Is compares them.
var (
	ErrLoginRequired   = errors.Wrap(errors.ErrUnauthorized, "login required")
	ErrAccountTooYoung = errors.Wrap(errors.ErrForbidden, "account is too new to submit jobs")
	ErrQueueFull       = errors.Wrap(errors.ErrForbidden, "job queue is full")
	ErrNotMaintainer   = errors.Wrap(errors.ErrForbidden, "maintainer privilege required")
	ErrNotJobOwner     = errors.Wrap(errors.ErrForbidden, "only the submitter or a maintainer may delete this job")
	ErrTaskMalformed   = errors.Wrap(errors.ErrInvalidRequest, "malformed task")
	ErrInvalidEndpoint = errors.Wrap(errors.ErrInvalidRequest, "invalid worker endpoint")
	ErrNovelNotFound   = errors.Wrap(errors.ErrNotFound, "novel not found")
	ErrVolumeNotFound  = errors.Wrap(errors.ErrNotFound, "volume not found")
	ErrJobNotFound     = errors.Wrap(errors.ErrNotFound, "job not found")
	ErrWorkerNotFound  = errors.Wrap(errors.ErrNotFound, "worker not found")
	ErrTaskExists      = errors.Wrap(errors.ErrConflict, "task is already queued")
	ErrJobOccupied     = errors.Wrap(errors.ErrConflict, "job is being executed by a worker")
)
