package server

import (
	"net/http"

	"github.com/Somnusochi/auto-novel/auth"
	"github.com/Somnusochi/auto-novel/logger"
)

type submitJobRequest struct {
	Task string `json:"task"`
}

type registerWorkerRequest struct {
	GPU         string `json:"gpu"`
	Endpoint    string `json:"endpoint"`
	Description string `json:"description"`
}

// HandleStatus returns every job and worker.
// GET /sakura
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.facade.Status(r.Context(), auth.UserFromContext(r.Context()))
	if err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleSubmitJob queues a translation task.
// POST /sakura/job
func (s *Server) HandleSubmitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	user := auth.UserFromContext(r.Context())
	if user != nil && !s.limiter.Allow(user.Username) {
		writeError(w, http.StatusTooManyRequests, errThrottled.Error())
		return
	}

	job, err := s.facade.SubmitJob(r.Context(), user, req.Task)
	if err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// HandleDeleteJob removes a queued job that no worker holds.
// DELETE /sakura/job/{id}
func (s *Server) HandleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.facade.DeleteJob(r.Context(), auth.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegisterWorker adds an inactive worker.
// POST /sakura/worker
func (s *Server) HandleRegisterWorker(w http.ResponseWriter, r *http.Request) {
	var req registerWorkerRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	worker, err := s.facade.RegisterWorker(r.Context(), auth.UserFromContext(r.Context()), req.GPU, req.Endpoint, req.Description)
	if err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, worker)
}

// HandleUnregisterWorker stops and removes a worker.
// DELETE /sakura/worker/{id}
func (s *Server) HandleUnregisterWorker(w http.ResponseWriter, r *http.Request) {
	if err := s.facade.UnregisterWorker(r.Context(), auth.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStartWorker attaches a dispatcher to the worker.
// POST /sakura/worker/{id}/start
func (s *Server) HandleStartWorker(w http.ResponseWriter, r *http.Request) {
	if err := s.facade.StartWorker(r.Context(), auth.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStopWorker detaches the dispatcher; a held job returns to the queue.
// POST /sakura/worker/{id}/stop
func (s *Server) HandleStopWorker(w http.ResponseWriter, r *http.Request) {
	if err := s.facade.StopWorker(r.Context(), auth.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		s.writeFacadeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFacadeError maps err to a status; internal errors are logged in full
// and answered with a generic message.
func (s *Server) writeFacadeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	log := logger.LoggerFromContext(r.Context(), s.logger)
	if status == http.StatusInternalServerError {
		log.Errorw("Request failed",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldError, err)
	} else {
		log.Debugw("Request rejected",
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, status,
			logger.FieldError, message)
	}
	writeError(w, status, message)
}
