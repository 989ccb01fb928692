package server

import (
	"bufio"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
)

// setupRoutes builds the mux and wraps it in the shared middleware
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /sakura", s.HandleStatus)
	mux.HandleFunc("POST /sakura/job", s.HandleSubmitJob)
	mux.HandleFunc("DELETE /sakura/job/{id}", s.HandleDeleteJob)
	mux.HandleFunc("POST /sakura/worker", s.HandleRegisterWorker)
	mux.HandleFunc("DELETE /sakura/worker/{id}", s.HandleUnregisterWorker)
	mux.HandleFunc("POST /sakura/worker/{id}/start", s.HandleStartWorker)
	mux.HandleFunc("POST /sakura/worker/{id}/stop", s.HandleStopWorker)
	mux.HandleFunc("GET /sakura/ws", s.HandleStatusWebSocket)
	mux.HandleFunc("GET /health", s.HandleHealth)

	return s.logRequests(s.corsMiddleware(s.drainGuard(s.auth.OptionalAuth(mux.ServeHTTP))))
}

// corsMiddleware adds CORS headers for configured origins and answers preflights
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// checkOrigin accepts requests without an Origin (CLI clients, workers) and
// origins starting with a configured prefix, so any port matches.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// drainGuard rejects new requests once shutdown has begun
func (s *Server) drainGuard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.getState() != ServerStateRunning {
			s.writeFacadeError(w, r, errDraining)
			return
		}
		next(w, r)
	}
}

// statusRecorder remembers the status code for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Hijack passes through so /sakura/ws can upgrade
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rec.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// logRequests tags each request with an id and logs it once it completes
func (s *Server) logRequests(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		logger.LoggerFromContext(r.Context(), s.logger).Debugw("HTTP request",
			logger.FieldMethod, r.Method,
			logger.FieldPath, r.URL.Path,
			logger.FieldStatus, rec.status,
			logger.FieldDurationMS, time.Since(start).Milliseconds())
	})
}
