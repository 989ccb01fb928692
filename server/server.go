// Package server exposes the Sakura scheduler over HTTP.
//
//	GET    /sakura                    status (endpoints visible to maintainers only)
//	POST   /sakura/job                {"task": "web/kakuyomu/123"}
//	DELETE /sakura/job/{id}
//	POST   /sakura/worker             {"gpu", "endpoint", "description"}
//	DELETE /sakura/worker/{id}
//	POST   /sakura/worker/{id}/start
//	POST   /sakura/worker/{id}/stop
//	GET    /sakura/ws                 status pushed over WebSocket
//	GET    /health
//
// Errors are {"error": "..."} with 400/401/403/404/409/429/500.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/auth"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sakura"
)

// ShutdownTimeout bounds how long Shutdown waits for status streams to end
const ShutdownTimeout = 10 * time.Second

// Server serves the scheduler API
type Server struct {
	facade  *sakura.Facade
	auth    *auth.Middleware
	limiter *submitLimiter
	logger  *zap.SugaredLogger

	mu             sync.RWMutex
	allowedOrigins []string
	pushInterval   time.Duration

	upgrader   websocket.Upgrader
	handler    http.Handler
	httpServer *http.Server
	startTime  time.Time
	state      atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the server. validator verifies bearer tokens; cfg supplies
// origins, the submit throttle and the status push interval.
func New(facade *sakura.Facade, validator auth.TokenValidator, cfg *am.Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = logger.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		facade:         facade,
		auth:           auth.NewMiddleware(validator, log),
		limiter:        newSubmitLimiter(cfg.Sakura.SubmitPerMinute),
		logger:         log.Named("server"),
		allowedOrigins: cfg.Server.AllowedOrigins,
		pushInterval:   cfg.StatusPushInterval(),
		startTime:      time.Now(),
		ctx:            ctx,
		cancel:         cancel,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.handler = s.setupRoutes()
	s.setState(ServerStateRunning)
	return s
}

// Handler returns the root handler, for embedding or httptest
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ApplyConfig takes over settings that may change while running
func (s *Server) ApplyConfig(cfg *am.Config) {
	s.mu.Lock()
	s.allowedOrigins = cfg.Server.AllowedOrigins
	s.pushInterval = cfg.StatusPushInterval()
	s.mu.Unlock()

	s.limiter.SetRate(cfg.Sakura.SubmitPerMinute)
	s.facade.SetLimits(sakura.LimitsFrom(cfg.Sakura))
}

func (s *Server) statusPushInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pushInterval
}
