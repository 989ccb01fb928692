// Package remote speaks the worker protocol over WebSocket.
//
// The scheduler dials the worker's endpoint, sends one task frame and then
// reads progress frames until the worker reports success or failure:
//
//	-> {"type":"task","job_id":"...","task":"web/kakuyomu/123","description":"..."}
//	<- {"type":"progress","progress":{"chapter_total":12,"chapter_finished":3,"chapter_error":0}}
//	<- {"type":"success"}
//
// A connection that closes before a terminal frame counts as a failure.
package remote

import (
	"context"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Somnusochi/auto-novel/errors"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sakura"
)

// Timeouts follow the gorilla chat example
const (
	// Time allowed to write a frame to the worker
	writeWait = 10 * time.Second

	// A worker that answers neither frames nor pings for this long is gone
	pongWait = 60 * time.Second

	// Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Progress frames are small
	maxMessageSize = 64 * 1024
)

// ErrWorkerFailed marks a failure reported by the worker itself
var ErrWorkerFailed = errors.New("worker reported failure")

// Client implements sakura.WorkerClient
type Client struct {
	dialer     *websocket.Dialer
	logger     *zap.SugaredLogger
	pongWait   time.Duration
	pingPeriod time.Duration
}

var _ sakura.WorkerClient = (*Client)(nil)

// NewClient creates a client whose handshakes give up after dialTimeout
func NewClient(dialTimeout time.Duration, log *zap.SugaredLogger) *Client {
	if log == nil {
		log = logger.Logger
	}
	return &Client{
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		logger:     log.Named("remote"),
		pongWait:   pongWait,
		pingPeriod: pingPeriod,
	}
}

// Execute runs job on the worker at endpoint. Cancelling ctx closes the
// connection, which aborts the read loop immediately.
func (c *Client) Execute(ctx context.Context, endpoint string, job *sakura.Job, onProgress func(sakura.Progress)) error {
	wsURL := toWebSocketURL(endpoint)
	log := logger.LoggerFromContext(ctx, c.logger)

	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to connect to worker at %s", wsURL)
	}
	defer conn.Close()
	log.Debugw("Connected to worker", logger.FieldEndpoint, wsURL)

	stopClose := context.AfterFunc(ctx, func() { conn.Close() })
	defer stopClose()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(TaskMessage{
		Type:        TypeTask,
		JobID:       job.ID,
		Task:        job.Task,
		Description: job.Description,
	}); err != nil {
		return c.connErr(ctx, err, "failed to send task")
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go c.keepAlive(conn, pingDone)

	for {
		var msg WorkerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return c.connErr(ctx, err, "worker connection lost before the job finished")
		}
		conn.SetReadDeadline(time.Now().Add(c.pongWait))

		switch msg.Type {
		case TypeProgress:
			if msg.Progress != nil {
				onProgress(*msg.Progress)
			}
		case TypeSuccess:
			c.closeGracefully(conn)
			return nil
		case TypeFailure:
			c.closeGracefully(conn)
			return errors.Wrapf(ErrWorkerFailed, "%s", msg.Error)
		default:
			log.Debugw("Ignoring unknown worker frame", "type", msg.Type)
		}
	}
}

// keepAlive pings the worker so a silent half-open connection is noticed.
// WriteControl may run concurrently with the reader.
func (c *Client) keepAlive(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeGracefully(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// connErr prefers the cancellation cause over the closed-connection error it produced
func (c *Client) connErr(ctx context.Context, err error, msg string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return errors.Wrap(err, msg)
}

// toWebSocketURL rewrites http(s) endpoints to ws(s)
func toWebSocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}
