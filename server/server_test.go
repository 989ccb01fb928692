package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Somnusochi/auto-novel/am"
	"github.com/Somnusochi/auto-novel/auth"
	"github.com/Somnusochi/auto-novel/catalog"
	"github.com/Somnusochi/auto-novel/errors"
	sakuratest "github.com/Somnusochi/auto-novel/internal/testing"
	"github.com/Somnusochi/auto-novel/logger"
	"github.com/Somnusochi/auto-novel/sakura"
)

const testSecret = "sakura-test-secret-0123456789"

type serverFixture struct {
	server *Server
	tokens *auth.JWTManager
	store  *sakura.JobStore
	ts     *httptest.Server
}

func newServerFixture(t *testing.T, client sakura.WorkerClient) *serverFixture {
	t.Helper()

	database := sakuratest.CreateTestDB(t)
	works := catalog.NewStore(database)
	ctx := context.Background()
	require.NoError(t, works.UpsertWebNovel(ctx, catalog.WebNovel{
		ProviderID: "kakuyomu", NovelID: "1177354054", TitleJP: "桜の樹の下には",
	}))
	require.NoError(t, works.UpsertWenkuNovel(ctx, catalog.WenkuNovel{
		NovelID: "7", Title: "夜桜", Volumes: []string{"v1.epub"},
	}))

	cfg := am.DefaultConfig()
	cfg.Auth.JWTSecret = testSecret
	cfg.Server.AllowedOrigins = []string{"https://books.example"}
	cfg.Server.StatusPushSeconds = 1
	cfg.Sakura.SubmitPerMinute = 60

	tokens, err := auth.NewJWTManager(cfg)
	require.NoError(t, err)

	if client == nil {
		client = sakura.WorkerClientFunc(func(ctx context.Context, _ string, _ *sakura.Job, _ func(sakura.Progress)) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}

	store := sakura.NewJobStore(database)
	registry := sakura.NewWorkerRegistry(store, client, sakura.DispatcherConfig{
		PollInterval:      10 * time.Millisecond,
		FailureBackoff:    10 * time.Millisecond,
		MaxFailureBackoff: 40 * time.Millisecond,
		StopTimeout:       2 * time.Second,
	}, logger.Logger)
	facade := sakura.NewFacade(store, registry, works, sakura.LimitsFrom(cfg.Sakura), logger.Logger)

	srv := New(facade, tokens, cfg, logger.Logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		facade.Shutdown(context.Background())
	})

	return &serverFixture{server: srv, tokens: tokens, store: store, ts: ts}
}

func (f *serverFixture) token(t *testing.T, name string, role auth.Role) string {
	t.Helper()
	token, err := f.tokens.GenerateToken(auth.User{
		Username:  name,
		Role:      role,
		CreatedAt: time.Now().Add(-30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return token
}

func (f *serverFixture) do(t *testing.T, method, path, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestSubmitJob(t *testing.T) {
	f := newServerFixture(t, nil)
	member := f.token(t, "hina", auth.RoleNormal)

	resp := f.do(t, http.MethodPost, "/sakura/job", member, `{"task":"web/kakuyomu/1177354054?level=expert"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	job := decode[sakura.Job](t, resp)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "桜の樹の下には", job.Description)
	assert.Equal(t, "hina", job.Submitter)

	tests := []struct {
		name   string
		token  string
		body   string
		status int
		errMsg string
	}{
		{"anonymous", "", `{"task":"wenku/7/v1.epub"}`, http.StatusUnauthorized, "login required"},
		{"duplicate", member, `{"task":"web/kakuyomu/1177354054?level=expert"}`, http.StatusConflict, "already queued"},
		{"malformed", member, `{"task":"web/kakuyomu"}`, http.StatusBadRequest, ""},
		{"unknown novel", member, `{"task":"web/kakuyomu/404"}`, http.StatusNotFound, ""},
		{"bad json", member, `{"task":`, http.StatusBadRequest, "invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/sakura/job", tt.token, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			body := decode[map[string]string](t, resp)
			assert.NotEmpty(t, body["error"])
			if tt.errMsg != "" {
				assert.Contains(t, body["error"], tt.errMsg)
			}
			assert.NotContains(t, body["error"], ": forbidden")
		})
	}
}

func TestSubmitJob_Throttled(t *testing.T) {
	f := newServerFixture(t, nil)
	member := f.token(t, "hina", auth.RoleNormal)

	cfg := am.DefaultConfig()
	cfg.Sakura.SubmitPerMinute = 3
	f.server.ApplyConfig(cfg)

	// Three per minute; the first three land (or conflict), the fourth is throttled
	for i := 0; i < 3; i++ {
		resp := f.do(t, http.MethodPost, "/sakura/job", member, `{"task":"wenku/7/v1.epub"}`)
		assert.NotEqual(t, http.StatusTooManyRequests, resp.StatusCode)
	}
	resp := f.do(t, http.MethodPost, "/sakura/job", member, `{"task":"wenku/7/v1.epub"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	other := f.token(t, "sora", auth.RoleNormal)
	resp = f.do(t, http.MethodPost, "/sakura/job", other, `{"task":"web/kakuyomu/1177354054"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "buckets are per user")
}

func TestDeleteJob(t *testing.T) {
	f := newServerFixture(t, nil)
	member := f.token(t, "hina", auth.RoleNormal)

	job := decode[sakura.Job](t, f.do(t, http.MethodPost, "/sakura/job", member, `{"task":"wenku/7/v1.epub"}`))

	resp := f.do(t, http.MethodDelete, "/sakura/job/"+job.ID, f.token(t, "sora", auth.RoleNormal), "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/sakura/job/"+job.ID, member, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.do(t, http.MethodDelete, "/sakura/job/"+job.ID, member, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWorkerLifecycle(t *testing.T) {
	f := newServerFixture(t, nil)
	admin := f.token(t, "kaede", auth.RoleMaintainer)
	member := f.token(t, "hina", auth.RoleNormal)

	body := `{"gpu":"RTX 4090","endpoint":"ws://10.0.0.5:8080/sakura","description":"lab box"}`
	resp := f.do(t, http.MethodPost, "/sakura/worker", member, body)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/sakura/worker", admin, `{"gpu":"x","endpoint":"ftp://nowhere"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/sakura/worker", admin, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	worker := decode[sakura.Worker](t, resp)
	assert.False(t, worker.Active)

	job := decode[sakura.Job](t, f.do(t, http.MethodPost, "/sakura/job", member, `{"task":"wenku/7/v1.epub"}`))

	resp = f.do(t, http.MethodPost, "/sakura/worker/"+worker.ID+"/start", admin, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Eventually(t, func() bool {
		got, err := f.store.Get(context.Background(), job.ID)
		return err == nil && got.WorkerID == worker.ID
	}, 3*time.Second, 10*time.Millisecond)

	resp = f.do(t, http.MethodDelete, "/sakura/job/"+job.ID, member, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "held jobs cannot be deleted")

	resp = f.do(t, http.MethodPost, "/sakura/worker/"+worker.ID+"/stop", admin, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	got, err := f.store.Get(context.Background(), job.ID)
	require.NoError(t, err)
	assert.False(t, got.Assigned(), "stopping returns the job to the queue")

	resp = f.do(t, http.MethodDelete, "/sakura/worker/"+worker.ID, admin, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.do(t, http.MethodPost, "/sakura/worker/"+worker.ID+"/start", admin, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStatus_RedactsEndpoints(t *testing.T) {
	f := newServerFixture(t, nil)
	admin := f.token(t, "kaede", auth.RoleMaintainer)

	resp := f.do(t, http.MethodPost, "/sakura/worker", admin, `{"gpu":"A100","endpoint":"wss://gpu.internal/sakura"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	anon := decode[sakura.Status](t, f.do(t, http.MethodGet, "/sakura", "", ""))
	require.Len(t, anon.Workers, 1)
	assert.Empty(t, anon.Workers[0].Endpoint)
	assert.NotNil(t, anon.Jobs)

	elevated := decode[sakura.Status](t, f.do(t, http.MethodGet, "/sakura", admin, ""))
	require.Len(t, elevated.Workers, 1)
	assert.Equal(t, "wss://gpu.internal/sakura", elevated.Workers[0].Endpoint)
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	f := newServerFixture(t, nil)

	resp := f.do(t, http.MethodPost, "/sakura/job", "not-a-jwt", `{"task":"wenku/7/v1.epub"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	f := newServerFixture(t, nil)

	req, err := http.NewRequest(http.MethodOptions, f.ts.URL+"/sakura/job", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://books.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://books.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}

func TestRequestIDEchoed(t *testing.T) {
	f := newServerFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/health", "", "")
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	f := newServerFixture(t, nil)

	resp := f.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[HealthResponse](t, resp)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "running", health.State)
	assert.Zero(t, health.Jobs)
}

func TestStatusWebSocket(t *testing.T) {
	f := newServerFixture(t, nil)
	admin := f.token(t, "kaede", auth.RoleMaintainer)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/sakura/ws?token=" + admin
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var first statusMessage
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "status", first.Type)
	require.NotNil(t, first.Status)
	assert.Empty(t, first.Status.Workers)

	resp := f.do(t, http.MethodPost, "/sakura/worker", admin, `{"gpu":"A100","endpoint":"wss://gpu.internal/sakura"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// A tick may fire before the registration lands
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var next statusMessage
		require.NoError(t, conn.ReadJSON(&next))
		if len(next.Status.Workers) == 0 {
			continue
		}
		require.Len(t, next.Status.Workers, 1)
		assert.Equal(t, "wss://gpu.internal/sakura", next.Status.Workers[0].Endpoint)
		return
	}
}

func TestShutdown(t *testing.T) {
	f := newServerFixture(t, nil)

	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/sakura/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	var first statusMessage
	require.NoError(t, conn.ReadJSON(&first))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.server.Shutdown(ctx))

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)

	resp := f.do(t, http.MethodGet, "/sakura", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{sakura.ErrLoginRequired, http.StatusUnauthorized, "login required"},
		{sakura.ErrQueueFull, http.StatusForbidden, ""},
		{sakura.ErrJobNotFound, http.StatusNotFound, ""},
		{sakura.ErrJobOccupied, http.StatusConflict, ""},
		{sakura.ErrTaskMalformed, http.StatusBadRequest, ""},
		{errDraining, http.StatusServiceUnavailable, "server is shutting down"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		status, msg := errorStatus(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		if tt.msg != "" {
			assert.Equal(t, tt.msg, msg)
		}
	}
}
