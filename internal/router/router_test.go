package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/cleaner"
	"github.com/stemsi/gradcafe-backend/internal/config"
	"github.com/stemsi/gradcafe-backend/internal/handler"
	"github.com/stemsi/gradcafe-backend/internal/middleware"
	"github.com/stemsi/gradcafe-backend/internal/response"
	"github.com/stemsi/gradcafe-backend/internal/service"
	"github.com/stemsi/gradcafe-backend/internal/service/servicetest"
	"github.com/stemsi/gradcafe-backend/internal/standardize"
	ws "github.com/stemsi/gradcafe-backend/internal/websocket"
	"github.com/stemsi/gradcafe-backend/internal/worker"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	engine   *gin.Engine
	store    *servicetest.MemoryStore
	fake     *servicetest.FakeScraper
	slot     *worker.JobSlot
	analysis *service.AnalysisService
}

func newTestEnv(t *testing.T, fake *servicetest.FakeScraper, limiter *middleware.RateLimiter) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	if limiter == nil {
		limiter = middleware.NewRateLimiter(1000, 1000)
	}

	store := servicetest.NewMemoryStore()
	analysis := service.NewAnalysisService(store, log)
	pipeline := service.NewPipelineService(
		store,
		fake,
		cleaner.New(log),
		standardize.NewRules(log),
		service.NewLoaderService(store, log),
		t.TempDir(),
		log,
	)
	slot := worker.NewJobSlot(log)

	handlers := &Handlers{
		Dashboard: handler.NewDashboardHandler(analysis, slot, log),
		Pipeline:  handler.NewPipelineHandler(slot, pipeline, analysis, log),
		WS:        handler.NewWSHandler(slot, log, nil),
		System:    handler.NewSystemHandler(nil, log),
	}
	cfg := &config.Config{GinMode: gin.TestMode}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = slot.Wait(ctx)
	})

	return &testEnv{
		engine:   SetupRouter(handlers, limiter, cfg, log),
		store:    store,
		fake:     fake,
		slot:     slot,
		analysis: analysis,
	}
}

func (e *testEnv) do(method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func (e *testEnv) status(t *testing.T) worker.Status {
	t.Helper()
	w := e.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st worker.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func (e *testEnv) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.slot.Wait(ctx))
}

func TestStatus_InitialSnapshot(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	w := env.do(http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, map[string]any{
		"is_running":  false,
		"progress":    "Idle",
		"last_update": nil,
		"error":       nil,
	}, body)
}

func TestPullData_RejectsSecondRequestWhileRunning(t *testing.T) {
	fake := &servicetest.FakeScraper{Records: servicetest.RawRecords(2), Block: make(chan struct{})}
	env := newTestEnv(t, fake, nil)

	w := env.do(http.MethodPost, "/pull-data", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.JSONEq(t, `{"ok":true}`, w.Body.String())
	require.NotEmpty(t, w.Header().Get("X-Task-ID"))

	require.True(t, env.status(t).IsRunning)
	require.Eventually(t, func() bool { return fake.Calls() == 1 }, 2*time.Second, 10*time.Millisecond)

	w = env.do(http.MethodPost, "/pull-data", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"busy":true}`, w.Body.String())

	w = env.do(http.MethodPost, "/update-analysis", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	require.JSONEq(t, `{"busy":true}`, w.Body.String())

	close(fake.Block)
	env.wait(t)
	require.Equal(t, 1, fake.Calls())
	require.False(t, env.status(t).IsRunning)
}

func TestPullData_LoadsRecordsAndRecordsLastUpdate(t *testing.T) {
	fake := &servicetest.FakeScraper{Records: servicetest.RawRecords(3)}
	env := newTestEnv(t, fake, nil)

	w := env.do(http.MethodPost, "/pull-data", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	env.wait(t)

	st := env.status(t)
	require.False(t, st.IsRunning)
	require.Nil(t, st.Error)
	require.NotNil(t, st.LastUpdate)
	_, err := time.Parse(time.RFC3339, *st.LastUpdate)
	require.NoError(t, err)
	require.Equal(t, "Complete! Added 3 new records", st.Progress)
	require.Len(t, env.store.Rows(), 3)

	// the query layer sees the loaded rows
	ctx := context.Background()
	sum, err := env.analysis.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, sum.TotalRecords)
	latest := env.analysis.Latest(ctx)
	require.Equal(t, "q1", latest.Results[0].Key)
	require.Equal(t, "3", latest.Results[0].Value)

	// same listing again adds nothing
	w = env.do(http.MethodPost, "/pull-data", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	env.wait(t)
	require.Len(t, env.store.Rows(), 3)
}

func TestPullData_FailureIsReportedInStatus(t *testing.T) {
	fake := &servicetest.FakeScraper{Err: errors.New("upstream down")}
	env := newTestEnv(t, fake, nil)

	require.Equal(t, http.StatusAccepted, env.do(http.MethodPost, "/pull-data", nil).Code)
	env.wait(t)

	st := env.status(t)
	require.False(t, st.IsRunning)
	require.NotNil(t, st.Error)
	require.Contains(t, *st.Error, "upstream down")
	require.True(t, strings.HasPrefix(st.Progress, "Error: "), st.Progress)
	require.Nil(t, st.LastUpdate)

	// the slot is free again
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/update-analysis", nil).Code)
}

func TestUpdateAnalysis_Accepted(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	w := env.do(http.MethodPost, "/update-analysis", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true}`, w.Body.String())
	env.wait(t)

	st := env.status(t)
	require.NotNil(t, st.LastUpdate)
	require.Nil(t, st.Error)
}

func TestDashboard_RendersHTML(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	for _, path := range []string{"/", "/analysis"} {
		w := env.do(http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		require.Contains(t, w.Header().Get("Content-Type"), "text/html")
		body := w.Body.String()
		require.Contains(t, body, "GradCafe Admissions Analysis")
		require.Contains(t, body, "Pull Data")
		require.Contains(t, body, "0.00%")
		require.NotContains(t, body, "Database unavailable")
	}
}

func TestDashboard_DatabaseDownStillRenders(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)
	env.store.SchemaErr = errors.New("connection refused")

	w := env.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Database unavailable")
}

func TestDashboard_BrotliEncoded(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	w := env.do(http.MethodGet, "/", map[string]string{"Accept-Encoding": "gzip, br"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "br", w.Header().Get("Content-Encoding"))

	plain, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	require.Contains(t, string(plain), "GradCafe Admissions Analysis")
	require.Contains(t, string(plain), "</html>")
}

func TestErrors_NotFound(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	w := env.do(http.MethodGet, "/nope", map[string]string{"Accept": "text/html"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), response.GetMessage(response.ErrNotFound))

	w = env.do(http.MethodGet, "/nope", map[string]string{"Accept": "application/json"})
	require.Equal(t, http.StatusNotFound, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	require.Equal(t, response.ErrNotFound, body.Error.Code)
	require.NotEmpty(t, body.Metadata.RequestID)
}

func TestErrors_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	w := env.do(http.MethodGet, "/pull-data", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestErrors_PanicBecomes500(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)
	env.engine.GET("/boom", func(*gin.Context) { panic("boom") })

	w := env.do(http.MethodGet, "/boom", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, response.ErrInternal, body.Error.Code)
}

func TestActions_RateLimited(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, middleware.NewRateLimiter(1, 2))

	codes := make([]int, 0, 3)
	for range 3 {
		w := env.do(http.MethodPost, "/update-analysis", nil)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			require.Equal(t, "60", w.Header().Get("Retry-After"))
		}
		env.wait(t)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// GET /status is not limited
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/status", nil).Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, &servicetest.FakeScraper{}, nil)

	w := env.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Data.Status)
}

func TestStatusStream_PushesRunningSnapshot(t *testing.T) {
	fake := &servicetest.FakeScraper{Records: servicetest.RawRecords(1), Block: make(chan struct{})}
	env := newTestEnv(t, fake, nil)
	srv := httptest.NewServer(env.engine)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/status", nil)
	require.NoError(t, err)
	defer conn.Close()

	read := func() ws.StatusEvent {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var ev ws.StatusEvent
		require.NoError(t, conn.ReadJSON(&ev))
		return ev
	}

	first := read()
	require.Equal(t, ws.EventStatus, first.Event)
	require.False(t, first.Status.IsRunning)

	resp, err := http.Post(srv.URL+"/pull-data", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	ev := read()
	require.True(t, ev.Status.IsRunning)
	require.Equal(t, "Starting data pipeline...", ev.Status.Progress)

	require.NoError(t, conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}))
	close(fake.Block)

	var sawPong, sawDone bool
	for !(sawPong && sawDone) {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		var raw map[string]any
		require.NoError(t, conn.ReadJSON(&raw))
		switch raw["event"] {
		case string(ws.EventPong):
			sawPong = true
		case string(ws.EventStatus):
			if st, ok := raw["status"].(map[string]any); ok && st["is_running"] == false {
				sawDone = true
			}
		}
	}
}
