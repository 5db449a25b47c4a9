package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/mocks"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
	"github.com/jsamuelsen/tech-quiz-service/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverConfig(port int) *config.ServerConfig {
	return &config.ServerConfig{
		Host:            "127.0.0.1",
		Port:            port,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     30 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		MaxRequestSize:  1 << 10,
	}
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	return port
}

func TestServer_New(t *testing.T) {
	cfg := serverConfig(8080)
	srv := New(cfg, discardLogger())

	require.NotNil(t, srv.Engine())
	assert.Equal(t, cfg, srv.Config())
	assert.Equal(t, "127.0.0.1:8080", srv.Addr())
	assert.Equal(t, cfg.ReadTimeout, srv.httpServer.ReadTimeout)
	assert.Equal(t, cfg.WriteTimeout, srv.httpServer.WriteTimeout)
}

func TestServer_AddrIPv6(t *testing.T) {
	cfg := serverConfig(3000)
	cfg.Host = "::1"

	assert.Equal(t, "[::1]:3000", New(cfg, discardLogger()).Addr())
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	port := freePort(t)
	srv := New(serverConfig(port), discardLogger())
	srv.Engine().GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- srv.Run(ctx) }()

	url := "http://127.0.0.1:" + strconv.Itoa(port) + "/ping"

	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:noctx // test helper
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()

		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunReturnsListenError(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	srv := New(serverConfig(l.Addr().(*net.TCPAddr).Port), discardLogger())

	err = srv.Run(context.Background())
	require.ErrorContains(t, err, "http server error")
}

func TestServer_MaxBodySize(t *testing.T) {
	srv := New(serverConfig(0), discardLogger())
	srv.Engine().POST("/echo", func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}

		c.String(http.StatusOK, strconv.Itoa(len(body)))
	})

	w := httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"index":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 2<<10))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func newTestRouter(t *testing.T, source ports.QuestionSource, timeout time.Duration) *gin.Engine {
	t.Helper()

	manager := app.NewSessionManager(app.SessionManagerConfig{
		Source:       source,
		Logger:       discardLogger(),
		FetchTimeout: time.Second,
	})
	t.Cleanup(func() { manager.CloseAll(context.Background()) })

	registry := mocks.NewMockHealthRegistry(t)
	registry.EXPECT().CheckAll(mock.Anything).Return(&ports.HealthResult{Status: ports.HealthStatusHealthy}).Maybe()

	engine := gin.New()
	SetupRouter(engine, RouterConfig{
		Logger:         discardLogger(),
		ServiceName:    "tech-quiz-service",
		AllowedOrigins: []string{"https://quiz.example.com"},
		HealthHandler:  handlers.NewHealthHandler(registry, handlers.NewBuildInfo("test", "none", "")),
		QuizHandler:    handlers.NewQuizHandler(manager),
		StreamHandler:  handlers.NewQuizStreamHandler(manager, nil),
		Timeout:        timeout,
	})

	return engine
}

func TestSetupRouter_Routes(t *testing.T) {
	router := newTestRouter(t, mocks.NewMockQuestionSource(t), time.Second)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var view dto.QuizView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	for _, path := range []string{"/-/live", "/-/ready", "/-/build", "/api/v1/quizzes/" + view.ID} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

			assert.Equal(t, http.StatusOK, w.Code)
		})
	}
}

func TestSetupRouter_IDHeaders(t *testing.T) {
	router := newTestRouter(t, mocks.NewMockQuestionSource(t), time.Second)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-1")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderCorrelationID))
}

func TestSetupRouter_CORSPreflight(t *testing.T) {
	router := newTestRouter(t, mocks.NewMockQuestionSource(t), time.Second)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/quizzes", nil)
	req.Header.Set("Origin", "https://quiz.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://quiz.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSetupRouter_RequestTimeoutWhileWaiting(t *testing.T) {
	source := mocks.NewMockQuestionSource(t)
	source.EXPECT().RandomQuestions(mock.Anything).
		RunAndReturn(func(ctx context.Context) ([]domain.Question, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).Maybe()

	router := newTestRouter(t, source, 50*time.Millisecond)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quizzes", nil))
	require.Equal(t, http.StatusCreated, w.Code)

	var view dto.QuizView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/quizzes/"+view.ID+"/start?wait=true", nil))

	assert.Equal(t, http.StatusAccepted, w.Code, "an expired wait still reports the loading quiz")
}
