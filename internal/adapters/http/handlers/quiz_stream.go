package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = time.Minute
	streamPingEvery = streamPongWait * 9 / 10

	// streamMaxMessage bounds one client action.
	streamMaxMessage = 1 << 10
)

// QuizStreamHandler pushes quiz snapshots over a WebSocket and applies the
// actions the client sends back.
type QuizStreamHandler struct {
	store    QuizStore
	upgrader websocket.Upgrader
}

// NewQuizStreamHandler creates a stream handler. An empty allowedOrigins
// accepts any origin.
func NewQuizStreamHandler(store QuizStore, allowedOrigins []string) *QuizStreamHandler {
	return &QuizStreamHandler{
		store:    store,
		upgrader: buildUpgrader(allowedOrigins),
	}
}

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}

			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}

			return false
		},
	}
}

// Stream handles GET /api/v1/quizzes/:id/stream
//
// The server sends {"event":"quiz"} with the current view on connect and on
// every change, {"event":"answer"} with the outcome of an answer the client
// sent, and {"event":"error"} when an action is rejected. The client sends
// {"action":"start"} or {"action":"answer","index":n}. The stream ends when
// the client disconnects or the quiz is deleted.
func (h *QuizStreamHandler) Stream(c *gin.Context) {
	var param dto.QuizIDParam
	if err := dto.BindURIAndValidate(c, &param); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	ctrl, err := h.store.Get(param.ID)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	ctx, cancel := context.WithCancel(logging.WithQuizID(c.Request.Context(), param.ID))
	defer cancel()

	logger := logging.FromContext(ctx)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		logger.WarnContext(ctx, "websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer func() { _ = conn.Close() }()

	snapshots, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	replies := make(chan dto.StreamMessage, 1)
	done := make(chan struct{})

	go func() {
		defer close(done)
		h.readActions(ctx, conn, param.ID, ctrl, replies)
	}()

	logger.DebugContext(ctx, "stream opened")

	ping := time.NewTicker(streamPingEvery)
	defer ping.Stop()

	for {
		var (
			msg  dto.StreamMessage
			open bool
		)

		select {
		case <-done:
			logger.DebugContext(ctx, "stream closed by client")
			return

		case snap, ok := <-snapshots:
			if !ok {
				writeClose(conn, websocket.CloseGoingAway, "quiz closed")
				return
			}

			view := dto.NewQuizView(param.ID, snap)
			msg, open = dto.StreamMessage{Event: dto.StreamEventQuiz, Quiz: &view}, true

		case msg = <-replies:
			open = true

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}

		if open {
			if err := writeMessage(conn, msg); err != nil {
				logger.DebugContext(ctx, "stream write failed", slog.Any("error", err))
				return
			}
		}
	}
}

// readActions applies client actions until the connection fails.
func (h *QuizStreamHandler) readActions(
	ctx context.Context,
	conn *websocket.Conn,
	id string,
	ctrl *app.QuizController,
	replies chan<- dto.StreamMessage,
) {
	logger := logging.FromContext(ctx)

	conn.SetReadLimit(streamMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		var action dto.StreamAction
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.DebugContext(ctx, "stream read failed", slog.Any("error", err))
			}

			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))

		reply, ok := applyAction(ctx, id, ctrl, action)
		if !ok {
			continue
		}

		select {
		case replies <- reply:
		case <-ctx.Done():
			return
		}
	}
}

// applyAction runs one client action and returns the reply to send, if any.
// A successful start needs no reply: subscribers see the new snapshot.
func applyAction(ctx context.Context, id string, ctrl *app.QuizController, action dto.StreamAction) (dto.StreamMessage, bool) {
	if err := dto.Validate(action); err != nil {
		return dto.StreamMessage{
			Event: dto.StreamEventError,
			Error: &dto.ErrorDetail{
				Code:    dto.ErrorCodeValidation,
				Message: "invalid action",
				Details: dto.ValidationErrors(err),
			},
		}, true
	}

	switch action.Action {
	case "start":
		if _, err := ctrl.Start(ctx); err != nil {
			return dto.NewStreamError(err), true
		}

		return dto.StreamMessage{}, false

	default:
		if action.Index == nil {
			return dto.StreamMessage{
				Event: dto.StreamEventError,
				Error: &dto.ErrorDetail{
					Code:    dto.ErrorCodeValidation,
					Message: "invalid action",
					Details: map[string]string{"index": "this field is required"},
				},
			}, true
		}

		correct, snap, err := ctrl.SelectAnswer(ctx, *action.Index)
		if err != nil {
			return dto.NewStreamError(err), true
		}

		view := dto.NewQuizView(id, snap)

		return dto.StreamMessage{Event: dto.StreamEventAnswer, Quiz: &view, Correct: &correct}, true
	}
}

func writeMessage(conn *websocket.Conn, msg dto.StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}

	return conn.WriteJSON(msg)
}

func writeClose(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(streamWriteWait))
}

// RegisterRoutes registers GET /quizzes/:id/stream on rg.
func (h *QuizStreamHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/quizzes/:id/stream", h.Stream)
}
