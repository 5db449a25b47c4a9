package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
)

// QuizStore holds the quizzes served over HTTP. *app.SessionManager implements it.
type QuizStore interface {
	Create(ctx context.Context) (string, *app.QuizController, error)
	Get(id string) (*app.QuizController, error)
	Delete(id string) error
}

// QuizHandler handles the quiz REST endpoints.
type QuizHandler struct {
	store QuizStore
}

// NewQuizHandler creates a new quiz handler.
func NewQuizHandler(store QuizStore) *QuizHandler {
	return &QuizHandler{store: store}
}

// CreateQuiz handles POST /api/v1/quizzes.
// Creates a quiz in the not_started state.
//
// @Summary Create a quiz
// @Tags quizzes
// @Produce json
// @Success 201 {object} dto.QuizView
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/v1/quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	id, ctrl, err := h.store.Create(c.Request.Context())
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Header("Location", c.FullPath()+"/"+id)
	c.JSON(http.StatusCreated, dto.NewQuizView(id, ctrl.Snapshot()))
}

// GetQuiz handles GET /api/v1/quizzes/:id
//
// @Summary Get a quiz
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} dto.QuizView
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id, ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizView(id, ctrl.Snapshot()))
}

// StartQuiz handles POST /api/v1/quizzes/:id/start
// Begins a new round. The fetch resolves in the background and the response
// is 202 with the loading view. With ?wait=true the handler waits for the
// fetch to settle and answers 200; if the request deadline passes first it
// still answers 202. A failed fetch is reported in the view, not as an error.
//
// @Summary Start a round
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Param wait query bool false "Wait for the questions to load"
// @Success 200 {object} dto.QuizView
// @Success 202 {object} dto.QuizView
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/quizzes/{id}/start [post]
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	var query dto.StartQuizQuery
	if err := dto.BindQueryAndValidate(c, &query); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	id, ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	snap, err := ctrl.Start(ctx)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	if query.Wait {
		settled, err := ctrl.Await(ctx)

		switch {
		case err == nil, domain.IsFetchFailed(err):
			snap = settled
		case ctx.Err() != nil:
			logging.FromContext(ctx).DebugContext(ctx, "stopped waiting for questions", slog.Any("error", err))
		default:
			dto.HandleError(c, err)
			return
		}
	}

	status := http.StatusOK
	if snap.Loading() {
		status = http.StatusAccepted
	}

	c.JSON(status, dto.NewQuizView(id, snap))
}

// SelectAnswer handles POST /api/v1/quizzes/:id/answers
// Answers the current question with the 0-based index in the body.
//
// @Summary Answer the current question
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Param request body dto.SelectAnswerRequest true "Selected answer"
// @Success 200 {object} dto.AnswerResult
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/v1/quizzes/{id}/answers [post]
func (h *QuizHandler) SelectAnswer(c *gin.Context) {
	id, ctrl, ok := h.resolve(c)
	if !ok {
		return
	}

	var req dto.SelectAnswerRequest
	if err := dto.BindAndValidate(c, &req); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	correct, snap, err := ctrl.SelectAnswer(c.Request.Context(), *req.Index)
	if err != nil {
		dto.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AnswerResult{Correct: correct, Quiz: dto.NewQuizView(id, snap)})
}

// DeleteQuiz handles DELETE /api/v1/quizzes/:id
// Closes the quiz, dropping any pending fetch.
//
// @Summary Delete a quiz
// @Tags quizzes
// @Param id path string true "Quiz ID"
// @Success 204
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	var param dto.QuizIDParam
	if err := dto.BindURIAndValidate(c, &param); err != nil {
		dto.HandleBindError(c, err)
		return
	}

	if err := h.store.Delete(param.ID); err != nil {
		dto.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// resolve binds the quiz ID, looks the quiz up and tags the request logger
// with it. It writes the error response and returns false on failure.
func (h *QuizHandler) resolve(c *gin.Context) (string, *app.QuizController, bool) {
	var param dto.QuizIDParam
	if err := dto.BindURIAndValidate(c, &param); err != nil {
		dto.HandleBindError(c, err)
		return "", nil, false
	}

	ctrl, err := h.store.Get(param.ID)
	if err != nil {
		dto.HandleError(c, err)
		return "", nil, false
	}

	c.Request = c.Request.WithContext(logging.WithQuizID(c.Request.Context(), param.ID))

	return param.ID, ctrl, true
}

// RegisterRoutes registers the quiz REST routes on rg:
//   - POST   /quizzes
//   - GET    /quizzes/:id
//   - DELETE /quizzes/:id
//   - POST   /quizzes/:id/start
//   - POST   /quizzes/:id/answers
func (h *QuizHandler) RegisterRoutes(rg *gin.RouterGroup) {
	quizzes := rg.Group("/quizzes")
	quizzes.POST("", h.CreateQuiz)
	quizzes.GET("/:id", h.GetQuiz)
	quizzes.DELETE("/:id", h.DeleteQuiz)
	quizzes.POST("/:id/start", h.StartQuiz)
	quizzes.POST("/:id/answers", h.SelectAnswer)
}
