package dto

import "github.com/jsamuelsen/tech-quiz-service/internal/domain"

// QuizIDParam binds the :id path segment.
type QuizIDParam struct {
	ID string `uri:"id" validate:"required,uuid"`
}

// StartQuizQuery binds the query of POST /quizzes/:id/start.
type StartQuizQuery struct {
	// Wait blocks until the fetch settles or the request deadline passes.
	Wait bool `form:"wait"`
}

// SelectAnswerRequest is the body of POST /quizzes/:id/answers.
// Index is 0-based; range checks are left to the quiz.
type SelectAnswerRequest struct {
	Index *int `json:"index" validate:"required"`
}

// StreamAction is a client message on the quiz WebSocket.
type StreamAction struct {
	Action string `json:"action" validate:"required,oneof=start answer"`
	Index  *int   `json:"index"`
}

// AnswerView is one answer option. Correctness is never sent to clients.
type AnswerView struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// QuestionView is the question being answered.
type QuestionView struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Answers []AnswerView `json:"answers"`
}

// QuizView renders one quiz snapshot.
type QuizView struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Loading    bool   `json:"loading"`
	Generation uint64 `json:"generation"`

	Question *QuestionView `json:"question,omitempty"`

	// QuestionNumber is 1-based and only set while in progress.
	QuestionNumber int `json:"questionNumber,omitempty"`

	Total     int    `json:"total"`
	Score     int    `json:"score"`
	ScoreText string `json:"scoreText,omitempty"`
	Failure   string `json:"failure,omitempty"`
}

// AnswerResult is the response to a selected answer.
type AnswerResult struct {
	Correct bool     `json:"correct"`
	Quiz    QuizView `json:"quiz"`
}

// NewQuizView builds the view of snap for quiz id.
func NewQuizView(id string, snap domain.Snapshot) QuizView {
	view := QuizView{
		ID:         id,
		State:      snap.State.String(),
		Loading:    snap.Loading(),
		Generation: snap.Generation,
		Total:      snap.Total,
		Score:      snap.Score,
		Failure:    snap.Failure,
	}

	if snap.State == domain.StateCompleted {
		view.ScoreText = snap.ScoreText()
	}

	if q := snap.Question; q != nil {
		answers := make([]AnswerView, len(q.Answers))
		for i, a := range q.Answers {
			answers[i] = AnswerView{Index: i, Text: a.Text}
		}

		view.Question = &QuestionView{ID: q.ID, Text: q.Text, Answers: answers}
		view.QuestionNumber = snap.Index + 1
	}

	return view
}

// Events sent on the quiz WebSocket.
const (
	StreamEventQuiz   = "quiz"
	StreamEventAnswer = "answer"
	StreamEventError  = "error"
)

// StreamMessage is a server message on the quiz WebSocket. Quiz is set for
// quiz and answer events, Correct for answer events, Error for error events.
type StreamMessage struct {
	Event   string       `json:"event"`
	Quiz    *QuizView    `json:"quiz,omitempty"`
	Correct *bool        `json:"correct,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// NewStreamError builds an error event for err using the HTTP error codes.
func NewStreamError(err error) StreamMessage {
	_, resp := MapDomainError(err)

	return StreamMessage{Event: StreamEventError, Error: &resp.Error}
}
