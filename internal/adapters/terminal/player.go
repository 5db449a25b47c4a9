package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jsamuelsen/tech-quiz-service/internal/domain"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
)

// Quiz is the part of a quiz controller the player drives.
// *app.QuizController implements it.
type Quiz interface {
	Snapshot() domain.Snapshot
	Start(ctx context.Context) (domain.Snapshot, error)
	Await(ctx context.Context) (domain.Snapshot, error)
	SelectAnswer(ctx context.Context, index int) (bool, domain.Snapshot, error)
}

// Player runs a quiz over line input and text output.
type Player struct {
	quiz     Quiz
	in       *bufio.Scanner
	renderer *Renderer
	logger   *slog.Logger
}

// NewPlayer creates a player reading answers from in and writing to out.
func NewPlayer(quiz Quiz, in io.Reader, out io.Writer, logger *slog.Logger) *Player {
	return &Player{
		quiz:     quiz,
		in:       bufio.NewScanner(in),
		renderer: NewRenderer(out),
		logger:   logging.Component(logger, "terminal.Player"),
	}
}

// errQuit ends Play without an error.
var errQuit = errors.New("quit")

// Play runs rounds until the player declines a new one, input ends, or ctx
// is done.
func (p *Player) Play(ctx context.Context) error {
	snap := p.quiz.Snapshot()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		next, err := p.step(ctx, snap)
		if errors.Is(err, errQuit) {
			return nil
		}

		if err != nil {
			return err
		}

		snap = next
	}
}

// step renders snap, reads what the state needs and returns the next snapshot.
func (p *Player) step(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	if err := p.renderer.Render(snap); err != nil {
		return snap, fmt.Errorf("rendering: %w", err)
	}

	switch snap.State {
	case domain.StateLoading:
		settled, err := p.quiz.Await(ctx)
		if err != nil && !domain.IsFetchFailed(err) {
			return snap, err
		}

		return settled, nil

	case domain.StateInProgress:
		return p.answer(ctx, snap)

	default:
		line, err := p.readLine()
		if err != nil {
			return snap, err
		}

		if !Confirm(line) {
			return snap, errQuit
		}

		return p.quiz.Start(ctx)
	}
}

func (p *Player) answer(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	count := len(snap.Question.Answers)

	for {
		line, err := p.readLine()
		if err != nil {
			return snap, err
		}

		index, err := ParseAnswer(line, count)
		if err != nil {
			p.logger.Log(ctx, logging.LevelTrace, "rejected input", slog.String("input", line))

			if err := p.renderer.Retry(fmt.Sprintf("Please enter a number between 1 and %d.", count)); err != nil {
				return snap, err
			}

			continue
		}

		correct, next, err := p.quiz.SelectAnswer(ctx, index)
		if err != nil {
			return snap, fmt.Errorf("selecting answer: %w", err)
		}

		if err := p.renderer.Feedback(correct); err != nil {
			return snap, err
		}

		return next, nil
	}
}

// readLine returns the next input line. End of input is errQuit.
func (p *Player) readLine() (string, error) {
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}

		return "", errQuit
	}

	return p.in.Text(), nil
}
