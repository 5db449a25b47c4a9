// quizctl plays a quiz in the terminal against a question service.
// Prompts and answers use stdin and stdout; logs go to stderr.
package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/term"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/clients/acl"
	"github.com/jsamuelsen/tech-quiz-service/internal/adapters/terminal"
	"github.com/jsamuelsen/tech-quiz-service/internal/app"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/config"
	"github.com/jsamuelsen/tech-quiz-service/internal/platform/logging"
)

// Version is injected via ldflags.
var Version = "dev"

type arguments struct {
	sourceURL  string
	sourcePath string
	timeout    time.Duration
	retries    int
	logLevel   string
	logFormat  string
}

func newCLI() *kingpin.Application {
	return kingpin.New("quizctl", "Play a tech quiz in the terminal.").Version(Version)
}

func parseArgs(cli *kingpin.Application, args []string) (*arguments, error) {
	sourceURL := cli.Flag("source-url", "Base URL of the question service.").Default("http://localhost:3001").Envar("QUIZCTL_SOURCE_URL").String()
	sourcePath := cli.Flag("source-path", "Path serving a random question set.").Default(config.DefaultQuestionsPath).String()
	timeout := cli.Flag("timeout", "How long to wait for a question set.").Default("10s").Duration()
	retries := cli.Flag("retries", "Attempts per question fetch.").Default("3").Int()
	logLevel := cli.Flag("log-level", "Log level written to stderr.").Default("warn").Enum("trace", "debug", "info", "warn", "error")
	logFormat := cli.Flag("log-format", "Log format written to stderr. auto is pretty on a terminal, json otherwise.").Default("auto").Enum("auto", "json", "text", "pretty")

	if _, err := cli.Parse(args); err != nil {
		return nil, err
	}

	u, err := url.Parse(*sourceURL)
	switch {
	case err != nil:
		return nil, errors.WithMessage(err, "bad --source-url")
	case u.Scheme != "http" && u.Scheme != "https":
		return nil, errors.Errorf("--source-url must be http or https, got %q", *sourceURL)
	case !strings.HasPrefix(*sourcePath, "/"):
		return nil, errors.Errorf("--source-path must start with /, got %q", *sourcePath)
	case *timeout <= 0:
		return nil, errors.Errorf("--timeout must be positive")
	case *retries < 1 || *retries > 10:
		return nil, errors.Errorf("--retries must be between 1 and 10")
	}

	return &arguments{
		sourceURL:  *sourceURL,
		sourcePath: *sourcePath,
		timeout:    *timeout,
		retries:    *retries,
		logLevel:   *logLevel,
		logFormat:  *logFormat,
	}, nil
}

// resolveLogFormat picks the concrete format for auto.
func resolveLogFormat(format string, logOut io.Writer) string {
	if format != "auto" {
		return format
	}

	if f, ok := logOut.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "pretty"
	}

	return "json"
}

func (a *arguments) execute(ctx context.Context, in io.Reader, out, logOut io.Writer) error {
	logger := logging.NewWithWriter(&logging.Config{
		Level:   a.logLevel,
		Format:  resolveLogFormat(a.logFormat, logOut),
		Service: "quizctl",
		Version: Version,
	}, logOut)

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     a.sourceURL,
		ServiceName: "question-service",
		Timeout:     a.timeout,
		Retry: config.RetryConfig{
			MaxAttempts:     a.retries,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      config.DefaultClientRetryMultiplier,
			JitterFactor:    config.DefaultClientRetryJitterFactor,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   config.DefaultClientCircuitMaxFailures,
			Timeout:       30 * time.Second,
			HalfOpenLimit: config.DefaultClientCircuitHalfOpenLimit,
		},
		UserAgent: "quizctl/" + Version,
		Logger:    logger,
	})
	if err != nil {
		return errors.WithMessage(err, "could not create question client")
	}

	quiz := app.NewQuizController(app.QuizControllerConfig{
		Source: acl.NewQuestionClient(acl.QuestionClientConfig{
			Client: httpClient,
			Path:   a.sourcePath,
			Logger: logger,
		}),
		Logger:       logger,
		FetchTimeout: a.timeout,
	})
	defer quiz.Close()

	if err := terminal.NewPlayer(quiz, in, out, logger).Play(ctx); err != nil {
		return errors.WithMessage(err, "quiz ended")
	}

	return nil
}

func main() {
	args, err := parseArgs(newCLI(), os.Args[1:])
	if err != nil {
		kingpin.Fatalf("failed to parse arguments, %s, try --help", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = args.execute(ctx, os.Stdin, os.Stdout, os.Stderr)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Println("")
		kingpin.Fatalf("%s", err)
	}
}
