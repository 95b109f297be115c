package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"quiz-runner/internal/app"
	"quiz-runner/internal/auth"
	"quiz-runner/internal/config"
	"quiz-runner/internal/domain"
	"quiz-runner/internal/infra/api"
	"quiz-runner/internal/infra/memory"
	"quiz-runner/internal/trig"
)

type playOptions struct {
	mode      string
	seconds   int
	questions int
	source    string
	server    string
	token     string
	judge     string
}

// NewPlayCmd runs a quiz session in the terminal.
func NewPlayCmd(configPath *string) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Take a timed quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			opts = opts.withDefaults(cfg)
			quizCfg, err := opts.sessionConfig()
			if err != nil {
				return err
			}
			source, cred, err := opts.buildSource()
			if err != nil {
				return err
			}
			_, _, err = runPlay(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), source, cred, quizCfg)
			return err
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "assignment (fixed length) or practice (open ended)")
	cmd.Flags().IntVar(&opts.seconds, "seconds", 0, "seconds per question")
	cmd.Flags().IntVar(&opts.questions, "questions", 0, "number of questions in assignment mode")
	cmd.Flags().StringVar(&opts.source, "source", "offline", "question source: offline or remote")
	cmd.Flags().StringVar(&opts.server, "server", "", "quiz API base url for the remote source")
	cmd.Flags().StringVar(&opts.token, "token", "", "bearer token for the remote source")
	cmd.Flags().StringVar(&opts.judge, "judge", "", "who judges remote answers: server or client")
	return cmd
}

func (o playOptions) withDefaults(cfg config.Config) playOptions {
	if o.mode == "" {
		o.mode = cfg.Quiz.Mode
	}
	if o.seconds == 0 {
		o.seconds = cfg.Quiz.SecondsPerQuestion
	}
	if o.questions == 0 {
		o.questions = cfg.Quiz.TotalQuestions
	}
	if o.server == "" {
		o.server = cfg.Source.Server
	}
	if o.token == "" {
		o.token = cfg.Source.Token
	}
	if o.judge == "" {
		o.judge = cfg.Source.Judge
	}
	return o
}

func (o playOptions) sessionConfig() (app.Config, error) {
	mode, err := domain.ParseMode(o.mode)
	if err != nil {
		return app.Config{}, err
	}
	cfg := app.Config{Mode: mode, SecondsPerQuestion: o.seconds, TotalQuestions: o.questions}
	return cfg, cfg.Validate()
}

func (o playOptions) buildSource() (app.QuestionSource, domain.Credential, error) {
	switch o.source {
	case "offline":
		return memory.NewGeneratorSource(trig.NewGenerator()), domain.Credential{Subject: "local"}, nil
	case "remote":
	default:
		return nil, domain.Credential{}, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidConfiguration, o.source)
	}

	cred := domain.Credential{Token: o.token}
	if inspected, err := auth.Inspect(o.token); err == nil {
		cred = inspected
	}
	client := api.NewClient(o.server, nil)
	switch o.judge {
	case "server":
		return client, cred, nil
	case "client":
		return client.Practice(), cred, nil
	default:
		return nil, domain.Credential{}, fmt.Errorf("%w: unknown judge %q", domain.ErrInvalidConfiguration, o.judge)
	}
}

// runPlay drives one session from line input until it terminates, the user
// quits or input ends. It returns the result when the session completed.
func runPlay(ctx context.Context, in io.Reader, out io.Writer, source app.QuestionSource, cred domain.Credential, cfg app.Config, opts ...app.Option) (domain.Result, bool, error) {
	w := &syncWriter{w: out}
	screen := &terminal{out: w, total: cfg.TotalQuestions}
	results := memory.NewResultLog()
	runner := app.NewRunner(source, results, append([]app.Option{app.WithObserver(screen)}, opts...)...)

	fmt.Fprintln(w, "answer with an option's text or its number; n next, e end, r retry, q quit")
	if err := runner.Start(ctx, cred, cfg); err != nil {
		return domain.Result{}, false, err
	}

	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

	for {
		select {
		case <-ctx.Done():
			runner.Abandon()
			return domain.Result{}, false, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				runner.Abandon()
				fmt.Fprintln(w, "input closed, session abandoned")
				return domain.Result{}, false, nil
			}
			command, err := parseCommand(line, runner.Snapshot().Question)
			if err != nil {
				fmt.Fprintf(w, "! %v\n", err)
				continue
			}
			if command.kind == commandQuit {
				runner.Abandon()
				fmt.Fprintln(w, "session abandoned")
				return domain.Result{}, false, nil
			}
			if err := apply(runner, command); err != nil {
				fmt.Fprintf(w, "! %v\n", err)
			}
			if runner.Snapshot().State == app.StateTerminated {
				all := results.Results()
				return all[len(all)-1], true, nil
			}
		}
	}
}

// readLines scans in on its own goroutine. The channel closes at EOF or once
// done is closed.
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

type commandKind int

const (
	commandAnswer commandKind = iota
	commandNext
	commandEnd
	commandRetry
	commandQuit
)

type playCommand struct {
	kind   commandKind
	choice string
}

var errNothingToAnswer = errors.New("no question to answer yet")

// parseCommand maps a line to a command. Text equal to an option selects it;
// otherwise a number selects options 1..n.
func parseCommand(line string, q *domain.Question) (playCommand, error) {
	text := strings.TrimSpace(line)
	switch strings.ToLower(text) {
	case "n", "next":
		return playCommand{kind: commandNext}, nil
	case "e", "end":
		return playCommand{kind: commandEnd}, nil
	case "r", "retry":
		return playCommand{kind: commandRetry}, nil
	case "q", "quit":
		return playCommand{kind: commandQuit}, nil
	case "":
		return playCommand{}, errors.New("empty input")
	}
	if q == nil {
		return playCommand{}, errNothingToAnswer
	}
	if q.HasOption(text) {
		return playCommand{kind: commandAnswer, choice: text}, nil
	}
	if n, err := strconv.Atoi(text); err == nil && n >= 1 && n <= len(q.Options) {
		return playCommand{kind: commandAnswer, choice: q.Options[n-1]}, nil
	}
	return playCommand{}, fmt.Errorf("%w: %q", domain.ErrInvalidChoice, text)
}

func apply(runner *app.Runner, command playCommand) error {
	switch command.kind {
	case commandAnswer:
		return runner.Submit(command.choice)
	case commandNext:
		return runner.Next()
	case commandEnd:
		return runner.End()
	case commandRetry:
		return runner.Retry()
	}
	return nil
}

// terminal renders engine events as text.
type terminal struct {
	out   io.Writer
	total int
}

func (t *terminal) OnEvent(ev app.Event) {
	switch ev.Kind {
	case app.EventQuestion:
		if t.total > 0 {
			fmt.Fprintf(t.out, "\nQuestion %d/%d (%ds): %s\n", ev.Index, t.total, ev.Remaining, ev.Question.Prompt)
		} else {
			fmt.Fprintf(t.out, "\nQuestion %d (%ds): %s\n", ev.Index, ev.Remaining, ev.Question.Prompt)
		}
		for i, option := range ev.Question.Options {
			fmt.Fprintf(t.out, "  %d) %s\n", i+1, option)
		}
	case app.EventTick:
		if ev.Remaining <= 3 || ev.Remaining%5 == 0 {
			fmt.Fprintf(t.out, "  %ds left\n", ev.Remaining)
		}
	case app.EventOutcome:
		switch {
		case ev.Outcome.TimedOut:
			fmt.Fprint(t.out, "time's up")
		case ev.Outcome.IsCorrect:
			fmt.Fprintf(t.out, "correct (%ds)", ev.Outcome.TimeConsumedSeconds)
		default:
			fmt.Fprintf(t.out, "wrong (%ds)", ev.Outcome.TimeConsumedSeconds)
		}
		if ev.CorrectAnswer != "" && !ev.Outcome.IsCorrect {
			fmt.Fprintf(t.out, ", answer: %s", ev.CorrectAnswer)
		}
		fmt.Fprintln(t.out, " [n]ext or [e]nd")
	case app.EventFault:
		fmt.Fprintf(t.out, "! %v\n", ev.Err)
		if ev.State == app.StateLoading && !errors.Is(ev.Err, domain.ErrUnauthorized) {
			fmt.Fprintln(t.out, "  [r]etry or [q]uit")
		}
	case app.EventResult:
		res := ev.Result
		fmt.Fprintf(t.out, "\nSession complete: %d/%d correct, accuracy %.1f%%, average time %.1fs\n",
			res.CorrectAnswers, res.TotalQuestions, res.Accuracy(), res.AverageTime())
	}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
