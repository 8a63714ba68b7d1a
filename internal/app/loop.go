package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
)

// Runner runs the pipeline once.
type Runner interface {
	RunOnce(ctx context.Context) (*RunResult, error)
}

// LoopConfig holds the loop's dependencies.
type LoopConfig struct {
	Runner Runner

	// In supplies operator triggers, one per line. Usually os.Stdin.
	In io.Reader

	// Out receives the banner and prompts. Defaults to io.Discard.
	Out io.Writer

	Logger *slog.Logger
}

// Loop triggers a pipeline run each time the operator presses Enter.
type Loop struct {
	runner Runner
	in     io.Reader
	out    io.Writer
	logger *slog.Logger
}

// NewLoop creates a loop. Panics if Runner or In is nil.
func NewLoop(cfg *LoopConfig) *Loop {
	if cfg == nil || cfg.Runner == nil || cfg.In == nil {
		panic("app: NewLoop requires a Runner and an input reader")
	}

	l := &Loop{
		runner: cfg.Runner,
		in:     cfg.In,
		out:    cfg.Out,
		logger: cfg.Logger,
	}
	if l.out == nil {
		l.out = io.Discard
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}

// Run prompts, waits for a line and runs the pipeline, until ctx is canceled
// or the input reaches end of file. A failed run does not end the loop; the
// pipeline has already reported it. Run always returns nil.
func (l *Loop) Run(ctx context.Context) error {
	fmt.Fprintln(l.out, "Loop mode — press Enter to capture, Ctrl+C to quit.")

	lines := l.readLines(ctx)
	runs, failures := 0, 0

	for {
		fmt.Fprint(l.out, "\nPress Enter to capture...")

		select {
		case <-ctx.Done():
			return l.exit(ctx, runs, failures)
		case _, ok := <-lines:
			if !ok {
				return l.exit(ctx, runs, failures)
			}
		}

		// A cancellation racing with a trigger wins.
		if ctx.Err() != nil {
			return l.exit(ctx, runs, failures)
		}

		runs++
		if _, err := l.runner.RunOnce(ctx); err != nil {
			failures++
		}
	}
}

func (l *Loop) exit(ctx context.Context, runs, failures int) error {
	fmt.Fprintln(l.out, "\nExiting.")
	l.logger.InfoContext(ctx, "loop stopped",
		slog.Int("runs", runs),
		slog.Int("failures", failures),
	)

	return nil
}

// readLines forwards one signal per input line and closes the channel at end
// of input. The reader goroutine stays blocked in Read after ctx is canceled
// until the next line or EOF arrives; on a terminal that is process exit.
func (l *Loop) readLines(ctx context.Context) <-chan struct{} {
	lines := make(chan struct{})

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(l.in)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			l.logger.WarnContext(ctx, "reading input failed", slog.Any("error", err))
		}
	}()

	return lines
}
