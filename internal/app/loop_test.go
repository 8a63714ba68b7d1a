package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runnerFunc adapts a function to the Runner interface.
type runnerFunc func(ctx context.Context) (*RunResult, error)

func (f runnerFunc) RunOnce(ctx context.Context) (*RunResult, error) {
	return f(ctx)
}

// countingRunner returns the queued errors in order, then successes.
type countingRunner struct {
	mu    sync.Mutex
	calls int
	errs  []error
}

func (r *countingRunner) RunOnce(context.Context) (*RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls++
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		return nil, err
	}

	return &RunResult{QuoteID: "1"}, nil
}

func (r *countingRunner) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestNewLoop_Panics(t *testing.T) {
	assert.Panics(t, func() { NewLoop(nil) })
	assert.Panics(t, func() { NewLoop(&LoopConfig{Runner: &countingRunner{}}) })
	assert.Panics(t, func() { NewLoop(&LoopConfig{In: strings.NewReader("")}) })
}

func TestLoop_Run_EOF(t *testing.T) {
	runner := &countingRunner{}
	out := &bytes.Buffer{}

	loop := NewLoop(&LoopConfig{
		Runner: runner,
		In:     strings.NewReader("\n\n"),
		Out:    out,
		Logger: discardLogger(),
	})

	err := loop.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, runner.Calls())

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "Loop mode — press Enter to capture, Ctrl+C to quit.\n"))
	assert.Equal(t, 3, strings.Count(got, "\nPress Enter to capture..."))
	assert.True(t, strings.HasSuffix(got, "\nExiting.\n"))
}

func TestLoop_Run_EmptyInput(t *testing.T) {
	runner := &countingRunner{}
	out := &bytes.Buffer{}

	loop := NewLoop(&LoopConfig{Runner: runner, In: strings.NewReader(""), Out: out})

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 0, runner.Calls())
	assert.Contains(t, out.String(), "Exiting.")
}

func TestLoop_Run_ContinuesAfterFailure(t *testing.T) {
	runner := &countingRunner{errs: []error{
		&StageError{Stage: StageCapture, Cause: errors.New("no camera")},
		&StageError{Stage: StageSubmit, Cause: errors.New("HTTP 500")},
	}}

	loop := NewLoop(&LoopConfig{
		Runner: runner,
		In:     strings.NewReader("\n\n\n"),
		Logger: discardLogger(),
	})

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, 3, runner.Calls(), "a failed run must not end the loop")
}

func TestLoop_Run_Canceled(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	runner := &countingRunner{}
	out := &safeBuffer{}

	loop := NewLoop(&LoopConfig{Runner: runner, In: pr, Out: out, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	_, err := pw.Write([]byte("\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return runner.Calls() == 1 }, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after cancellation")
	}

	assert.Equal(t, 1, runner.Calls())
	assert.True(t, strings.HasSuffix(out.String(), "\nExiting.\n"))
}

func TestLoop_Run_CanceledDuringRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	runner := runnerFunc(func(ctx context.Context) (*RunResult, error) {
		calls++
		cancel()
		return nil, &StageError{Stage: StageRecognize, Cause: ctx.Err()}
	})

	loop := NewLoop(&LoopConfig{Runner: runner, In: strings.NewReader("\n\n\n")})

	require.NoError(t, loop.Run(ctx))
	assert.Equal(t, 1, calls, "no further runs after interrupt")
}

// safeBuffer is a bytes.Buffer guarded for concurrent use.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
