// Package app contains the capture pipeline that turns one photographed
// notecard into a quote on the Zetl server.
//
// The pipeline depends only on the ports package: the camera, the vision
// model and the Zetl client are injected by cmd/capture.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
	"github.com/zetl/notecard-capture/internal/platform/telemetry"
	"github.com/zetl/notecard-capture/internal/ports"
)

// MissingID is printed in place of the quote ID when the server omits it.
const MissingID = "?"

// imagePattern is the os.CreateTemp pattern for captured frames.
const imagePattern = "notecard-*.jpg"

// RunResult describes one successful pipeline run.
type RunResult struct {
	RunID     string
	ImagePath string
	Record    *domain.QuoteRecord
	Receipt   *domain.SubmissionReceipt
	QuoteID   string
	Duration  time.Duration
}

// PipelineConfig holds the pipeline's dependencies.
// Capturer, Recognizer and Submitter are required.
type PipelineConfig struct {
	Capturer   ports.Capturer
	Recognizer ports.Recognizer
	Submitter  ports.Submitter

	// Out receives the progress lines. Defaults to io.Discard.
	Out io.Writer

	// ErrOut receives the "Error: <message>" line of a failed run.
	// Defaults to io.Discard.
	ErrOut io.Writer

	Logger  *slog.Logger
	Metrics *Metrics

	// TempDir is where frames are written. Empty means os.TempDir().
	TempDir string

	// NewRunID generates run IDs. Defaults to uuid.NewString.
	NewRunID func() string
}

// Pipeline runs capture, recognition, validation and submission for one card.
type Pipeline struct {
	capturer   ports.Capturer
	recognizer ports.Recognizer
	submitter  ports.Submitter
	out        io.Writer
	errOut     io.Writer
	logger     *slog.Logger
	metrics    *Metrics
	tempDir    string
	newRunID   func() string
}

// NewPipeline creates a pipeline. Panics if a required port is nil.
func NewPipeline(cfg *PipelineConfig) *Pipeline {
	if cfg == nil || cfg.Capturer == nil || cfg.Recognizer == nil || cfg.Submitter == nil {
		panic("app: NewPipeline requires a Capturer, Recognizer and Submitter")
	}

	p := &Pipeline{
		capturer:   cfg.Capturer,
		recognizer: cfg.Recognizer,
		submitter:  cfg.Submitter,
		out:        cfg.Out,
		errOut:     cfg.ErrOut,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tempDir:    cfg.TempDir,
		newRunID:   cfg.NewRunID,
	}

	if p.out == nil {
		p.out = io.Discard
	}
	if p.errOut == nil {
		p.errOut = io.Discard
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.newRunID == nil {
		p.newRunID = uuid.NewString
	}

	return p
}

// RunOnce captures, recognizes and submits a single notecard.
//
// On failure it prints "Error: <message>" to the error writer and returns a
// *StageError naming the failing stage. The captured frame is removed on
// every path. A run interrupted by ctx cancellation returns ctx's error
// wrapped in the stage it interrupted and prints nothing.
func (p *Pipeline) RunOnce(ctx context.Context) (*RunResult, error) {
	runID := p.newRunID()
	ctx = logging.WithContext(ctx, p.logger)
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	ctx, span := telemetry.Tracer().Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run.id", runID)),
	)
	defer span.End()

	start := time.Now()
	result, err := p.run(ctx, runID)
	duration := time.Since(start)

	p.metrics.observeRun(err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		if ctx.Err() != nil {
			logger.InfoContext(ctx, "run interrupted", slog.Duration("duration", duration))
			return nil, err
		}

		// Below the default level: the Error: line is the only stderr output.
		stage, _ := StageOf(err)
		logger.InfoContext(ctx, "run failed",
			slog.String("stage", string(stage)),
			slog.Duration("duration", duration),
			slog.Any("error", err),
		)
		fmt.Fprintf(p.errOut, "Error: %s\n", err.Error())

		return nil, err
	}

	result.Duration = duration
	span.SetAttributes(attribute.String("quote.id", result.QuoteID))
	logger.InfoContext(ctx, "run completed",
		slog.String("quote_id", result.QuoteID),
		slog.Duration("duration", duration),
	)

	return result, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) (*RunResult, error) {
	path, err := p.reserveImage()
	if err != nil {
		return nil, newStageError(StageCapture, err)
	}
	defer p.removeImage(ctx, path)

	result := &RunResult{RunID: runID, ImagePath: path}

	fmt.Fprintln(p.out, "Capturing image...")
	err = p.stage(ctx, StageCapture, func(ctx context.Context) error {
		return p.capturer.Capture(ctx, path)
	})
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(p.out, "  Saved to %s\n", path)

	fmt.Fprintln(p.out, "Running OCR...")
	err = p.stage(ctx, StageRecognize, func(ctx context.Context) error {
		record, err := p.recognizer.Recognize(ctx, path)
		if err != nil {
			return err
		}
		if record == nil {
			return domain.NewValidationError("", "recognizer returned no record")
		}
		record.Normalize()
		result.Record = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	extracted, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		return nil, newStageError(StageRecognize, fmt.Errorf("encoding record: %w", err))
	}
	fmt.Fprintf(p.out, "  Extracted: %s\n", extracted)

	err = p.stage(ctx, StageValidate, func(context.Context) error {
		return result.Record.Validate()
	})
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(p.out, "Posting to Zetl...")
	err = p.stage(ctx, StageSubmit, func(ctx context.Context) error {
		receipt, err := p.submitter.Submit(ctx, result.Record)
		result.Receipt = receipt
		return err
	})
	if err != nil {
		return nil, err
	}

	id, ok := result.Receipt.ID()
	if !ok {
		id = MissingID
	}
	result.QuoteID = id
	fmt.Fprintf(p.out, "  Success: quote ID %s created\n", id)

	return result, nil
}

// stage runs fn inside a span, records its duration and wraps its error.
func (p *Pipeline) stage(ctx context.Context, stage Stage, fn func(context.Context) error) error {
	ctx, span := telemetry.Tracer().Start(ctx, "pipeline."+string(stage))
	defer span.End()

	logger := logging.FromContext(ctx).With(slog.String("stage", string(stage)))
	logger.DebugContext(ctx, "stage started")

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	p.metrics.observeStage(stage, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.DebugContext(ctx, "stage failed", slog.Duration("duration", elapsed))

		return newStageError(stage, err)
	}

	logger.DebugContext(ctx, "stage completed", slog.Duration("duration", elapsed))

	return nil
}

// reserveImage creates an empty, uniquely named file for the frame.
func (p *Pipeline) reserveImage() (string, error) {
	f, err := os.CreateTemp(p.tempDir, imagePattern)
	if err != nil {
		return "", fmt.Errorf("creating image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("creating image file: %w", err)
	}

	return f.Name(), nil
}

func (p *Pipeline) removeImage(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).WarnContext(ctx, "failed to remove image",
			slog.String("path", path),
			slog.Any("error", err),
		)
	}
}
