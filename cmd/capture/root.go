package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/zetl/notecard-capture/internal/adapters/capture"
	"github.com/zetl/notecard-capture/internal/adapters/clients/acl"
	httpadapter "github.com/zetl/notecard-capture/internal/adapters/http"
	"github.com/zetl/notecard-capture/internal/adapters/http/handlers"
	"github.com/zetl/notecard-capture/internal/adapters/recognize"
	"github.com/zetl/notecard-capture/internal/app"
	"github.com/zetl/notecard-capture/internal/platform/config"
	"github.com/zetl/notecard-capture/internal/platform/logging"
	"github.com/zetl/notecard-capture/internal/platform/telemetry"
	"github.com/zetl/notecard-capture/internal/ports"
)

// telemetryShutdownTimeout bounds the final span and metric flush.
const telemetryShutdownTimeout = 5 * time.Second

// errReported marks a failure the pipeline has already printed.
var errReported = errors.New("run failed")

type options struct {
	loop    bool
	profile string
}

// execute runs the root command and returns the process exit code.
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}

	return 0
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Photograph a notecard and post its quote to Zetl",
		Long: `capture takes a still with fswebcam, asks a vision model to transcribe the
quote, author, book, tags and notes on the card, and posts the result to the
Zetl device endpoint.

Configuration comes from ZETL_URL, API_TOKEN, ANTHROPIC_API_KEY and
WEBCAM_DEVICE, from configs/<profile>.yaml, and from APP_* variables
(APP_RECOGNIZER__PROVIDER=ollama, for example).`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildTime),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.loop, "loop", false, "capture a card each time Enter is pressed, until Ctrl+C")
	cmd.Flags().StringVar(&opts.profile, "profile", os.Getenv("APP_ENVIRONMENT"), "configuration profile to load from configs/<profile>.yaml")

	return cmd
}

func run(ctx context.Context, cmd *cobra.Command, opts options) error {
	// 1. Load and validate configuration (fail fast)
	cfg, err := config.Load(opts.profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// 2. Initialize logging; stdout belongs to the progress lines
	logger := logging.NewWithWriter(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	}, cmd.ErrOrStderr())
	logging.SetDefault(logger)
	ctx = logging.WithContext(ctx, logger)

	logger.Debug("starting",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("recognizer", cfg.Recognizer.Provider),
		slog.Bool("loop", opts.loop),
	)

	// 3. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()

		if shutdownErr := telProvider.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 4. Build the adapters behind the ports
	capturer := capture.NewCapturer(capture.Config{
		Command:     cfg.Capture.Command,
		DevicePath:  cfg.Capture.DevicePath(),
		Resolution:  cfg.Capture.Resolution,
		JPEGQuality: cfg.Capture.JPEGQuality,
		Delay:       cfg.Capture.Delay,
		Banner:      cfg.Capture.Banner,
		Timeout:     cfg.Capture.Timeout,
	})

	recognizer, err := recognize.New(ctx, recognizerConfig(cfg))
	if err != nil {
		return fmt.Errorf("creating recognizer: %w", err)
	}
	defer func() { _ = recognizer.Close() }()

	submitter, err := acl.NewSubmitter(acl.SubmitterConfig{
		BaseURL:  cfg.Zetl.URL,
		APIToken: cfg.Zetl.APIToken,
		Timeout:  cfg.Zetl.Timeout,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating submitter: %w", err)
	}

	// 5. Create the pipeline
	registry := prometheus.NewRegistry()
	pipeline := app.NewPipeline(&app.PipelineConfig{
		Capturer:   capturer,
		Recognizer: recognizer,
		Submitter:  submitter,
		Out:        cmd.OutOrStdout(),
		ErrOut:     cmd.ErrOrStderr(),
		Logger:     logger,
		Metrics:    app.NewMetrics(registry),
	})

	if !opts.loop {
		if _, err := pipeline.RunOnce(ctx); err != nil {
			return errReported
		}
		return nil
	}

	// 6. Repeat mode, with the optional status server alongside
	if cfg.Server.Enabled {
		healthRegistry := ports.NewHealthRegistry(ports.WithCheckTimeout(cfg.Zetl.Timeout))
		for _, checker := range []ports.HealthChecker{capturer, submitter} {
			if err := healthRegistry.Register(checker); err != nil {
				return fmt.Errorf("registering %s health check: %w", checker.Name(), err)
			}
		}

		stopServer := startStatusServer(ctx, cfg, logger, healthRegistry, registry)
		defer stopServer()
	}

	loop := app.NewLoop(&app.LoopConfig{
		Runner: pipeline,
		In:     cmd.InOrStdin(),
		Out:    cmd.OutOrStdout(),
		Logger: logger,
	})

	return loop.Run(ctx)
}

// recognizerConfig maps the recognizer section onto the engine factory.
func recognizerConfig(cfg *config.Config) recognize.Config {
	rc := cfg.Recognizer

	return recognize.Config{
		Provider:  rc.Provider,
		MaxTokens: rc.MaxTokens,
		MaxEdge:   rc.MaxEdge,
		Timeout:   rc.Timeout,
		Anthropic: recognize.AnthropicConfig{
			APIKey:  rc.Anthropic.APIKey,
			Model:   rc.Anthropic.Model,
			BaseURL: rc.Anthropic.BaseURL,
		},
		Vertex: recognize.VertexConfig{
			Project:         rc.Vertex.Project,
			Region:          rc.Vertex.Region,
			Model:           rc.Vertex.Model,
			CredentialsFile: rc.Vertex.CredentialsFile,
		},
		Ollama: recognize.OllamaConfig{
			BaseURL: rc.Ollama.BaseURL,
			Model:   rc.Ollama.Model,
		},
	}
}

// startStatusServer serves /-/ endpoints until the returned stop function runs.
// A listen failure is logged; captures continue without the server.
func startStatusServer(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	health ports.HealthRegistry,
	registry *prometheus.Registry,
) func() {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	server := httpadapter.New(&cfg.Server, logger)
	httpadapter.SetupRouter(server.Engine(), httpadapter.RouterConfig{
		Logger:        logger,
		ServiceName:   cfg.App.Name,
		HealthHandler: handlers.NewHealthHandler(health, handlers.NewBuildInfo(Version, Commit, BuildTime), registry),
	})

	serverErr := server.Start()
	go func() {
		if err, ok := <-serverErr; ok && err != nil {
			logger.Error("status server failed", slog.Any("error", err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("status server shutdown error", slog.Any("error", err))
		}
	}
}
