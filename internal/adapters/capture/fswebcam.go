// Package capture acquires notecard photos by running an external
// still-image capture tool against a V4L2 device.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
)

// Config describes the capture command. Zero values are not defaulted here;
// the config package supplies them.
type Config struct {
	Command     string
	DevicePath  string
	Resolution  string
	JPEGQuality int
	Delay       time.Duration
	Banner      bool
	Timeout     time.Duration
}

// Capturer runs fswebcam (or a compatible tool) once per capture.
type Capturer struct {
	cfg Config
}

// NewCapturer creates a capturer for the given device settings.
func NewCapturer(cfg Config) *Capturer {
	return &Capturer{cfg: cfg}
}

// Args returns the command line arguments for writing a frame to path.
func (c *Capturer) Args(path string) []string {
	args := []string{
		"-d", c.cfg.DevicePath,
		"-r", c.cfg.Resolution,
		"--jpeg", strconv.Itoa(c.cfg.JPEGQuality),
		"-D", strconv.Itoa(delaySeconds(c.cfg.Delay)),
	}
	if !c.cfg.Banner {
		args = append(args, "--no-banner")
	}
	return append(args, path)
}

// delaySeconds converts d to fswebcam's whole-second -D value, rounding up
// so a sub-second delay still waits.
func delaySeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// Capture writes one JPEG frame to path.
// A non-zero exit or a missing binary yields a *domain.CaptureError carrying
// the tool's trimmed stderr.
func (c *Capturer) Capture(ctx context.Context, path string) error {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	args := c.Args(path)
	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "running capture command",
		slog.String("command", c.cfg.Command),
		slog.Any("args", args),
	)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.cfg.Command, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		output := strings.TrimSpace(stderr.String())
		if output == "" && ctx.Err() != nil {
			output = ctx.Err().Error()
		}
		logger.DebugContext(ctx, "capture command failed",
			slog.String("error", err.Error()),
			slog.String("stderr", output),
		)
		return domain.NewCaptureError(c.cfg.Command, output, err)
	}

	// A zero exit that left no frame behind is still a failed capture.
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		output := strings.TrimSpace(stderr.String())
		if output == "" {
			output = "no image written to " + path
		}
		return domain.NewCaptureError(c.cfg.Command, output, err)
	}

	logger.DebugContext(ctx, "capture complete",
		slog.Int64("bytes", info.Size()),
		slog.Duration("duration", time.Since(start)),
	)

	return nil
}

// Name implements ports.HealthChecker.
func (c *Capturer) Name() string {
	return "camera"
}

// Check implements ports.HealthChecker. It reports whether the device node
// exists and the capture tool is on PATH; it never opens the device.
func (c *Capturer) Check(_ context.Context) error {
	if _, err := os.Stat(c.cfg.DevicePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("device %s not found", c.cfg.DevicePath)
		}
		return fmt.Errorf("device %s: %w", c.cfg.DevicePath, err)
	}

	if _, err := exec.LookPath(c.cfg.Command); err != nil {
		return fmt.Errorf("capture command %q: %w", c.cfg.Command, err)
	}

	return nil
}
