// Package config provides configuration loading and management using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultCaptureCommand is the still-image capture tool.
	DefaultCaptureCommand = "fswebcam"

	// DefaultCaptureDevice selects /dev/video0.
	DefaultCaptureDevice = "0"

	// DefaultJPEGQuality is the capture JPEG quality.
	DefaultJPEGQuality = 95

	// DefaultMaxTokens bounds the inference reply length.
	DefaultMaxTokens = 512

	// DefaultSubmitTimeout is the fixed timeout for the Zetl POST.
	DefaultSubmitTimeout = 10 * time.Second

	// DefaultStatusPort is the port of the opt-in status server.
	DefaultStatusPort = 9090

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 10

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28
)

// Recognizer providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"
	ProviderOllama    = "ollama"
)

// legacyEnv maps the unprefixed device variables to config keys.
var legacyEnv = map[string]string{
	"ZETL_URL":          "zetl.url",
	"API_TOKEN":         "zetl.api_token",
	"ANTHROPIC_API_KEY": "recognizer.anthropic.api_key",
	"WEBCAM_DEVICE":     "capture.device",
}

// Config is the root configuration structure.
// It is built once at startup and passed by pointer; nothing mutates it after Load.
type Config struct {
	App        AppConfig        `koanf:"app"        validate:"required"`
	Log        LogConfig        `koanf:"log"        validate:"required"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Capture    CaptureConfig    `koanf:"capture"    validate:"required"`
	Recognizer RecognizerConfig `koanf:"recognizer" validate:"required"`
	Zetl       ZetlConfig       `koanf:"zetl"       validate:"required"`
	Server     ServerConfig     `koanf:"server"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev pi prod test"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// CaptureConfig describes the external capture command.
type CaptureConfig struct {
	Command      string        `koanf:"command"       validate:"required"`
	Device       string        `koanf:"device"        validate:"required,numeric"`
	DevicePrefix string        `koanf:"device_prefix" validate:"required"`
	Resolution   string        `koanf:"resolution"    validate:"required"`
	JPEGQuality  int           `koanf:"jpeg_quality"  validate:"min=1,max=100"`
	Delay        time.Duration `koanf:"delay"         validate:"min=0"`
	Banner       bool          `koanf:"banner"`
	Timeout      time.Duration `koanf:"timeout"       validate:"min=0"`
}

// DevicePath returns the device node, e.g. /dev/video0.
func (c CaptureConfig) DevicePath() string {
	return c.DevicePrefix + c.Device
}

// RecognizerConfig selects and configures the inference backend.
type RecognizerConfig struct {
	Provider  string          `koanf:"provider"   validate:"required,oneof=anthropic vertex ollama"`
	MaxTokens int             `koanf:"max_tokens" validate:"required,min=64,max=8192"`
	MaxEdge   int             `koanf:"max_edge"   validate:"min=0"`
	Timeout   time.Duration   `koanf:"timeout"    validate:"min=0"`
	Anthropic AnthropicConfig `koanf:"anthropic"`
	Vertex    VertexConfig    `koanf:"vertex"`
	Ollama    OllamaConfig    `koanf:"ollama"`
}

// AnthropicConfig configures the Anthropic Messages API backend.
type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"  validate:"required_if=Enabled true"`
	Model   string `koanf:"model"    validate:"required"`
	BaseURL string `koanf:"base_url" validate:"omitempty,url"`
	Enabled bool   `koanf:"-"`
}

// VertexConfig configures the Gemini on Vertex AI backend.
type VertexConfig struct {
	Project         string `koanf:"project"          validate:"required_if=Enabled true"`
	Region          string `koanf:"region"           validate:"required_if=Enabled true"`
	Model           string `koanf:"model"            validate:"required"`
	CredentialsFile string `koanf:"credentials_file"`
	Enabled         bool   `koanf:"-"`
}

// OllamaConfig configures a local Ollama backend.
type OllamaConfig struct {
	BaseURL string `koanf:"base_url" validate:"required,url"`
	Model   string `koanf:"model"    validate:"required"`
}

// ZetlConfig describes the quote submission endpoint.
type ZetlConfig struct {
	URL      string        `koanf:"url"       validate:"required,url"`
	APIToken string        `koanf:"api_token" validate:"required"`
	Timeout  time.Duration `koanf:"timeout"   validate:"required,min=100ms"`
}

// ServerConfig contains the opt-in status server settings.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Port            int           `koanf:"port"             validate:"required_if=Enabled true,omitempty,min=1,max=65535"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "notecard-capture",
		"app.version":     "dev",
		"app.environment": "local",

		"log.level":            "warn",
		"log.format":           "pretty",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/capture.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "notecard-capture",
		"telemetry.sampling_rate": 1.0,

		"capture.command":       DefaultCaptureCommand,
		"capture.device":        DefaultCaptureDevice,
		"capture.device_prefix": "/dev/video",
		"capture.resolution":    "1920x1080",
		"capture.jpeg_quality":  DefaultJPEGQuality,
		"capture.delay":         "1s",
		"capture.banner":        false,
		"capture.timeout":       "0s",

		"recognizer.provider":          ProviderAnthropic,
		"recognizer.max_tokens":        DefaultMaxTokens,
		"recognizer.max_edge":          0,
		"recognizer.timeout":           "0s",
		"recognizer.anthropic.model":   "claude-haiku-4-5-20251001",
		"recognizer.anthropic.api_key": "",
		"recognizer.vertex.model":      "gemini-2.0-flash",
		"recognizer.vertex.region":     "us-central1",
		"recognizer.ollama.base_url":   "http://localhost:11434",
		"recognizer.ollama.model":      "llama3.2-vision",

		"zetl.timeout": DefaultSubmitTimeout.String(),

		"server.enabled":          false,
		"server.host":             "127.0.0.1",
		"server.port":             DefaultStatusPort,
		"server.read_timeout":     "5s",
		"server.write_timeout":    "10s",
		"server.shutdown_timeout": "5s",
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (ZETL_URL, API_TOKEN, ANTHROPIC_API_KEY,
//     WEBCAM_DEVICE, and APP_ prefixed keys)
//  2. .env file in the working directory (never overrides the real environment)
//  3. Profile config file (configs/{profile}.yaml)
//  4. Base config file (configs/base.yaml)
//  5. Default values
func Load(profile string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")

	// 1. Load defaults
	err := k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// 2. Load base config file if it exists
	err = loadFileIfExists(k, "configs/base.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	// 3. Load profile config file if it exists
	if profile != "" {
		profilePath := fmt.Sprintf("configs/%s.yaml", profile)

		err := loadFileIfExists(k, profilePath)
		if err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	// 4. Load environment variables
	err = k.Load(env.Provider("", ".", envKey), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.finalize()

	return &cfg, nil
}

// envKey maps an environment variable name to a config key.
// Variables that are neither legacy names nor APP_ prefixed are ignored.
func envKey(s string) string {
	if key, ok := legacyEnv[s]; ok {
		return key
	}

	if rest, ok := strings.CutPrefix(s, "APP_"); ok && rest != "" {
		return strings.ReplaceAll(strings.ToLower(rest), "__", ".")
	}

	return ""
}

// finalize applies derived values that no provider can express.
func (c *Config) finalize() {
	c.Zetl.URL = strings.TrimRight(c.Zetl.URL, "/")
	c.Recognizer.Anthropic.Enabled = c.Recognizer.Provider == ProviderAnthropic
	c.Recognizer.Vertex.Enabled = c.Recognizer.Provider == ProviderVertex
}

// loadDotEnv loads a dotenv file into the process environment if it exists.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return godotenv.Load(path)
}

// loadFileIfExists loads a YAML config file if it exists.
// Returns nil if the file doesn't exist, error only for parse/read failures.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil // File doesn't exist, that's fine
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
