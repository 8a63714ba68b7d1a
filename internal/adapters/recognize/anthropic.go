package recognize

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
)

// AnthropicConfig configures the Anthropic Messages API recognizer.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int
	MaxEdge   int

	// HTTPClient overrides the SDK's client (tests).
	HTTPClient *http.Client
}

// Anthropic recognizes notecards with a Claude vision model.
type Anthropic struct {
	client    anthropic.Client
	model     string
	maxTokens int
	maxEdge   int
}

// NewAnthropic creates a recognizer backed by the Messages API.
// SDK retries are disabled; a failed call is reported once.
func NewAnthropic(cfg AnthropicConfig) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Anthropic{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxEdge:   cfg.MaxEdge,
	}
}

// Recognize implements ports.Recognizer.
func (a *Anthropic) Recognize(ctx context.Context, path string) (*domain.QuoteRecord, error) {
	img, err := LoadImage(path, a.maxEdge)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "sending image to anthropic",
		slog.String("model", a.model),
		slog.Int("image_bytes", len(img.Data)),
	)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: int64(a.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(img.MediaType, img.Base64()),
				anthropic.NewTextBlock(Directive),
			),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			logger.DebugContext(ctx, "anthropic API error", slog.Int("status_code", apiErr.StatusCode))
		}
		return nil, domain.NewRecognitionServiceError(ProviderAnthropic, err)
	}

	raw := firstText(message)
	logger.Log(ctx, logging.LevelTrace, "anthropic reply",
		slog.String("stop_reason", string(message.StopReason)),
		slog.String("text", raw),
	)

	return ParseReply(raw)
}

// Close implements Engine.
func (a *Anthropic) Close() error {
	return nil
}

// firstText returns the first text segment of the reply, or "".
func firstText(message *anthropic.Message) string {
	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}
