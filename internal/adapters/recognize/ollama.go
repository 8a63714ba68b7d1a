package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zetl/notecard-capture/internal/adapters/clients"
	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
)

const ollamaGeneratePath = "/api/generate"

// OllamaConfig configures a local Ollama recognizer.
type OllamaConfig struct {
	BaseURL   string
	Model     string
	MaxTokens int
	MaxEdge   int
	Timeout   time.Duration
	Transport http.RoundTripper
}

// ollamaRequest is the /api/generate request body.
type ollamaRequest struct {
	Model   string         `json:"model"`
	System  string         `json:"system"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format"`
	Options map[string]any `json:"options,omitempty"`
}

// ollamaResponse is the non-streaming /api/generate reply.
type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Ollama recognizes notecards with a vision model served by Ollama.
type Ollama struct {
	client    *clients.Client
	model     string
	maxTokens int
	maxEdge   int
}

// NewOllama creates a recognizer using the shared instrumented HTTP client.
func NewOllama(cfg OllamaConfig) (*Ollama, error) {
	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.BaseURL,
		ServiceName: ProviderOllama,
		Timeout:     cfg.Timeout,
		Transport:   cfg.Transport,
	})
	if err != nil {
		return nil, err
	}

	return &Ollama{client: client, model: cfg.Model, maxTokens: cfg.MaxTokens, maxEdge: cfg.MaxEdge}, nil
}

// Recognize implements ports.Recognizer.
func (o *Ollama) Recognize(ctx context.Context, path string) (*domain.QuoteRecord, error) {
	img, err := LoadImage(path, o.maxEdge)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(ollamaRequest{
		Model:   o.model,
		System:  SystemPrompt,
		Prompt:  Directive,
		Images:  []string{img.Base64()},
		Stream:  false,
		Format:  "json",
		Options: map[string]any{"num_predict": o.maxTokens},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding ollama request: %w", err)
	}

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "sending image to ollama",
		slog.String("model", o.model),
		slog.Int("image_bytes", len(img.Data)),
	)

	resp, err := o.client.Post(ctx, ollamaGeneratePath, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewRecognitionServiceError(ProviderOllama, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewRecognitionServiceError(ProviderOllama, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewRecognitionServiceError(ProviderOllama,
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var reply ollamaResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, domain.NewRecognitionServiceError(ProviderOllama, fmt.Errorf("decoding response: %w", err))
	}

	logger.Log(ctx, logging.LevelTrace, "ollama reply", slog.String("text", reply.Response))

	return ParseReply(stripFences(reply.Response))
}

// Close implements Engine.
func (o *Ollama) Close() error {
	return nil
}
