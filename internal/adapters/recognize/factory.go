// Package recognize extracts quote records from notecard photos with a
// vision-capable language model.
package recognize

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/ports"
)

// Providers.
const (
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"
	ProviderOllama    = "ollama"
)

// Engine is a recognizer that may hold a client needing release.
type Engine interface {
	ports.Recognizer
	io.Closer
}

// Config selects and configures a provider.
type Config struct {
	Provider  string
	MaxTokens int
	MaxEdge   int

	// Timeout bounds a single recognition; zero waits as long as the caller's context.
	Timeout time.Duration

	Anthropic AnthropicConfig
	Vertex    VertexConfig
	Ollama    OllamaConfig
}

// New builds the engine for cfg.Provider.
func New(ctx context.Context, cfg Config) (Engine, error) {
	var (
		e   Engine
		err error
	)

	switch cfg.Provider {
	case ProviderAnthropic, "":
		ac := cfg.Anthropic
		ac.MaxTokens, ac.MaxEdge = cfg.MaxTokens, cfg.MaxEdge
		e = NewAnthropic(ac)
	case ProviderVertex:
		vc := cfg.Vertex
		vc.MaxTokens, vc.MaxEdge = cfg.MaxTokens, cfg.MaxEdge
		e, err = NewVertex(ctx, vc)
	case ProviderOllama:
		oc := cfg.Ollama
		oc.MaxTokens, oc.MaxEdge = cfg.MaxTokens, cfg.MaxEdge
		e, err = NewOllama(oc)
	default:
		return nil, fmt.Errorf("unknown recognizer provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Timeout > 0 {
		e = &timeoutEngine{Engine: e, timeout: cfg.Timeout}
	}

	return e, nil
}

// timeoutEngine bounds each Recognize call.
type timeoutEngine struct {
	Engine
	timeout time.Duration
}

func (t *timeoutEngine) Recognize(ctx context.Context, path string) (*domain.QuoteRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return t.Engine.Recognize(ctx, path)
}
