package recognize

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetl/notecard-capture/internal/domain"
)

func TestNew_Providers(t *testing.T) {
	tests := []struct {
		provider string
		want     any
	}{
		{ProviderAnthropic, &Anthropic{}},
		{"", &Anthropic{}},
		{ProviderOllama, &Ollama{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			e, err := New(context.Background(), Config{
				Provider:  tt.provider,
				MaxTokens: 512,
				Ollama:    OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2-vision"},
			})
			require.NoError(t, err)
			assert.IsType(t, tt.want, e)
			assert.NoError(t, e.Close())
		})
	}
}

func TestNew_PassesSharedSettings(t *testing.T) {
	e, err := New(context.Background(), Config{Provider: ProviderOllama, MaxTokens: 300, MaxEdge: 1024})
	require.NoError(t, err)

	o, ok := e.(*Ollama)
	require.True(t, ok)
	assert.Equal(t, 300, o.maxTokens)
	assert.Equal(t, 1024, o.maxEdge)
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "tesseract"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown recognizer provider")
}

func TestNew_VertexRequiresProject(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: ProviderVertex})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project and region")
}

// blockingEngine waits for its context.
type blockingEngine struct{}

func (blockingEngine) Recognize(ctx context.Context, _ string) (*domain.QuoteRecord, error) {
	<-ctx.Done()
	return nil, domain.NewRecognitionServiceError("test", ctx.Err())
}

func (blockingEngine) Close() error { return nil }

func TestTimeoutEngine(t *testing.T) {
	e := &timeoutEngine{Engine: blockingEngine{}, timeout: 20 * time.Millisecond}

	start := time.Now()
	_, err := e.Recognize(context.Background(), "card.jpg")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestVertexText(t *testing.T) {
	assert.Empty(t, vertexText(nil))
	assert.Empty(t, vertexText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"quote":`), genai.Text(`"q"}`)}},
		}},
	}
	assert.Equal(t, `{"quote":"q"}`, vertexText(resp))
}
