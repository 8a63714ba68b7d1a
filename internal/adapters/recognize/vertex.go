package recognize

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"

	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
)

// VertexConfig configures the Gemini on Vertex AI recognizer.
type VertexConfig struct {
	Project         string
	Region          string
	Model           string
	CredentialsFile string
	MaxTokens       int
	MaxEdge         int
}

// Vertex recognizes notecards with a Gemini model on Vertex AI.
type Vertex struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	name    string
	maxEdge int
}

// NewVertex creates the Vertex AI client and configures a JSON-only model.
func NewVertex(ctx context.Context, cfg VertexConfig) (*Vertex, error) {
	if cfg.Project == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertex: project and region cannot be empty")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, cfg.Project, cfg.Region, opts...)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	model.SetMaxOutputTokens(int32(cfg.MaxTokens)) //nolint:gosec // bounded by config validation

	return &Vertex{client: client, model: model, name: cfg.Model, maxEdge: cfg.MaxEdge}, nil
}

// Recognize implements ports.Recognizer.
func (v *Vertex) Recognize(ctx context.Context, path string) (*domain.QuoteRecord, error) {
	img, err := LoadImage(path, v.maxEdge)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "sending image to vertex",
		slog.String("model", v.name),
		slog.Int("image_bytes", len(img.Data)),
	)

	resp, err := v.model.GenerateContent(ctx,
		genai.ImageData(strings.TrimPrefix(img.MediaType, "image/"), img.Data),
		genai.Text(Directive),
	)
	if err != nil {
		return nil, domain.NewRecognitionServiceError(ProviderVertex, err)
	}

	raw := vertexText(resp)
	logger.Log(ctx, logging.LevelTrace, "vertex reply", slog.String("text", raw))

	return ParseReply(stripFences(raw))
}

// Close releases the Vertex AI client.
func (v *Vertex) Close() error {
	return v.client.Close()
}

// vertexText concatenates the text parts of the first candidate.
func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	return sb.String()
}
