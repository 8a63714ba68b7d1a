package acl

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/zetl/notecard-capture/internal/adapters/clients"
	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
)

const (
	// QuotePath is the Zetl device endpoint that creates a quote.
	QuotePath = "/api/device/quote"

	serviceName = "zetl"
)

// SubmitterConfig contains configuration for the Zetl submitter.
type SubmitterConfig struct {
	// BaseURL is the Zetl server root, without a trailing slash.
	BaseURL string

	// APIToken is the device bearer token.
	APIToken string

	// Timeout bounds each submission.
	Timeout time.Duration

	// Transport overrides the HTTP transport (tests).
	Transport http.RoundTripper

	// Logger is the structured logger.
	Logger *slog.Logger
}

// quotePayload is the request body of the device endpoint.
// Tags always serialize as an array.
type quotePayload struct {
	Quote  string   `json:"quote"`
	Author string   `json:"author"`
	Book   string   `json:"book"`
	Tags   []string `json:"tags"`
	Notes  string   `json:"notes"`
}

// Submitter implements ports.Submitter against the Zetl device API.
type Submitter struct {
	BaseAdapter
	logger *slog.Logger
}

// NewSubmitter creates a Zetl submitter with its own instrumented client.
func NewSubmitter(cfg SubmitterConfig) (*Submitter, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	token := cfg.APIToken
	client, err := clients.New(&clients.Config{
		BaseURL:     cfg.BaseURL,
		ServiceName: serviceName,
		Timeout:     cfg.Timeout,
		Transport:   cfg.Transport,
		Logger:      logger,
		AuthFunc: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		},
	})
	if err != nil {
		return nil, err
	}

	return &Submitter{
		BaseAdapter: NewBaseAdapter(client, serviceName),
		logger:      logger,
	}, nil
}

// Submit posts the record to the device endpoint.
// Implements ports.Submitter.
func (s *Submitter) Submit(ctx context.Context, record *domain.QuoteRecord) (*domain.SubmissionReceipt, error) {
	logger := logging.FromContext(ctx)
	logger.Log(ctx, logging.LevelTrace, "starting request", slog.String("path", QuotePath))

	body, err := s.PostJSON(ctx, QuotePath, toPayload(record))
	if err != nil {
		s.logFailure(ctx, err)
		return nil, err
	}

	fields, err := DecodeResponse[map[string]any](body)
	if err != nil || *fields == nil {
		// The quote exists server-side; a receipt without fields reports "?".
		logger.WarnContext(ctx, "zetl returned a non-object body", slog.Any("error", err))
		return &domain.SubmissionReceipt{}, nil
	}

	receipt := &domain.SubmissionReceipt{Fields: *fields}
	id, _ := receipt.ID()
	logger.DebugContext(ctx, "quote submitted", slog.String("quote_id", id))

	return receipt, nil
}

func (s *Submitter) logFailure(ctx context.Context, err error) {
	logger := logging.FromContext(ctx)

	subErr, ok := err.(*domain.SubmissionError) //nolint:errorlint // MapHTTPError returns the concrete type
	if !ok || subErr.StatusCode == 0 {
		logger.DebugContext(ctx, "zetl unreachable", slog.Any("error", err))
		return
	}

	attrs := []any{slog.Int("status_code", subErr.StatusCode)}
	if parsed := ParseErrorResponse([]byte(subErr.Body)); parsed != nil {
		attrs = append(attrs, slog.String("zetl_error", parsed.GetMessage()))
	}
	logger.DebugContext(ctx, "zetl rejected quote", attrs...)
}

// toPayload translates the domain record to the wire shape.
func toPayload(record *domain.QuoteRecord) quotePayload {
	tags := record.Tags
	if tags == nil {
		tags = []string{}
	}

	return quotePayload{
		Quote:  record.Quote,
		Author: record.Author,
		Book:   record.Book,
		Tags:   tags,
		Notes:  record.Notes,
	}
}

// Name implements ports.HealthChecker.
func (s *Submitter) Name() string {
	return serviceName
}

// Check implements ports.HealthChecker. It never creates a quote.
func (s *Submitter) Check(ctx context.Context) error {
	return s.Ping(ctx, QuotePath)
}
