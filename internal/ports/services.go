// Package ports defines interfaces for external dependencies.
// Ports are contracts that adapters implement, allowing the application layer
// to depend on abstractions rather than concrete implementations.
//
// Port Design Principles:
//   - Context as first parameter (always) for cancellation and deadlines
//   - Return domain types, never SDK or wire types
//   - Error returns use the domain error taxonomy (CaptureError, SubmissionError, etc.)
package ports

import (
	"context"

	"github.com/zetl/notecard-capture/internal/domain"
)

// Capturer acquires one still image from the camera.
type Capturer interface {
	// Capture writes a JPEG to path. The caller owns the file and removes it.
	// Returns *domain.CaptureError when the capture tool fails or is missing.
	Capture(ctx context.Context, path string) error
}

// Recognizer turns a notecard photo into a quote record.
type Recognizer interface {
	// Recognize reads the image at path and returns the extracted record.
	// Returns *domain.RecognitionServiceError when the inference call fails
	// and *domain.RecognitionParseError when the reply is not JSON.
	Recognize(ctx context.Context, path string) (*domain.QuoteRecord, error)
}

// Submitter delivers a validated record to Zetl.
type Submitter interface {
	// Submit posts the record and returns the server's receipt.
	// Returns *domain.SubmissionError on transport failure or a non-2xx status.
	Submit(ctx context.Context, record *domain.QuoteRecord) (*domain.SubmissionReceipt, error)
}
