// Package clients provides the instrumented HTTP client shared by the
// Zetl submitter and the Ollama recognizer.
package clients

import "errors"

// Client errors represent failures in the HTTP client layer.
// These are distinct from domain errors; callers translate them into the
// domain taxonomy (SubmissionError, RecognitionServiceError).
var (
	// ErrRequestFailed wraps transport failures: DNS, connection refused,
	// TLS, or the client timeout. No response was received.
	ErrRequestFailed = errors.New("request failed")
)
