// Package domain contains business logic types and errors.
// Domain errors describe which part of a capture run failed. They carry no
// transport types and are mapped to exit codes and operator messages by the
// driver.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrCapture indicates the image capture command failed.
	ErrCapture = errors.New("capture failed")

	// ErrRecognitionService indicates the inference service could not be reached
	// or rejected the request.
	ErrRecognitionService = errors.New("recognition service failed")

	// ErrRecognitionParse indicates the inference reply was not valid JSON.
	ErrRecognitionParse = errors.New("recognition reply unparseable")

	// ErrValidation indicates a quote record failed the schema check.
	ErrValidation = errors.New("validation failed")

	// ErrSubmission indicates the Zetl server did not accept the quote.
	ErrSubmission = errors.New("submission failed")
)

// CaptureError provides context for a failed capture command.
type CaptureError struct {
	Command string
	Output  string
	Cause   error
}

// Error implements the error interface.
// The tool's diagnostic output is always part of the message.
func (e *CaptureError) Error() string {
	switch {
	case e.Output != "":
		return fmt.Sprintf("%s failed: %s", e.Command, e.Output)
	case e.Cause != nil:
		return fmt.Sprintf("%s failed: %v", e.Command, e.Cause)
	default:
		return e.Command + " failed"
	}
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *CaptureError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrCapture, e.Cause}
	}
	return []error{ErrCapture}
}

// NewCaptureError creates a capture error with the tool's diagnostic output.
func NewCaptureError(command, output string, cause error) error {
	return &CaptureError{Command: command, Output: output, Cause: cause}
}

// RecognitionServiceError provides context for inference transport failures.
type RecognitionServiceError struct {
	Provider string
	Cause    error
}

// Error implements the error interface.
func (e *RecognitionServiceError) Error() string {
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Cause)
}

// Unwrap returns the sentinel error and the cause.
func (e *RecognitionServiceError) Unwrap() []error {
	return []error{ErrRecognitionService, e.Cause}
}

// NewRecognitionServiceError creates a service error for the named provider.
func NewRecognitionServiceError(provider string, cause error) error {
	return &RecognitionServiceError{Provider: provider, Cause: cause}
}

// RecognitionParseError is returned when the model reply is not a JSON object.
// Raw holds the full reply so the operator can see what the model said.
type RecognitionParseError struct {
	Raw   string
	Cause error
}

// Error implements the error interface.
func (e *RecognitionParseError) Error() string {
	return fmt.Sprintf("model returned invalid JSON: %v\nRaw response:\n%s", e.Cause, e.Raw)
}

// Unwrap returns the sentinel error and the parser's diagnostic.
func (e *RecognitionParseError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrRecognitionParse, e.Cause}
	}
	return []error{ErrRecognitionParse}
}

// NewRecognitionParseError creates a parse error carrying the raw reply text.
func NewRecognitionParseError(raw string, cause error) error {
	return &RecognitionParseError{Raw: raw, Cause: cause}
}

// ValidationError provides context for validation errors.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}

	return "validation failed: " + e.Message
}

// Unwrap returns the sentinel error for errors.Is() support.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a validation error with context.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewValidationErrorWithValue creates a validation error including the invalid value.
func NewValidationErrorWithValue(field, message string, value any) error {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// SubmissionError is returned when the Zetl server answers with a non-2xx
// status, or cannot be reached at all (StatusCode 0).
type SubmissionError struct {
	StatusCode int
	Body       string
	Cause      error
}

// Error implements the error interface.
func (e *SubmissionError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("submission failed: %v", e.Cause)
	}

	return fmt.Sprintf("submission failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// Unwrap returns the sentinel error and any transport cause.
func (e *SubmissionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrSubmission, e.Cause}
	}
	return []error{ErrSubmission}
}

// NewSubmissionError creates a submission error for an HTTP response.
func NewSubmissionError(status int, body string) error {
	return &SubmissionError{StatusCode: status, Body: body}
}

// NewSubmissionTransportError creates a submission error for a request that
// never produced a response.
func NewSubmissionTransportError(cause error) error {
	return &SubmissionError{Cause: cause}
}

// IsCapture checks if an error is a capture error.
func IsCapture(err error) bool {
	return errors.Is(err, ErrCapture)
}

// IsRecognitionService checks if an error is an inference transport error.
func IsRecognitionService(err error) bool {
	return errors.Is(err, ErrRecognitionService)
}

// IsRecognitionParse checks if an error is an inference parse error.
func IsRecognitionParse(err error) bool {
	return errors.Is(err, ErrRecognitionParse)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsSubmission checks if an error is a submission error.
func IsSubmission(err error) bool {
	return errors.Is(err, ErrSubmission)
}
