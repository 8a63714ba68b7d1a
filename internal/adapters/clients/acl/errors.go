package acl

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/zetl/notecard-capture/internal/domain"
)

// maxErrorBody caps how much of an error body is kept in a SubmissionError.
const maxErrorBody = 4 << 10

// ErrorResponse is the error body shape of the Zetl API. It accepts a flat
// string (`{"error":"db down"}`), a nested object
// (`{"error":{"code":"...","message":"..."}}`), or a top-level message.
type ErrorResponse struct {
	Error   json.RawMessage `json:"error"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// ErrorDetail is the nested form of ErrorResponse.Error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetMessage returns the most specific message the body carries.
func (e *ErrorResponse) GetMessage() string {
	if len(e.Error) > 0 {
		var flat string
		if err := json.Unmarshal(e.Error, &flat); err == nil && flat != "" {
			return flat
		}

		var nested ErrorDetail
		if err := json.Unmarshal(e.Error, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}

	return e.Message
}

// ParseErrorResponse attempts to parse an error response body.
// Returns nil if the body is empty or carries no message.
func ParseErrorResponse(body []byte) *ErrorResponse {
	if len(body) == 0 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return nil
	}

	if errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapHTTPError maps a failed exchange to a *domain.SubmissionError.
//
// Parameters:
//   - resp: The HTTP response (may be nil for transport errors)
//   - clientErr: Any error from the HTTP client (may be nil)
//
// Returns nil for 2xx responses. The response body is consumed.
func MapHTTPError(resp *http.Response, clientErr error) error {
	if clientErr != nil {
		return domain.NewSubmissionTransportError(clientErr)
	}

	if resp == nil {
		return domain.NewSubmissionTransportError(io.ErrUnexpectedEOF)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}

	return domain.NewSubmissionError(resp.StatusCode, strings.TrimSpace(string(body)))
}
