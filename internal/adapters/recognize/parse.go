package recognize

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/zetl/notecard-capture/internal/domain"
)

// ParseReply decodes the model's reply text into a quote record.
//
// Text that is not JSON at all yields *domain.RecognitionParseError carrying
// the raw reply. Well-formed JSON of the wrong shape (an array, tags given as a
// string) yields *domain.ValidationError. Defaults and required fields are
// left to QuoteRecord.Normalize and Validate.
func ParseReply(raw string) (*domain.QuoteRecord, error) {
	text := strings.TrimSpace(raw)

	var probe any
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, domain.NewRecognitionParseError(text, err)
	}

	var record domain.QuoteRecord
	if err := json.Unmarshal([]byte(text), &record); err != nil {
		return nil, shapeError(err)
	}

	return &record, nil
}

// shapeError converts a typed decoding failure into a validation error.
func shapeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) {
		return domain.NewValidationError("", err.Error())
	}

	if typeErr.Field == "" {
		return domain.NewValidationErrorWithValue("", "reply must be a JSON object", typeErr.Value)
	}

	return domain.NewValidationErrorWithValue(typeErr.Field, "must be "+jsonType(typeErr.Type.String()), typeErr.Value)
}

// jsonType names a Go type the way the reply schema does.
func jsonType(goType string) string {
	switch {
	case strings.HasPrefix(goType, "[]"):
		return "an array of strings"
	case goType == "string":
		return "a string"
	default:
		return goType
	}
}

// stripFences removes a markdown code fence some models wrap JSON in despite
// the instruction not to.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}
