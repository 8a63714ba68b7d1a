// Package domain contains core business entities and rules.
package domain

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// UnknownValue is what the recognizer is told to write for a required field
// it cannot read.
const UnknownValue = "Unknown"

// validate is the package-level validator instance.
var validate = validator.New(validator.WithRequiredStructEnabled())

// QuoteRecord is the structured content of one notecard.
// The JSON field names are the wire contract shared by the inference reply
// and the Zetl device endpoint.
type QuoteRecord struct {
	// Quote is the quoted passage.
	Quote string `json:"quote" validate:"required"`

	// Author is who said or wrote the quote.
	Author string `json:"author" validate:"required"`

	// Book is the source the quote was taken from.
	Book string `json:"book" validate:"required"`

	// Tags are free-form labels written on the card.
	Tags []string `json:"tags"`

	// Notes is any additional text on the card.
	Notes string `json:"notes"`
}

// Normalize trims surrounding whitespace and fills optional fields with their
// defaults, so that Tags is never nil.
func (q *QuoteRecord) Normalize() {
	q.Quote = strings.TrimSpace(q.Quote)
	q.Author = strings.TrimSpace(q.Author)
	q.Book = strings.TrimSpace(q.Book)
	q.Notes = strings.TrimSpace(q.Notes)

	tags := make([]string, 0, len(q.Tags))
	for _, tag := range q.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	q.Tags = tags
}

// Validate checks that the required fields are present.
// It returns a *ValidationError for the first failing field.
func (q *QuoteRecord) Validate() error {
	if err := validate.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return NewValidationErrorWithValue(strings.ToLower(fe.Field()), "is required", fe.Value())
		}
		return NewValidationError("", err.Error())
	}
	return nil
}

// SubmissionReceipt is the decoded JSON object returned by the Zetl server
// after a quote is created.
type SubmissionReceipt struct {
	Fields map[string]any
}

// ID returns the identifier of the created quote, if the server sent one.
func (r *SubmissionReceipt) ID() (string, bool) {
	if r == nil || r.Fields == nil {
		return "", false
	}

	v, ok := r.Fields["id"]
	if !ok || v == nil {
		return "", false
	}

	switch id := v.(type) {
	case string:
		return id, id != ""
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), true
	case interface{ String() string }:
		return id.String(), true
	default:
		return "", false
	}
}
