package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/zetl/notecard-capture/internal/adapters/clients"
)

// BaseAdapter holds the JSON-over-HTTP plumbing shared by Zetl adapters.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a new base adapter with the given client and service name.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	return BaseAdapter{
		client:      client,
		serviceName: serviceName,
	}
}

// PostJSON encodes payload and POSTs it to path.
// On a 2xx status, returns the response body (caller must close).
// Otherwise returns the mapped *domain.SubmissionError.
func (a *BaseAdapter) PostJSON(ctx context.Context, path string, payload any) (io.ReadCloser, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	resp, err := a.client.Post(ctx, path, bytes.NewReader(encoded))
	if err != nil {
		return nil, MapHTTPError(nil, err)
	}

	if mapped := MapHTTPError(resp, nil); mapped != nil {
		_ = resp.Body.Close()
		return nil, mapped
	}

	return resp.Body, nil
}

// Ping issues a HEAD request against path and reports whether the server
// answered below 500. Any answer proves reachability; 4xx is expected for an
// endpoint that only accepts POST.
func (a *BaseAdapter) Ping(ctx context.Context, path string) error {
	resp, err := a.client.Head(ctx, path)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%s returned status %d", a.serviceName, resp.StatusCode)
	}

	return nil
}

// DecodeResponse reads and decodes a JSON response body into the target type.
// Numbers decode as json.Number so identifiers keep their exact text.
// Closes the body after reading.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	dec := json.NewDecoder(body)
	dec.UseNumber()

	var result T
	if err := dec.Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}
