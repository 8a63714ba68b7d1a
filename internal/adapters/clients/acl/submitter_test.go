package acl

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetl/notecard-capture/internal/domain"
	"github.com/zetl/notecard-capture/internal/platform/logging"
)

func setupSubmitter(t *testing.T, handler http.HandlerFunc) *Submitter {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewSubmitter(SubmitterConfig{
		BaseURL:  server.URL,
		APIToken: "device-token",
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	return s
}

func sampleRecord() *domain.QuoteRecord {
	return &domain.QuoteRecord{
		Quote:  "To be or not to be",
		Author: "William Shakespeare",
		Book:   "Hamlet",
		Tags:   []string{"philosophy"},
		Notes:  "",
	}
}

func TestSubmit_Success(t *testing.T) {
	var (
		gotMethod, gotPath, gotAuth, gotType, gotRunID string
		gotBody                                        map[string]any
	)

	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotRunID = r.Header.Get("X-Request-ID")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 42}`))
	})

	ctx := logging.WithRunID(context.Background(), "run-1")
	receipt, err := s.Submit(ctx, sampleRecord())
	require.NoError(t, err)

	id, ok := receipt.ID()
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/device/quote", gotPath)
	assert.Equal(t, "Bearer device-token", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "run-1", gotRunID)
	assert.Equal(t, "To be or not to be", gotBody["quote"])
	assert.Equal(t, []any{"philosophy"}, gotBody["tags"])
	assert.Equal(t, "", gotBody["notes"])
}

func TestSubmit_NilTagsSentAsEmptyArray(t *testing.T) {
	var raw []byte
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"id":"q-1"}`))
	})

	record := sampleRecord()
	record.Tags = nil

	_, err := s.Submit(context.Background(), record)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"tags":[]`)
}

func TestSubmit_MissingID(t *testing.T) {
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	receipt, err := s.Submit(context.Background(), sampleRecord())
	require.NoError(t, err)

	_, ok := receipt.ID()
	assert.False(t, ok)
}

func TestSubmit_NonObjectBody(t *testing.T) {
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	receipt, err := s.Submit(context.Background(), sampleRecord())
	require.NoError(t, err)

	_, ok := receipt.ID()
	assert.False(t, ok)
}

func TestSubmit_ServerError(t *testing.T) {
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"db down"}`))
	})

	_, err := s.Submit(context.Background(), sampleRecord())
	require.Error(t, err)

	assert.True(t, domain.IsSubmission(err))
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "db down")

	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, http.StatusInternalServerError, subErr.StatusCode)
	assert.JSONEq(t, `{"error":"db down"}`, subErr.Body)
}

func TestSubmit_Unauthorized(t *testing.T) {
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("invalid token"))
	})

	_, err := s.Submit(context.Background(), sampleRecord())
	require.Error(t, err)
	assert.Equal(t, "submission failed: HTTP 401: invalid token", err.Error())
}

func TestSubmit_Timeout(t *testing.T) {
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(1500 * time.Millisecond)
	})

	_, err := s.Submit(context.Background(), sampleRecord())
	require.Error(t, err)

	var subErr *domain.SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Zero(t, subErr.StatusCode)
}

func TestSubmitter_Check(t *testing.T) {
	var gotMethod string
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	assert.Equal(t, "zetl", s.Name())
	require.NoError(t, s.Check(context.Background()))
	assert.Equal(t, http.MethodHead, gotMethod)
}

func TestSubmitter_Check_ServerDown(t *testing.T) {
	s := setupSubmitter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	err := s.Check(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
