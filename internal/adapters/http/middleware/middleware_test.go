package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zetl/notecard-capture/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestRequestIDMiddleware tests the RequestID middleware.
func TestRequestIDMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		existingHeaderID string
		expectGenerated  bool
	}{
		{
			name:             "generates UUID when no header present",
			existingHeaderID: "",
			expectGenerated:  true,
		},
		{
			name:             "passes through existing header",
			existingHeaderID: "existing-req-123",
			expectGenerated:  false,
		},
		{
			name:             "replaces oversized header",
			existingHeaderID: strings.Repeat("x", maxRequestIDLen+1),
			expectGenerated:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var capturedID string

			router := gin.New()
			router.Use(RequestID())
			router.GET("/-/live", func(c *gin.Context) {
				capturedID = GetRequestID(c)
				c.Status(http.StatusOK)
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/-/live", nil)
			if tt.existingHeaderID != "" {
				req.Header.Set(HeaderRequestID, tt.existingHeaderID)
			}

			router.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, capturedID, w.Header().Get(HeaderRequestID))

			if tt.expectGenerated {
				_, err := uuid.Parse(capturedID)
				assert.NoError(t, err, "generated ID should be a UUID")
			} else {
				assert.Equal(t, tt.existingHeaderID, capturedID)
			}
		})
	}
}

func TestGetRequestID(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))

	c.Set(ContextKeyRequestID, "req-1")
	assert.Equal(t, "req-1", GetRequestID(c))

	c.Set(ContextKeyRequestID, 42)
	assert.Empty(t, GetRequestID(c), "non-string values are ignored")
}

// TestLogging tests the Logging middleware.
func TestLogging(t *testing.T) {
	t.Parallel()

	newRouter := func(buf *bytes.Buffer, path string, status int) *gin.Engine {
		logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

		router := gin.New()
		router.Use(Logging(logger), RequestID())
		router.GET(path, func(c *gin.Context) {
			logging.FromContext(c.Request.Context()).Info("handler ran")
			c.Status(status)
		})

		return router
	}

	t.Run("probe paths log at debug", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := newRouter(&buf, "/-/ready", http.StatusOK)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/ready", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, buf.String(), `"level":"DEBUG","msg":"request completed"`)
	})

	t.Run("handlers inherit the logger with request id", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := newRouter(&buf, "/-/build", http.StatusOK)

		req := httptest.NewRequest(http.MethodGet, "/-/build?verbose=1", nil)
		req.Header.Set(HeaderRequestID, "req-abc")
		router.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		assert.Contains(t, out, `"msg":"handler ran"`)
		assert.Contains(t, out, `"request_id":"req-abc"`)
		assert.Contains(t, out, `"path":"/-/build?verbose=1"`)
	})

	t.Run("5xx logs at error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := newRouter(&buf, "/-/ready", http.StatusServiceUnavailable)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/-/ready", nil))

		assert.Contains(t, buf.String(), `"level":"ERROR","msg":"request completed"`)
	})

	t.Run("4xx logs at warn", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		router := newRouter(&buf, "/-/live", http.StatusOK)

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Contains(t, buf.String(), `"level":"WARN","msg":"request completed"`)
	})
}

// TestRecovery tests the Recovery middleware.
func TestRecovery(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("normal request passes through", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/-/live", func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/live", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("panicking handler returns 500", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(logger))
		router.GET("/-/ready", func(c *gin.Context) {
			panic("registry exploded")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/ready", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "internal error")
	})

	t.Run("nil logger falls back to context logger", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/-/ready", func(c *gin.Context) {
			panic("boom")
		})

		w := httptest.NewRecorder()
		assert.NotPanics(t, func() {
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/-/ready", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
