package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubChecker implements HealthChecker for testing.
type stubChecker struct {
	name string
	err  error
}

func (s *stubChecker) Name() string { return s.name }

func (s *stubChecker) Check(context.Context) error { return s.err }

// slowChecker waits for the context or a short delay.
type slowChecker struct {
	name string
}

func (s *slowChecker) Name() string { return s.name }

func (s *slowChecker) Check(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func TestRegister(t *testing.T) {
	registry := NewHealthRegistry()

	require.NoError(t, registry.Register(&stubChecker{name: "camera"}))
	require.NoError(t, registry.Register(&stubChecker{name: "zetl"}))

	err := registry.Register(&stubChecker{name: "camera"})
	require.ErrorIs(t, err, ErrDuplicateChecker)
	assert.Contains(t, err.Error(), "camera")
	assert.Len(t, registry.checkers, 2)
}

func TestCheckAll_NoCheckers(t *testing.T) {
	result := NewHealthRegistry().CheckAll(context.Background())

	require.NotNil(t, result)
	assert.Equal(t, HealthStatusHealthy, result.Status)
	assert.Empty(t, result.Checks)
	assert.False(t, result.Timestamp.IsZero())
}

func TestCheckAll(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []HealthChecker
		wantStatus HealthStatus
		wantFailed map[string]string
	}{
		{
			name: "all healthy",
			checkers: []HealthChecker{
				&stubChecker{name: "camera"},
				&stubChecker{name: "zetl"},
			},
			wantStatus: HealthStatusHealthy,
		},
		{
			name: "device missing",
			checkers: []HealthChecker{
				&stubChecker{name: "camera", err: errors.New("/dev/video0: no such file or directory")},
				&stubChecker{name: "zetl"},
			},
			wantStatus: HealthStatusUnhealthy,
			wantFailed: map[string]string{"camera": "/dev/video0: no such file or directory"},
		},
		{
			name: "everything down",
			checkers: []HealthChecker{
				&stubChecker{name: "camera", err: errors.New("busy")},
				&stubChecker{name: "zetl", err: errors.New("connection refused")},
			},
			wantStatus: HealthStatusUnhealthy,
			wantFailed: map[string]string{"camera": "busy", "zetl": "connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewHealthRegistry()
			for _, c := range tt.checkers {
				require.NoError(t, registry.Register(c))
			}

			result := registry.CheckAll(context.Background())

			assert.Equal(t, tt.wantStatus, result.Status)
			require.Len(t, result.Checks, len(tt.checkers))
			for _, c := range tt.checkers {
				check := result.Checks[c.Name()]
				require.NotNil(t, check)
				if msg, failed := tt.wantFailed[c.Name()]; failed {
					assert.Equal(t, HealthStatusUnhealthy, check.Status)
					assert.Equal(t, msg, check.Message)
				} else {
					assert.Equal(t, HealthStatusHealthy, check.Status)
					assert.Empty(t, check.Message)
				}
			}
		})
	}
}

func TestCheckAll_ContextCancelled(t *testing.T) {
	registry := NewHealthRegistry()
	require.NoError(t, registry.Register(&slowChecker{name: "zetl"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := registry.CheckAll(ctx)

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["zetl"].Message, "context canceled")
}

func TestCheckAll_CheckTimeout(t *testing.T) {
	registry := NewHealthRegistry(WithCheckTimeout(10 * time.Millisecond))
	require.NoError(t, registry.Register(&slowChecker{name: "zetl"}))
	require.NoError(t, registry.Register(&stubChecker{name: "camera"}))

	result := registry.CheckAll(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, result.Status)
	assert.Contains(t, result.Checks["zetl"].Message, "deadline exceeded")
	assert.Equal(t, HealthStatusHealthy, result.Checks["camera"].Status)
}
