package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Haleralex/edgeapi/internal/adapters/http/common"
)

// mockPinger - mock для проверки БД.
type mockPinger struct {
	PingFunc func(ctx context.Context) error
}

func (m *mockPinger) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}

func getRequest() *common.Request {
	return common.NewRequest(common.RequestParts{Method: common.MethodGet})
}

func TestNewHealthHandler(t *testing.T) {
	handler := NewHealthHandler(nil, "1.2.3", "2024-01-15T10:30:00Z")

	assert.NotNil(t, handler)
	assert.Equal(t, "1.2.3", handler.version)
	assert.Equal(t, "2024-01-15T10:30:00Z", handler.buildTime)
	assert.False(t, handler.startTime.IsZero())
}

func TestHealthHandler_Health(t *testing.T) {
	handler := NewHealthHandler(nil, "1.0.0", "2024-01-01T00:00:00Z")

	res, err := handler.Health(context.Background(), getRequest())
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.Status)
	body := res.Body.(common.DataEnvelope[HealthResponse])
	assert.Equal(t, "healthy", body.Data.Status)
	assert.Equal(t, "1.0.0", body.Data.Version)
	assert.NotEmpty(t, body.Data.Uptime)
}

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantReady  bool
		wantCheck  string
	}{
		{
			name:       "NoDatabase",
			db:         nil,
			wantStatus: http.StatusOK,
			wantReady:  true,
			wantCheck:  "not configured",
		},
		{
			name:       "Healthy",
			db:         &mockPinger{PingFunc: func(ctx context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			wantReady:  true,
			wantCheck:  "healthy",
		},
		{
			name:       "Unreachable",
			db:         &mockPinger{PingFunc: func(ctx context.Context) error { return errors.New("dial tcp: refused") }},
			wantStatus: http.StatusServiceUnavailable,
			wantReady:  false,
			wantCheck:  "unhealthy: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.db, "1.0.0", "")

			res, err := handler.Ready(context.Background(), getRequest())
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, res.Status)
			if !tt.wantReady {
				body := res.Body.(common.ErrorEnvelope)
				assert.Equal(t, "Service unavailable", body.Error)
				assert.Equal(t, tt.wantCheck, body.Details)
				return
			}
			body := res.Body.(common.DataEnvelope[ReadinessResponse])
			assert.True(t, body.Data.Ready)
			assert.Equal(t, tt.wantCheck, body.Data.Checks["database"])
			assert.Nil(t, body.Data.Pool)
		})
	}
}

func TestHealthHandler_ReadyWithStats(t *testing.T) {
	handler := NewHealthHandler(nil, "1.0.0", "").WithStats(func() any {
		return map[string]int{"totalConns": 3}
	})

	res, err := handler.Ready(context.Background(), getRequest())
	require.NoError(t, err)

	body := res.Body.(common.DataEnvelope[ReadinessResponse])
	assert.Equal(t, map[string]int{"totalConns": 3}, body.Data.Pool)
}

func TestHealthHandler_ReadyHonoursTimeout(t *testing.T) {
	handler := NewHealthHandler(&mockPinger{PingFunc: func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		if !hasDeadline {
			return errors.New("no deadline")
		}
		return nil
	}}, "1.0.0", "")

	res, err := handler.Ready(context.Background(), getRequest())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
}

func TestHealthHandler_Routes(t *testing.T) {
	handler := NewHealthHandler(nil, "1.0.0", "")

	health, ready := handler.Routes()

	assert.Contains(t, health, common.MethodGet)
	assert.Contains(t, health, common.MethodHead)
	assert.Contains(t, ready, common.MethodGet)
	assert.NotContains(t, ready, common.MethodPost)
}
