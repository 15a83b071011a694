package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve/pensieve-doctor/internal/application"
	"github.com/pensieve/pensieve-doctor/internal/domain"
)

func TestHealthService_AllComponentsHealthy(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	status := svc.Check(context.Background())

	assert.True(t, status.APIResponding)
	assert.True(t, status.ServiceRunning)
	assert.True(t, status.DatabaseAccessible)
	assert.True(t, status.IsHealthy)
	assert.Empty(t, status.Warnings)
}

func TestHealthService_APIDownMeansUnhealthy(t *testing.T) {
	api := newFakeAPI()
	api.healthErr = &domain.APIError{StatusCode: 503, Endpoint: "/api/health", Message: "down"}
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	status := svc.Check(context.Background())

	assert.False(t, status.APIResponding)
	assert.False(t, status.IsHealthy)
	assert.NotEmpty(t, status.Warnings)
}

func TestHealthService_CachedStatusWithinMaxAge(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	assert.True(t, svc.IsHealthy(context.Background(), time.Minute))
	assert.True(t, svc.IsHealthy(context.Background(), time.Minute))

	// Two reads, one probe.
	assert.Equal(t, 1, api.healthCalls)
}

func TestHealthService_StaleCacheTriggersReprobe(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	svc.Check(context.Background())
	svc.IsHealthy(context.Background(), 0)

	assert.Equal(t, 2, api.healthCalls)
}

func TestHealthService_ObserverNotified(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	var got []domain.HealthStatus
	svc.Subscribe(func(s domain.HealthStatus) { got = append(got, s) })

	svc.Check(context.Background())

	require.Len(t, got, 1)
	assert.True(t, got[0].IsHealthy)
}

func TestHealthService_PanickingObserverRecovered(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	svc.Subscribe(func(domain.HealthStatus) { panic("observer bug") })
	called := false
	svc.Subscribe(func(domain.HealthStatus) { called = true })

	assert.NotPanics(t, func() { svc.Check(context.Background()) })
	assert.True(t, called)
}

func TestHealthService_StartStop(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	svc.Start(time.Hour)
	svc.Stop()

	// Stop is idempotent.
	svc.Stop()
}

func TestHealthService_LastStatus(t *testing.T) {
	api := newFakeAPI()
	api.config = &domain.ServiceConfig{DatabasePath: writeTempDB(t)}
	svc := application.NewHealthService(api, newFakeControl(), nil)

	_, ok := svc.LastStatus()
	assert.False(t, ok)

	svc.Check(context.Background())
	status, ok := svc.LastStatus()
	require.True(t, ok)
	assert.True(t, status.IsHealthy)
}
