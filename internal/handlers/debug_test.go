package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cash-request-service/internal/memstore"
	"cash-request-service/internal/mocks"
	"cash-request-service/internal/telemetry"
)

func TestDebugRoutesDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterDebugRoutes(r, nil, nil, false)

	req := httptest.NewRequest(http.MethodGet, "/debug/lifecycle-test", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDebugLifecycleTestPublishes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	pub := new(mocks.PublisherMock)
	pub.On("Publish", mock.Anything, debugEventType, mock.AnythingOfType("telemetry.LifecycleEnvelope")).Return(nil).Once()

	r := gin.New()
	RegisterDebugRoutes(r, telemetry.NewLifecycleEmitter(pub, "cash-request-service", "test", nil), nil, true)

	req := httptest.NewRequest(http.MethodGet, "/debug/lifecycle-test", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	pub.AssertExpectations(t)
}

func TestDebugSweepUnexpectedError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := new(mocks.RequestServiceMock)
	svc.On("Sweep", mock.Anything, "nobody").Return(errors.New("boom")).Once()

	r := gin.New()
	RegisterDebugRoutes(r, nil, svc, true)

	req := httptest.NewRequest(http.MethodPost, "/debug/sweep/nobody", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertExpectations(t)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", Health(memstore.New()))
	r.GET("/health-down", Health(failingPinger{}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health-down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
