package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cash-request-service/internal/ledger"
	"cash-request-service/internal/middleware"
	"cash-request-service/internal/mocks"
	"cash-request-service/internal/models"
)

var _ RequestService = (*mocks.RequestServiceMock)(nil)

const callerID = "6f1c2a7e-8d4b-4d0e-9b55-3a1f7c9e2b10"

func asCaller(c *gin.Context) {
	c.Set(middleware.UserIDKey, callerID)
	c.Next()
}

func setupRequestRouter(svc RequestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asCaller)
	NewRequestHandler(svc).Register(r.Group("/api/requests"))
	return r
}

func TestCreateRequestAcceptsNumericAndStringAmounts(t *testing.T) {
	for _, body := range []string{
		`{"amount":500,"tip":"20","requestType":"cash","radiusKm":2}`,
		`{"amount":"500","tip":20,"requestType":"cash","radiusKm":2}`,
	} {
		svc := new(mocks.RequestServiceMock)
		router := setupRequestRouter(svc)

		svc.On("Create", mock.Anything, ledger.CreateInput{
			RequesterID: callerID,
			Amount:      "500",
			Tip:         "20",
			Kind:        models.KindCash,
			RadiusKm:    2,
		}).Return(ledger.CreateResult{Recipients: 2}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.EqualValues(t, 2, resp["recipients"])
		svc.AssertExpectations(t)
	}
}

func TestCreateRequestValidationError(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("Create", mock.Anything, mock.Anything).Return(nil, ledger.ErrValidation).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(`{"amount":"abc"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertExpectations(t)
}

func TestCreateRequestMalformedBody(t *testing.T) {
	router := setupRequestRouter(new(mocks.RequestServiceMock))

	req := httptest.NewRequest(http.MethodPost, "/api/requests", bytes.NewBufferString(`{"amount":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAcceptRequestConflictSurfacesStatus(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("Accept", mock.Anything, callerID, "req-1").
		Return(nil, &ledger.StateConflictError{Op: "accept", Status: models.StatusExpired}).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/requests/req-1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "expired", resp["status"])
	svc.AssertExpectations(t)
}

func TestAcceptRequestReturnsChatID(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("Accept", mock.Anything, callerID, "req-1").Return(ledger.AcceptResult{
		Request:      models.RequestCopy{Status: models.StatusAccepted},
		Conversation: models.Conversation{ID: "chat-9"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/requests/req-1/accept", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "chat-9", resp["chatId"])
}

func TestCompleteRequestRequiresAcceptor(t *testing.T) {
	router := setupRequestRouter(new(mocks.RequestServiceMock))

	req := httptest.NewRequest(http.MethodPost, "/api/requests/req-1/complete", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompleteRequestNotFound(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("Complete", mock.Anything, callerID, "req-1", "bob").Return(nil, ledger.ErrNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/requests/req-1/complete", bytes.NewBufferString(`{"acceptorId":"bob"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	svc.AssertExpectations(t)
}

func TestListIncomingEmptyIsArray(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("ListIncoming", mock.Anything, callerID).Return(nil, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/requests/incoming", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"requests":[]}`, rec.Body.String())
}

func TestPendingCount(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("CountPending", mock.Anything, callerID).Return(3, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/requests/pending-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":3}`, rec.Body.String())
}

func TestListSentRepoError(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("ListSent", mock.Anything, callerID).Return(nil, assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/requests/sent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetAcceptors(t *testing.T) {
	svc := new(mocks.RequestServiceMock)
	router := setupRequestRouter(svc)

	svc.On("GetAcceptors", mock.Anything, callerID, "req-1").Return(ledger.AcceptorsView{
		Acceptors: []models.Acceptor{{AcceptorID: "bob", ConversationID: "chat-1"}},
		Status:    models.StatusActive,
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/requests/req-1/acceptors", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ledger.AcceptorsView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Acceptors, 1)
	assert.Equal(t, "chat-1", resp.Acceptors[0].ConversationID)
	assert.Equal(t, models.StatusActive, resp.Status)
}
