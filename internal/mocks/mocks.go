package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"cash-request-service/internal/ledger"
	"cash-request-service/internal/models"
	"cash-request-service/internal/repositories"
)

var _ repositories.UserRepository = (*UserRepositoryMock)(nil)

type RequestServiceMock struct {
	mock.Mock
}

func (m *RequestServiceMock) Create(ctx context.Context, in ledger.CreateInput) (ledger.CreateResult, error) {
	args := m.Called(ctx, in)
	var res ledger.CreateResult
	if val := args.Get(0); val != nil {
		res = val.(ledger.CreateResult)
	}
	return res, args.Error(1)
}

func (m *RequestServiceMock) Accept(ctx context.Context, recipientID, requestID string) (ledger.AcceptResult, error) {
	args := m.Called(ctx, recipientID, requestID)
	var res ledger.AcceptResult
	if val := args.Get(0); val != nil {
		res = val.(ledger.AcceptResult)
	}
	return res, args.Error(1)
}

func (m *RequestServiceMock) Complete(ctx context.Context, requesterID, requestID, acceptorID string) (models.RequestCopy, error) {
	args := m.Called(ctx, requesterID, requestID, acceptorID)
	var cp models.RequestCopy
	if val := args.Get(0); val != nil {
		cp = val.(models.RequestCopy)
	}
	return cp, args.Error(1)
}

func (m *RequestServiceMock) ListIncoming(ctx context.Context, userID string) ([]models.RequestCopy, error) {
	args := m.Called(ctx, userID)
	var list []models.RequestCopy
	if val := args.Get(0); val != nil {
		list = val.([]models.RequestCopy)
	}
	return list, args.Error(1)
}

func (m *RequestServiceMock) ListSent(ctx context.Context, userID string) ([]models.RequestCopy, error) {
	args := m.Called(ctx, userID)
	var list []models.RequestCopy
	if val := args.Get(0); val != nil {
		list = val.([]models.RequestCopy)
	}
	return list, args.Error(1)
}

func (m *RequestServiceMock) CountPending(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *RequestServiceMock) GetAcceptors(ctx context.Context, requesterID, requestID string) (ledger.AcceptorsView, error) {
	args := m.Called(ctx, requesterID, requestID)
	var view ledger.AcceptorsView
	if val := args.Get(0); val != nil {
		view = val.(ledger.AcceptorsView)
	}
	return view, args.Error(1)
}

func (m *RequestServiceMock) Sweep(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type ChatServiceMock struct {
	mock.Mock
}

func (m *ChatServiceMock) SendMessage(ctx context.Context, conversationID, senderID, text string, isSystem bool) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, text, isSystem)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *ChatServiceMock) ListMessages(ctx context.Context, conversationID, userID string) ([]models.Message, error) {
	args := m.Called(ctx, conversationID, userID)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *ChatServiceMock) InitiateCall(ctx context.Context, conversationID, callerID string) (models.CallSession, error) {
	return m.session(m.Called(ctx, conversationID, callerID))
}

func (m *ChatServiceMock) AcceptCall(ctx context.Context, conversationID, userID string) (models.CallSession, error) {
	return m.session(m.Called(ctx, conversationID, userID))
}

func (m *ChatServiceMock) EndCall(ctx context.Context, conversationID, userID string) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ChatServiceMock) CallStatus(ctx context.Context, conversationID, userID string) (models.CallSession, error) {
	return m.session(m.Called(ctx, conversationID, userID))
}

func (m *ChatServiceMock) session(args mock.Arguments) (models.CallSession, error) {
	var s models.CallSession
	if val := args.Get(0); val != nil {
		s = val.(models.CallSession)
	}
	return s, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) GetUser(ctx context.Context, userID string) (models.User, error) {
	args := m.Called(ctx, userID)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Error(1)
}

func (m *UserRepositoryMock) UpsertProfile(ctx context.Context, profile models.Profile) (models.User, bool, error) {
	args := m.Called(ctx, profile)
	var u models.User
	if val := args.Get(0); val != nil {
		u = val.(models.User)
	}
	return u, args.Bool(1), args.Error(2)
}

func (m *UserRepositoryMock) RecordLocation(ctx context.Context, userID string, loc models.Location) error {
	args := m.Called(ctx, userID, loc)
	return args.Error(0)
}

func (m *UserRepositoryMock) SetDeviceToken(ctx context.Context, userID string, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *UserRepositoryMock) ListCandidates(ctx context.Context, excludeUserID string) ([]models.Candidate, error) {
	args := m.Called(ctx, excludeUserID)
	var list []models.Candidate
	if val := args.Get(0); val != nil {
		list = val.([]models.Candidate)
	}
	return list, args.Error(1)
}

func (m *UserRepositoryMock) ClearDeviceTokens(ctx context.Context, tokens []string) (int64, error) {
	args := m.Called(ctx, tokens)
	return args.Get(0).(int64), args.Error(1)
}

type TokenIssuerMock struct {
	mock.Mock
}

func (m *TokenIssuerMock) IssueToken(userID string, ttl time.Duration) (string, error) {
	args := m.Called(userID, ttl)
	return args.String(0), args.Error(1)
}
