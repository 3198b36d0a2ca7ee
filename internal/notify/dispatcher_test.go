package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu       sync.Mutex
	messages []Message
	codes    map[string]ErrorCode
	err      error
}

func (g *fakeGateway) SendMulticast(_ context.Context, msg Message) (BatchResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, msg)
	if g.err != nil {
		return BatchResult{}, g.err
	}
	var out BatchResult
	for _, token := range msg.Tokens {
		if code, ok := g.codes[token]; ok {
			out.Results = append(out.Results, SendResult{Token: token, Code: code})
			continue
		}
		out.Results = append(out.Results, SendResult{Token: token, Success: true})
	}
	return out, nil
}

type fakeTokenStore struct {
	cleared [][]string
	ctxErrs []error
	err     error
}

func (s *fakeTokenStore) ClearDeviceTokens(ctx context.Context, tokens []string) (int64, error) {
	s.cleared = append(s.cleared, tokens)
	s.ctxErrs = append(s.ctxErrs, ctx.Err())
	return int64(len(tokens)), s.err
}

// slowGateway answers only once the send deadline has passed.
type slowGateway struct {
	code ErrorCode
}

func (g slowGateway) SendMulticast(ctx context.Context, msg Message) (BatchResult, error) {
	<-ctx.Done()
	var out BatchResult
	for _, token := range msg.Tokens {
		out.Results = append(out.Results, SendResult{Token: token, Code: g.code})
	}
	return out, nil
}

func TestDispatchPrunesOnlyPermanentFailures(t *testing.T) {
	gw := &fakeGateway{codes: map[string]ErrorCode{
		"dead":    CodeNotRegistered,
		"garbage": CodeInvalidToken,
		"flaky":   CodeTransient,
	}}
	store := &fakeTokenStore{}
	d := NewDispatcher(gw, store, time.Second, nil)

	report := d.Dispatch(context.Background(), Notification{
		Type:   TypeNewRequest,
		Tokens: []string{"ok", "dead", "garbage", "flaky"},
	})

	assert.Equal(t, 4, report.Attempted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 3, report.Failed)
	assert.EqualValues(t, 2, report.Pruned)
	require.Len(t, store.cleared, 1)
	assert.ElementsMatch(t, []string{"dead", "garbage"}, store.cleared[0])
}

func TestDispatchExcludesAndDedupesTokens(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, nil, time.Second, nil)

	d.Dispatch(context.Background(), Notification{
		Type:    TypeNewRequest,
		Tokens:  []string{"a", "", "requester", "a", "b"},
		Exclude: []string{"requester"},
		Data:    map[string]string{"requestId": "r1"},
	})

	require.Len(t, gw.messages, 1)
	assert.Equal(t, []string{"a", "b"}, gw.messages[0].Tokens)
	assert.Equal(t, TypeNewRequest, gw.messages[0].Data["type"])
	assert.Equal(t, "r1", gw.messages[0].Data["requestId"])
}

func TestDispatchSkipsWithoutTokensOrGateway(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, nil, time.Second, nil)
	assert.True(t, d.Dispatch(context.Background(), Notification{Tokens: []string{"x"}, Exclude: []string{"x"}}).Skipped)
	assert.Empty(t, gw.messages)

	disabled := NewDispatcher(nil, nil, time.Second, nil)
	assert.True(t, disabled.Dispatch(context.Background(), Notification{Tokens: []string{"x"}}).Skipped)
}

func TestDispatchSwallowsGatewayErrors(t *testing.T) {
	gw := &fakeGateway{err: errors.New("unavailable")}
	store := &fakeTokenStore{}
	d := NewDispatcher(gw, store, time.Second, nil)

	report := d.Dispatch(context.Background(), Notification{Tokens: []string{"a", "b"}})

	assert.Equal(t, 2, report.Failed)
	assert.Empty(t, store.cleared)
}

func TestDispatchSurvivesCleanupError(t *testing.T) {
	gw := &fakeGateway{codes: map[string]ErrorCode{"dead": CodeNotRegistered}}
	store := &fakeTokenStore{err: errors.New("db down")}
	d := NewDispatcher(gw, store, time.Second, nil)

	report := d.Dispatch(context.Background(), Notification{Tokens: []string{"dead"}})

	assert.EqualValues(t, 0, report.Pruned)
	assert.Len(t, store.cleared, 1)
}

func TestCleanupOutlivesSlowSend(t *testing.T) {
	store := &fakeTokenStore{}
	d := NewDispatcher(slowGateway{code: CodeNotRegistered}, store, 20*time.Millisecond, nil)

	report := d.Dispatch(context.Background(), Notification{Tokens: []string{"dead"}})

	assert.EqualValues(t, 1, report.Pruned)
	require.Len(t, store.ctxErrs, 1)
	assert.NoError(t, store.ctxErrs[0])
}

func TestErrorCodePermanent(t *testing.T) {
	assert.True(t, CodeInvalidToken.Permanent())
	assert.True(t, CodeNotRegistered.Permanent())
	assert.False(t, CodeInvalidArgument.Permanent())
	assert.False(t, CodeTransient.Permanent())
	assert.False(t, ErrorCode("").Permanent())
}
