package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, event any) error {
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func TestLifecycleEmitterPublishesEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	emitter := NewLifecycleEmitter(pub, "cash-request-service", "test", nil)

	emitter.Emit(context.Background(), EventRequestAccepted, "req-1", "bob", map[string]any{"chatId": "c1"})

	require.Len(t, pub.events, 1)
	assert.Equal(t, EventRequestAccepted, pub.keys[0])
	env := pub.events[0].(LifecycleEnvelope)
	assert.Equal(t, 1, env.SchemaVersion)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Equal(t, "bob", env.ActorID)
	assert.Equal(t, "test", env.Environment)
}

func TestLifecycleEmitterSwallowsErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	emitter := NewLifecycleEmitter(pub, "svc", "test", nil)

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), EventRequestCreated, "req-1", "alice", nil)
	})

	var nilEmitter *LifecycleEmitter
	assert.NotPanics(t, func() {
		nilEmitter.Emit(context.Background(), EventRequestCreated, "req-1", "alice", nil)
	})
}
