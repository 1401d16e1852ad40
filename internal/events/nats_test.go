package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingJS struct {
	jetstream.JetStream
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingJS) Publish(_ context.Context, subject string, payload []byte, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, payload)
	return &jetstream.PubAck{Stream: "PAYMENTS", Sequence: uint64(len(r.subjects))}, nil
}

type keyedPayload struct {
	Shop    string `json:"shop"`
	Payment string `json:"payment"`
}

func (k keyedPayload) EventKey() (string, string) { return k.Shop, k.Payment }

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope("payments.completed", keyedPayload{Shop: "s1", Payment: "p1"})
	require.NoError(t, err)

	_, err = ulid.ParseStrict(env.ID)
	require.NoError(t, err)
	assert.Equal(t, "payments.completed", env.Type)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "s1", env.TenantID)
	assert.Equal(t, "p1", env.AggregateID)

	var back keyedPayload
	require.NoError(t, env.DecodeData(&back))
	assert.Equal(t, "p1", back.Payment)

	plain, err := NewEnvelope("x", map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Empty(t, plain.TenantID)
}

func TestPublisher_Publish(t *testing.T) {
	js := &recordingJS{}
	p := &Publisher{js: js, logger: zap.NewNop().Sugar()}

	require.NoError(t, p.Publish(context.Background(), "payments.failed", keyedPayload{Shop: "s", Payment: "p"}))
	require.Len(t, js.subjects, 1)
	assert.Equal(t, "payments.failed", js.subjects[0])

	var env Envelope
	require.NoError(t, json.Unmarshal(js.payloads[0], &env))
	assert.Equal(t, "payments.failed", env.Type)
	assert.Equal(t, "p", env.AggregateID)
}

func TestPublisher_PublishError(t *testing.T) {
	boom := errors.New("no responders")
	p := &Publisher{js: &recordingJS{err: boom}, logger: zap.NewNop().Sugar()}

	err := p.Publish(context.Background(), "payments.completed", keyedPayload{})
	assert.ErrorIs(t, err, boom)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), "anything", nil))
}
