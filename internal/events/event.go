package events

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Envelope wraps every published payload with common metadata.
type Envelope struct {
	ID          string          `json:"event_id"`
	Type        string          `json:"type"`
	Version     int             `json:"version"`
	OccurredAt  time.Time       `json:"occurred_at"`
	TenantID    string          `json:"tenant_id,omitempty"`
	AggregateID string          `json:"aggregate_id,omitempty"`
	Data        json.RawMessage `json:"data"`
}

// Keyed payloads name the tenant and aggregate they belong to.
type Keyed interface {
	EventKey() (tenantID, aggregateID string)
}

// NewEnvelope marshals data and stamps it with a fresh ulid.
func NewEnvelope(eventType string, data any) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	env := &Envelope{
		ID:         ulid.Make().String(),
		Type:       eventType,
		Version:    1,
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	if k, ok := data.(Keyed); ok {
		env.TenantID, env.AggregateID = k.EventKey()
	}
	return env, nil
}

// DecodeData decodes the event data into v.
func (e *Envelope) DecodeData(v any) error {
	return json.Unmarshal(e.Data, v)
}
