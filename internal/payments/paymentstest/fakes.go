package paymentstest

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"pasal/internal/payments"
)

// Published is one event seen by a Publisher.
type Published struct {
	Subject string
	Payload any
}

// Publisher records every event it is asked to publish.
type Publisher struct {
	mu     sync.Mutex
	events []Published
	Err    error
}

func (p *Publisher) Publish(_ context.Context, subject string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Published{Subject: subject, Payload: v})
	return p.Err
}

func (p *Publisher) Events() []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Published(nil), p.events...)
}

// Credentials is a static payments.CredentialSource keyed by shop and method.
type Credentials map[string]payments.Credentials

func CredentialsKey(shopID uuid.UUID, m payments.Method) string {
	return shopID.String() + "/" + string(m)
}

func (c Credentials) Load(_ context.Context, shopID uuid.UUID, m payments.Method) (payments.Credentials, error) {
	creds, ok := c[CredentialsKey(shopID, m)]
	if !ok {
		return nil, fmt.Errorf("%w: no %s config for shop %s", payments.ErrNotFound, m, shopID)
	}
	return creds, nil
}

// Gateway is a testify mock of payments.Gateway.
type Gateway struct {
	mock.Mock
	Method payments.Method
}

func NewGateway(m payments.Method) *Gateway {
	return &Gateway{Method: m}
}

func (g *Gateway) Supports() payments.Method { return g.Method }

func (g *Gateway) Initiate(ctx context.Context, req payments.InitiateRequest) (payments.InitiateResponse, error) {
	args := g.Called(ctx, req)
	return args.Get(0).(payments.InitiateResponse), args.Error(1)
}

func (g *Gateway) Verify(ctx context.Context, req payments.VerifyRequest) (payments.VerifyResult, error) {
	args := g.Called(ctx, req)
	return args.Get(0).(payments.VerifyResult), args.Error(1)
}
