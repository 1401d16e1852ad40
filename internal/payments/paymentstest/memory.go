// Package paymentstest provides in-memory stand-ins for the payments stores and
// collaborators.
package paymentstest

import (
	"bytes"
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pasal/internal/payments"
)

type LogEntry struct {
	PaymentID uuid.UUID
	Type      string
	Payload   []byte
}

// Storage is an in-memory payments.Storage. WithTx runs one transaction at a time
// and restores the previous state when fn fails.
type Storage struct {
	txMu sync.Mutex
	mu   sync.Mutex

	configs  map[uuid.UUID]payments.GatewayConfig
	payments map[uuid.UUID]payments.Payment
	logs     []LogEntry

	// Err, when set, is returned by every store call.
	Err error
	// LogErr, when set, is returned by log appends only.
	LogErr error
	// UpdateErrs are returned by successive payment updates, one per call,
	// before updates start succeeding again.
	UpdateErrs []error
}

func NewStorage() *Storage {
	return &Storage{
		configs:  make(map[uuid.UUID]payments.GatewayConfig),
		payments: make(map[uuid.UUID]payments.Payment),
	}
}

func (s *Storage) Repos() payments.Repos {
	return payments.Repos{
		Configs:  configStore{s},
		Payments: paymentStore{s},
		Logs:     logStore{s},
	}
}

func (s *Storage) WithTx(ctx context.Context, fn func(r payments.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	cfgs, pays, logs := cloneMap(s.configs), cloneMap(s.payments), append([]LogEntry(nil), s.logs...)
	s.mu.Unlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.configs, s.payments, s.logs = cfgs, pays, logs
		s.mu.Unlock()
		return err
	}
	return nil
}

// Payment returns a copy of the stored payment.
func (s *Storage) Payment(id uuid.UUID) (payments.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	return p, ok
}

// PutPayment stores p as is.
func (s *Storage) PutPayment(p payments.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments[p.ID] = p
}

// Config returns a copy of the stored config, deleted or not.
func (s *Storage) Config(id uuid.UUID) (payments.GatewayConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.configs[id]
	return c, ok
}

func (s *Storage) Logs(paymentID uuid.UUID) []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []LogEntry
	for _, l := range s.logs {
		if l.PaymentID == paymentID {
			out = append(out, l)
		}
	}
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

type configStore struct{ s *Storage }

func (c configStore) Create(_ context.Context, cfg *payments.GatewayConfig) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.Err != nil {
		return c.s.Err
	}
	for _, existing := range c.s.configs {
		if !existing.Deleted && existing.ShopID == cfg.ShopID && existing.Method == cfg.Method {
			return payments.ErrConfiguration
		}
	}
	c.s.configs[cfg.ID] = *cfg
	return nil
}

func (c configStore) GetByID(_ context.Context, id uuid.UUID) (*payments.GatewayConfig, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.Err != nil {
		return nil, c.s.Err
	}
	cfg, ok := c.s.configs[id]
	if !ok || cfg.Deleted {
		return nil, nil
	}
	return &cfg, nil
}

func (c configStore) GetByShopAndMethod(_ context.Context, shopID uuid.UUID, method payments.Method) (*payments.GatewayConfig, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.Err != nil {
		return nil, c.s.Err
	}
	for _, cfg := range c.s.configs {
		if !cfg.Deleted && cfg.ShopID == shopID && cfg.Method == method {
			return &cfg, nil
		}
	}
	return nil, nil
}

func (c configStore) ListByShop(_ context.Context, shopID uuid.UUID) ([]*payments.GatewayConfig, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.Err != nil {
		return nil, c.s.Err
	}
	var out []*payments.GatewayConfig
	for _, cfg := range c.s.configs {
		if !cfg.Deleted && cfg.ShopID == shopID {
			cfg := cfg
			out = append(out, &cfg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (c configStore) Update(_ context.Context, cfg *payments.GatewayConfig) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.Err != nil {
		return c.s.Err
	}
	cur, ok := c.s.configs[cfg.ID]
	if !ok || cur.Deleted {
		return payments.ErrNotFound
	}
	cur.EncryptedCredentials = cfg.EncryptedCredentials
	cur.Active = cfg.Active
	cur.UpdatedAt = cfg.UpdatedAt
	c.s.configs[cfg.ID] = cur
	return nil
}

func (c configStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.Err != nil {
		return c.s.Err
	}
	cur, ok := c.s.configs[id]
	if !ok {
		return payments.ErrNotFound
	}
	cur.Deleted = true
	cur.Active = false
	c.s.configs[id] = cur
	return nil
}

type paymentStore struct{ s *Storage }

func (p paymentStore) Create(_ context.Context, pay *payments.Payment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.Err != nil {
		return p.s.Err
	}
	p.s.payments[pay.ID] = *pay
	return nil
}

func (p paymentStore) GetByID(_ context.Context, id uuid.UUID) (*payments.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.Err != nil {
		return nil, p.s.Err
	}
	pay, ok := p.s.payments[id]
	if !ok {
		return nil, nil
	}
	return &pay, nil
}

func (p paymentStore) find(match func(payments.Payment) bool) (*payments.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.Err != nil {
		return nil, p.s.Err
	}
	for _, pay := range p.s.payments {
		if match(pay) {
			return &pay, nil
		}
	}
	return nil, nil
}

func (p paymentStore) GetByRequestID(_ context.Context, method payments.Method, requestID string) (*payments.Payment, error) {
	return p.find(func(pay payments.Payment) bool {
		return pay.Method == method && pay.RequestID() == requestID
	})
}

func (p paymentStore) GetByTxnID(_ context.Context, method payments.Method, txnID string) (*payments.Payment, error) {
	return p.find(func(pay payments.Payment) bool {
		return pay.Method == method && pay.TxnID() == txnID
	})
}

func (p paymentStore) LockByID(ctx context.Context, id uuid.UUID) (*payments.Payment, error) {
	return p.GetByID(ctx, id)
}

func (p paymentStore) Update(_ context.Context, pay *payments.Payment) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.Err != nil {
		return p.s.Err
	}
	if len(p.s.UpdateErrs) > 0 {
		err := p.s.UpdateErrs[0]
		p.s.UpdateErrs = p.s.UpdateErrs[1:]
		return err
	}
	cur, ok := p.s.payments[pay.ID]
	if !ok {
		return payments.ErrNotFound
	}
	cur.Status = pay.Status
	cur.GatewayRequestID = pay.GatewayRequestID
	cur.GatewayTxnID = pay.GatewayTxnID
	cur.RawCallbackPayload = pay.RawCallbackPayload
	cur.UpdatedAt = pay.UpdatedAt
	p.s.payments[pay.ID] = cur
	return nil
}

func (p paymentStore) List(_ context.Context, f payments.ListFilter) ([]*payments.Payment, int, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.Err != nil {
		return nil, 0, p.s.Err
	}

	var all []*payments.Payment
	for _, pay := range p.s.payments {
		switch {
		case f.Status != nil && pay.Status != *f.Status:
			continue
		case f.Method != nil && pay.Method != *f.Method:
			continue
		case f.Since != nil && pay.CreatedAt.Before(*f.Since):
			continue
		case f.Before != nil && !pay.CreatedAt.Before(*f.Before):
			continue
		case len(f.Methods) > 0 && !slices.Contains(f.Methods, pay.Method):
			continue
		case f.Started && pay.GatewayRequestID == nil:
			continue
		case f.After != nil && !after(pay, f.After):
			continue
		}
		pay := pay
		all = append(all, &pay)
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	total := len(all)
	if f.Offset >= total {
		return []*payments.Payment{}, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return all[f.Offset:end], total, nil
}

func after(p payments.Payment, c *payments.ListCursor) bool {
	if !p.CreatedAt.Equal(c.CreatedAt) {
		return p.CreatedAt.After(c.CreatedAt)
	}
	return bytes.Compare(p.ID[:], c.ID[:]) > 0
}

type logStore struct{ s *Storage }

func (l logStore) Append(_ context.Context, paymentID uuid.UUID, logType string, payload []byte) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	if l.s.Err != nil {
		return l.s.Err
	}
	if l.s.LogErr != nil {
		return l.s.LogErr
	}
	l.s.logs = append(l.s.logs, LogEntry{PaymentID: paymentID, Type: logType, Payload: payload})
	return nil
}
