package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event subjects published after a transition commits.
const (
	SubjectCompleted = "payments.completed"
	SubjectFailed    = "payments.failed"
	SubjectCanceled  = "payments.canceled"
)

// Event is the payload of a status event.
type Event struct {
	PaymentID    uuid.UUID `json:"payment_id"`
	ShopID       uuid.UUID `json:"shop_id"`
	OrderID      uuid.UUID `json:"order_id"`
	Method       Method    `json:"payment_method"`
	Status       Status    `json:"status"`
	AmountMinor  int64     `json:"amount_minor"`
	Currency     string    `json:"currency"`
	GatewayTxnID string    `json:"gateway_txn_id,omitempty"`
}

func (e Event) EventKey() (tenantID, aggregateID string) {
	return e.ShopID.String(), e.PaymentID.String()
}

// Service owns the payment state machine.
type Service struct {
	store    Storage
	registry *Registry
	events   Publisher
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewService(store Storage, registry *Registry, events Publisher, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

type StartRequest struct {
	ShopID      uuid.UUID
	Method      Method
	OrderID     uuid.UUID
	AmountMinor int64
	Currency    string
	ReturnURL   string
	FailureURL  string
}

func (r StartRequest) validate() error {
	var problems []string
	if r.ShopID == uuid.Nil {
		problems = append(problems, "shop id is required")
	}
	if r.OrderID == uuid.Nil {
		problems = append(problems, "order id is required")
	}
	if r.AmountMinor <= 0 {
		problems = append(problems, "amount must be positive")
	}
	if strings.TrimSpace(r.ReturnURL) == "" {
		problems = append(problems, "return url is required")
	}
	if strings.TrimSpace(r.FailureURL) == "" {
		problems = append(problems, "failure url is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// StartPayment records an INITIATED payment and asks the method's adapter to
// start it with the provider.
func (s *Service) StartPayment(ctx context.Context, req StartRequest) (InitiateResponse, error) {
	if err := req.validate(); err != nil {
		return InitiateResponse{}, err
	}
	gw, err := s.registry.Of(req.Method)
	if err != nil {
		return InitiateResponse{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	now := s.now().UTC()
	p := &Payment{
		ID:          uuid.New(),
		ShopID:      req.ShopID,
		Method:      req.Method,
		OrderID:     req.OrderID,
		AmountMinor: req.AmountMinor,
		Currency:    currency,
		Status:      StatusInitiated,
		ReturnURL:   req.ReturnURL,
		FailureURL:  req.FailureURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Repos().Payments.Create(ctx, p); err != nil {
		return InitiateResponse{}, err
	}

	resp, err := gw.Initiate(ctx, InitiateRequest{
		ShopID:      req.ShopID,
		OrderID:     req.OrderID,
		AmountMinor: req.AmountMinor,
		ReturnURL:   req.ReturnURL,
		FailureURL:  req.FailureURL,
	})
	if err != nil {
		s.logger.Warnw("payment initiate failed", "payment_id", p.ID, "shop_id", p.ShopID, "method", p.Method, "err", err)
		// The caller may have gone away; the row still has to leave INITIATED.
		s.failInitiated(context.WithoutCancel(ctx), p.ID, "", err)
		return InitiateResponse{}, err
	}

	// The provider session exists from here on; the request id is recorded even
	// if the caller has gone away, or the row is failed.
	requestID := resp.GatewayRequestID
	bg := context.WithoutCancel(ctx)
	err = s.store.WithTx(bg, func(r Repos) error {
		cur, err := r.Payments.LockByID(bg, p.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: payment %s", ErrNotFound, p.ID)
		}
		cur.GatewayRequestID = &requestID
		cur.UpdatedAt = s.now().UTC()
		if err := r.Payments.Update(bg, cur); err != nil {
			return err
		}
		return r.Logs.Append(bg, cur.ID, LogInitiated, auditJSON(map[string]string{"gateway_request_id": requestID}))
	})
	if err != nil {
		s.logger.Errorw("could not record gateway request id", "payment_id", p.ID, "method", p.Method, "request_id", requestID, "err", err)
		s.failInitiated(bg, p.ID, requestID, err)
		return InitiateResponse{}, err
	}

	resp.PaymentID = p.ID
	s.logger.Infow("payment initiated", "payment_id", p.ID, "shop_id", p.ShopID, "method", p.Method, "request_id", requestID)
	return resp, nil
}

func (s *Service) failInitiated(ctx context.Context, id uuid.UUID, requestID string, cause error) {
	err := s.store.WithTx(ctx, func(r Repos) error {
		cur, err := r.Payments.LockByID(ctx, id)
		if err != nil || cur == nil || cur.Status.Terminal() {
			return err
		}
		cur.Status = StatusFailed
		cur.UpdatedAt = s.now().UTC()
		if err := r.Payments.Update(ctx, cur); err != nil {
			return err
		}
		audit := map[string]string{"error": cause.Error()}
		if requestID != "" {
			audit["gateway_request_id"] = requestID
		}
		return r.Logs.Append(ctx, id, LogInitFailed, auditJSON(audit))
	})
	if err != nil {
		s.logger.Errorw("could not fail payment after initiate error", "payment_id", id, "request_id", requestID, "err", err)
	}
}

// HandleCallback verifies a provider callback and settles the matching payment.
// Deliveries for an already-terminal payment return the stored outcome without
// calling the provider.
func (s *Service) HandleCallback(ctx context.Context, shopID uuid.UUID, method Method, raw map[string]string) (VerifyResult, error) {
	gw, err := s.registry.Of(method)
	if err != nil {
		return VerifyResult{}, err
	}
	params, err := NormalizeCallback(method, raw)
	if err != nil {
		return VerifyResult{}, err
	}
	requestID, err := CorrelationID(method, params)
	if err != nil {
		return VerifyResult{}, err
	}

	p, err := s.store.Repos().Payments.GetByRequestID(ctx, method, requestID)
	if err != nil {
		return VerifyResult{}, err
	}
	if p == nil || p.ShopID != shopID {
		s.logger.Warnw("callback for unknown payment", "shop_id", shopID, "method", method, "request_id", requestID)
		return VerifyResult{}, fmt.Errorf("%w: no %s payment for %s", ErrNotFound, method, requestID)
	}

	res, _, err := s.settle(ctx, gw, p, params, LogCallback)
	return res, err
}

// HandleEsewaReturn processes the browser redirect eSewa makes to the success or
// failure url. The payment is found by transaction_uuid, falling back to the
// transaction_code eSewa may echo instead.
func (s *Service) HandleEsewaReturn(ctx context.Context, raw map[string]string) (*Payment, VerifyResult, error) {
	gw, err := s.registry.Of(MethodEsewa)
	if err != nil {
		return nil, VerifyResult{}, err
	}
	params, err := NormalizeCallback(MethodEsewa, raw)
	if err != nil {
		return nil, VerifyResult{}, err
	}

	repo := s.store.Repos().Payments
	var p *Payment
	if id := params["transaction_uuid"]; id != "" {
		if p, err = repo.GetByRequestID(ctx, MethodEsewa, id); err != nil {
			return nil, VerifyResult{}, err
		}
	}
	if p == nil {
		if code := params["transaction_code"]; code != "" {
			if p, err = repo.GetByTxnID(ctx, MethodEsewa, code); err != nil {
				return nil, VerifyResult{}, err
			}
		}
	}
	if p == nil {
		s.logger.Warnw("esewa return for unknown payment", "request_id", params["transaction_uuid"], "txn_id", params["transaction_code"])
		return nil, VerifyResult{}, fmt.Errorf("%w: no esewa payment for this return", ErrNotFound)
	}

	res, cur, err := s.settle(ctx, gw, p, params, LogEsewaReturn)
	return cur, res, err
}

// ProviderMethods returns the registered methods settled by a provider status
// check rather than by an operator.
func (s *Service) ProviderMethods() []Method {
	var out []Method
	for _, m := range s.registry.Methods() {
		if !m.Manual() {
			out = append(out, m)
		}
	}
	return out
}

// Reverify asks the provider about a payment again, as the reconciler does for
// stale INITIATED rows.
func (s *Service) Reverify(ctx context.Context, p *Payment) (VerifyResult, error) {
	gw, err := s.registry.Of(p.Method)
	if err != nil {
		return VerifyResult{}, err
	}
	res, _, err := s.settle(ctx, gw, p, nil, LogReconcile)
	return res, err
}

// settle runs the provider verification outside any transaction, then applies
// the outcome under a row lock.
func (s *Service) settle(ctx context.Context, gw Gateway, p *Payment, params map[string]string, logType string) (VerifyResult, *Payment, error) {
	if p.Status.Terminal() {
		s.logger.Infow("payment already settled", "payment_id", p.ID, "status", p.Status, "source", logType)
		return resultOf(p), p, nil
	}
	if p.GatewayRequestID == nil {
		return VerifyResult{}, nil, fmt.Errorf("%w: payment %s was never initiated with the provider", ErrNotFound, p.ID)
	}

	res, err := gw.Verify(ctx, VerifyRequest{
		ShopID:           p.ShopID,
		OrderID:          p.OrderID,
		GatewayRequestID: p.RequestID(),
		AmountMinor:      p.AmountMinor,
		Params:           params,
	})
	if err != nil {
		return VerifyResult{}, nil, err
	}
	if res.Success && res.AmountMinor != 0 && res.AmountMinor != p.AmountMinor {
		s.logger.Warnw("provider amount differs from payment", "payment_id", p.ID, "expected", p.AmountMinor, "reported", res.AmountMinor)
		res = VerifyResult{Success: false, GatewayTxnID: res.GatewayTxnID, Status: StateAmountMismatch, AmountMinor: res.AmountMinor}
	}

	var payload []byte
	if len(params) > 0 {
		payload = auditJSON(params)
	}

	var (
		out     = res
		current *Payment
		result  outcome
	)
	err = s.store.WithTx(ctx, func(r Repos) error {
		cur, err := r.Payments.LockByID(ctx, p.ID)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: payment %s", ErrNotFound, p.ID)
		}
		current = cur

		target := res.target()
		result = decide(cur.Status, target)
		switch result {
		case outcomeDuplicate, outcomeRejected:
			out = resultOf(cur)
			return nil
		case outcomeApplied:
			cur.Status = target
			if target == StatusCompleted && res.GatewayTxnID != "" {
				txn := res.GatewayTxnID
				cur.GatewayTxnID = &txn
			}
		}

		if payload != nil {
			cur.RawCallbackPayload = payload
		}
		cur.UpdatedAt = s.now().UTC()
		if err := r.Payments.Update(ctx, cur); err != nil {
			return err
		}
		return r.Logs.Append(ctx, cur.ID, logType, auditJSON(logEntry{Params: params, Result: res}))
	})
	if err != nil {
		return VerifyResult{}, nil, err
	}

	fields := []any{"payment_id", current.ID, "method", current.Method, "status", current.Status, "verify_status", res.Status, "source", logType}
	switch result {
	case outcomeApplied:
		s.logger.Infow("payment settled", fields...)
		s.publish(ctx, current)
	case outcomeRejected:
		s.logger.Warnw("conflicting verification ignored", fields...)
	case outcomeDuplicate:
		s.logger.Infow("duplicate verification ignored", fields...)
	default:
		s.logger.Infow("payment still open", fields...)
	}
	return out, current, nil
}

type logEntry struct {
	Params map[string]string `json:"params,omitempty"`
	Result VerifyResult      `json:"result"`
}

type outcome int

const (
	// outcomeUnchanged leaves an open payment open (pending, refunded, error).
	outcomeUnchanged outcome = iota
	outcomeApplied
	// outcomeDuplicate repeats the transition the payment already took.
	outcomeDuplicate
	// outcomeRejected conflicts with an earlier terminal transition.
	outcomeRejected
)

func decide(current, target Status) outcome {
	switch {
	case current.Terminal() && current == target:
		return outcomeDuplicate
	case current.Terminal():
		return outcomeRejected
	case target == "":
		return outcomeUnchanged
	default:
		return outcomeApplied
	}
}

// resultOf reports a settled payment as a verification result.
func resultOf(p *Payment) VerifyResult {
	return VerifyResult{
		Success:      p.Status == StatusCompleted,
		GatewayTxnID: p.TxnID(),
		Status:       string(p.Status),
		AmountMinor:  p.AmountMinor,
	}
}

// Payment returns a payment by id.
func (s *Service) Payment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := s.store.Repos().Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: payment %s", ErrNotFound, id)
	}
	return p, nil
}

// ListForReconciliation lists payments by status for re-verification or review.
func (s *Service) ListForReconciliation(ctx context.Context, f ListFilter) ([]*Payment, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.Repos().Payments.List(ctx, f)
}

// Cancel moves an open payment to CANCELED.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Payment, error) {
	return s.adminTransition(ctx, id, StatusCanceled, LogAdminCancel, func(p *Payment) error { return nil },
		map[string]string{"reason": reason})
}

// ConfirmManual completes a bank transfer or cash-on-delivery payment after the
// shop has seen the money.
func (s *Service) ConfirmManual(ctx context.Context, id uuid.UUID, txnRef string) (*Payment, error) {
	txnRef = strings.TrimSpace(txnRef)
	return s.adminTransition(ctx, id, StatusCompleted, LogAdminConfirm, func(p *Payment) error {
		if !p.Method.Manual() {
			return fmt.Errorf("%w: %s payments are confirmed by the provider", ErrValidation, p.Method)
		}
		ref := txnRef
		if ref == "" {
			ref = p.RequestID()
		}
		if ref != "" {
			p.GatewayTxnID = &ref
		}
		return nil
	}, map[string]string{"txn_ref": txnRef})
}

func (s *Service) adminTransition(ctx context.Context, id uuid.UUID, to Status, logType string, apply func(*Payment) error, note map[string]string) (*Payment, error) {
	var out *Payment
	err := s.store.WithTx(ctx, func(r Repos) error {
		cur, err := r.Payments.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if cur == nil {
			return fmt.Errorf("%w: payment %s", ErrNotFound, id)
		}
		if cur.Status.Terminal() {
			return fmt.Errorf("%w: payment %s is already %s", ErrInvalidTransition, id, cur.Status)
		}
		if err := apply(cur); err != nil {
			return err
		}
		cur.Status = to
		cur.UpdatedAt = s.now().UTC()
		if err := r.Payments.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return r.Logs.Append(ctx, id, logType, auditJSON(note))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infow("payment changed by operator", "payment_id", id, "status", to)
	s.publish(ctx, out)
	return out, nil
}

func (s *Service) publish(ctx context.Context, p *Payment) {
	if s.events == nil {
		return
	}
	var subject string
	switch p.Status {
	case StatusCompleted:
		subject = SubjectCompleted
	case StatusFailed:
		subject = SubjectFailed
	case StatusCanceled:
		subject = SubjectCanceled
	default:
		return
	}
	ev := Event{
		PaymentID:    p.ID,
		ShopID:       p.ShopID,
		OrderID:      p.OrderID,
		Method:       p.Method,
		Status:       p.Status,
		AmountMinor:  p.AmountMinor,
		Currency:     p.Currency,
		GatewayTxnID: p.TxnID(),
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), subject, ev); err != nil {
		s.logger.Errorw("payment event not published", "payment_id", p.ID, "subject", subject, "err", err)
	}
}

// auditJSON marshals audit payloads, which are string maps and plain structs.
// auditJSON encodes an audit payload. Payloads hold only strings and plain
// values, which always encode; the empty object keeps the log row valid JSON
// regardless.
func auditJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return b
}
