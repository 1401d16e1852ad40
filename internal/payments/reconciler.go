package payments

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ReconcilerConfig struct {
	Interval time.Duration
	// After is how old an INITIATED payment must be before it is re-verified.
	After time.Duration
	Batch int
}

// Reconciler re-verifies payments that never received a conclusive callback.
type Reconciler struct {
	svc    *Service
	cfg    ReconcilerConfig
	logger *zap.SugaredLogger
	now    func() time.Time

	mu sync.Mutex
	// cursor is where the next pass resumes; nil starts from the oldest row.
	cursor *ListCursor
}

func NewReconciler(svc *Service, cfg ReconcilerConfig, logger *zap.SugaredLogger) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.After <= 0 {
		cfg.After = 15 * time.Minute
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	return &Reconciler{svc: svc, cfg: cfg, logger: logger, now: time.Now}
}

// Run reconciles once immediately and then on every tick until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if n, err := r.RunOnce(ctx); err != nil {
			r.logger.Errorw("reconciliation pass failed", "err", err)
		} else if n > 0 {
			r.logger.Infow("reconciliation pass finished", "settled", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce re-verifies one batch of stale INITIATED provider payments and reports
// how many reached a terminal status. Successive passes walk the backlog in
// creation order and start over once they reach its end, so rows that keep
// answering PENDING do not hide the ones behind them.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	methods := r.svc.ProviderMethods()
	if len(methods) == 0 {
		return 0, nil
	}

	status := StatusInitiated
	before := r.now().Add(-r.cfg.After)
	list, _, err := r.svc.ListForReconciliation(ctx, ListFilter{
		Status:  &status,
		Methods: methods,
		Started: true,
		Before:  &before,
		After:   r.cursor,
		Limit:   r.cfg.Batch,
	})
	if err != nil {
		return 0, err
	}
	if len(list) < r.cfg.Batch {
		r.cursor = nil
	} else {
		r.cursor = CursorOf(list[len(list)-1])
	}

	settled := 0
	for _, p := range list {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		res, err := r.svc.Reverify(ctx, p)
		if err != nil {
			r.logger.Warnw("reconcile verify failed", "payment_id", p.ID, "method", p.Method, "err", err)
			continue
		}
		if res.target() != "" {
			settled++
		}
	}
	return settled, nil
}
