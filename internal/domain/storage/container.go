package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"pasal/internal/domain/accesscontrol"
	"pasal/internal/domain/gatewayconfigs"
	"pasal/internal/domain/paymentsrepo"
	"pasal/internal/infra/dbx"
	"pasal/internal/payments"
)

type Container struct {
	pool          *pgxpool.Pool
	logger        *zap.SugaredLogger
	AccessControl accesscontrol.Store
	Configs       *gatewayconfigs.Repository
	Payments      *paymentsrepo.Repository
	PayLogs       *paymentsrepo.LogsRepository
}

var _ payments.Storage = (*Container)(nil)

func NewContainer(db *pgxpool.Pool, logger *zap.SugaredLogger) *Container {
	return &Container{
		pool:          db,
		logger:        logger,
		AccessControl: accesscontrol.NewRepository(db),
		Configs:       gatewayconfigs.NewRepository(db),
		Payments:      paymentsrepo.NewRepository(db),
		PayLogs:       paymentsrepo.NewLogsRepository(db),
	}
}

func reposOver(q dbx.Querier) payments.Repos {
	return payments.Repos{
		Configs:  gatewayconfigs.NewRepository(q),
		Payments: paymentsrepo.NewRepository(q),
		Logs:     paymentsrepo.NewLogsRepository(q),
	}
}

// Repos returns pool-backed repositories.
func (c *Container) Repos() payments.Repos {
	return payments.Repos{Configs: c.Configs, Payments: c.Payments, Logs: c.PayLogs}
}

// WithTx runs a payments unit of work atomically. The repositories handed to fn
// are bound to the transaction.
func (c *Container) WithTx(ctx context.Context, fn func(r payments.Repos) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(reposOver(tx)); err != nil {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && c.logger != nil {
			c.logger.Errorw("failed to rollback transaction", "err", rbErr, "original_err", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
