package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	txctx "civitas/pkg/platform/tx"
)

const serializationFailure = "40001"

// TxRunner executes callbacks inside serializable transactions. The *sql.Tx
// travels in the context so tx-aware stores pick it up transparently, which
// lets one transaction span several feature stores.
//
// Serialization failures (SQLSTATE 40001) are retried a bounded number of
// times; callbacks must therefore be idempotent up to their own writes.
type TxRunner struct {
	db         *sql.DB
	logger     *slog.Logger
	maxRetries int
}

func NewTxRunner(db *sql.DB, logger *slog.Logger, maxRetries int) *TxRunner {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &TxRunner{db: db, logger: logger, maxRetries: maxRetries}
}

func (r *TxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		lastErr = r.runOnce(ctx, fn)
		if lastErr == nil {
			return nil
		}
		if !isSerializationFailure(lastErr) {
			return lastErr
		}
		r.logger.WarnContext(ctx, "serialization failure, retrying transaction",
			"attempt", attempt,
			"max_retries", r.maxRetries,
		)
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", r.maxRetries, lastErr)
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(txctx.WithTx(ctx, tx)); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			r.logger.WarnContext(ctx, "rollback failed", "error", rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}
