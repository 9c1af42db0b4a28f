package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// retriableCodes are Postgres SQLSTATE codes worth retrying: serialization
// failures and deadlocks from concurrent writers racing the same object or
// branch row.
var retriableCodes = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
}

func isRetriable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return retriableCodes[pgErr.Code]
	}
	return false
}

const (
	maxRetries = 3
	retryBase  = 20 * time.Millisecond
)

// withRetry runs fn, retrying transient serialization/deadlock failures
// with linear backoff.
func withRetry(ctx context.Context, logger *slog.Logger, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !isRetriable(err) {
			return err
		}
		logger.Info("postgres: retrying after transient error", "op", op, "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBase):
		}
	}
	return err
}
