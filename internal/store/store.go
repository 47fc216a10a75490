// Package store is the row-store collaborator: every write is an idempotent
// keyed upsert, so re-running a batch over the same input is a no-op and a
// failed write can always be retried from scratch. Postgres backs production;
// SQLite backs local runs; Memory backs tests.
package store

import (
	"context"
	"errors"
	"time"

	"prop-reconciler/internal/records"
)

// Store is the storage contract the pipeline depends on. Upserts are
// last-write-wins on the record's conflict key.
type Store interface {
	UpsertProplines(ctx context.Context, rows []records.ProplineRecord) error
	UpsertGameLogs(ctx context.Context, rows []records.GameLogRecord) error
	UpsertOutcomes(ctx context.Context, rows []records.MatchedOutcome) error
	UpsertStreaks(ctx context.Context, rows []records.StreakResult) error

	// RegisterPlayerAlias is insert-if-absent: when an alias row already
	// exists for (source, raw id), the stored canonical id wins and is
	// returned; only the observation count and last-seen move. Safe under
	// concurrent registration of the same raw pair.
	RegisterPlayerAlias(ctx context.Context, alias records.PlayerAlias) (records.PlayerAlias, error)
	PlayerAliases(ctx context.Context) ([]records.PlayerAlias, error)

	UpsertPropTypeAliases(ctx context.Context, rows []records.PropTypeAlias) error
	PropTypeAliases(ctx context.Context) ([]records.PropTypeAlias, error)

	Close() error
}

// Upsert batch size, following the ingestion side's 250-row chunks.
const ChunkSize = 250

// Retry policy for transient storage failures.
const (
	RetryAttempts     = 3
	RetryInitialDelay = 200 * time.Millisecond
)

// Chunk splits rows into ChunkSize batches.
func Chunk[T any](rows []T) [][]T {
	if len(rows) == 0 {
		return nil
	}
	var out [][]T
	for start := 0; start < len(rows); start += ChunkSize {
		end := start + ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		out = append(out, rows[start:end])
	}
	return out
}

// WithRetry runs fn with bounded exponential backoff. Retrying is always
// safe because every store write is a keyed upsert. The context cancels the
// backoff wait as well as the attempts.
func WithRetry(ctx context.Context, fn func(context.Context) error) error {
	delay := RetryInitialDelay
	var lastErr error

	for attempt := 0; attempt < RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(ctx.Err(), lastErr)
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := fn(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
