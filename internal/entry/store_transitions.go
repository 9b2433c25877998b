package entry

import (
	"context"
	"fmt"
	"time"
)

// ClaimForProcessing attempts the pending to running transition for a single
// entry. Exactly one concurrent caller wins; the rest see false.
func (s *Store) ClaimForProcessing(ctx context.Context, id int64) (bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET status = ?, last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusRunning,
		now,
		now,
		id,
		StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Heartbeat refreshes the liveness timestamp of a running entry so the stale
// reclaimer leaves it alone.
func (s *Store) Heartbeat(ctx context.Context, id int64) error {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("heartbeat entry %d: %w", id, err)
	}
	return nil
}

// FinishProcessing writes the derived fields and marks the entry done in a
// single statement. Only a running entry can finish: an entry deleted
// mid-run, or one a stale reclaim already handed back to pending, is not an
// error; the update simply finds no row and reports false.
func (s *Store) FinishProcessing(ctx context.Context, id int64, derived Derived) (bool, error) {
	autoTags, err := marshalTags(derived.AutoTags)
	if err != nil {
		return false, fmt.Errorf("encode auto tags: %w", err)
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET
            thumbnail_key = ?,
            duration_seconds = ?,
            transcript = ?,
            summary = ?,
            auto_tags = ?,
            sentiment_score = ?,
            status = ?,
            last_heartbeat = NULL,
            updated_at = ?
        WHERE id = ? AND status = ?`,
		nullableString(derived.ThumbnailKey),
		nullableFloat(derived.DurationSeconds),
		nullableString(derived.Transcript),
		nullableString(derived.Summary),
		autoTags,
		nullableFloat(derived.SentimentScore),
		StatusDone,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusRunning,
	)
	if err != nil {
		return false, fmt.Errorf("finish entry %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Reprocess returns a finished media-backed entry to the pending state and
// clears its derived fields. Entries without media or still in flight are
// left alone.
func (s *Store) Reprocess(ctx context.Context, id, ownerID int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET
            thumbnail_key = NULL,
            duration_seconds = NULL,
            transcript = NULL,
            summary = NULL,
            auto_tags = NULL,
            sentiment_score = NULL,
            status = ?,
            last_heartbeat = NULL,
            updated_at = ?
        WHERE id = ? AND owner_id = ? AND status = ? AND storage_key IS NOT NULL`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		ownerID,
		StatusDone,
	)
	if err != nil {
		return false, fmt.Errorf("reprocess entry %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ReclaimStaleRunning returns running entries whose heartbeat predates the
// cutoff to pending so another worker can pick them up. It reports the ids
// that were reclaimed.
func (s *Store) ReclaimStaleRunning(ctx context.Context, cutoff time.Time) ([]int64, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id FROM entries WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		StatusRunning,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("find stale entries: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		_, err := s.execWithRetry(
			ctx,
			`UPDATE entries SET status = ?, last_heartbeat = NULL, updated_at = ? WHERE id = ? AND status = ?`,
			StatusPending,
			now,
			id,
			StatusRunning,
		)
		if err != nil {
			return nil, fmt.Errorf("reclaim entry %d: %w", id, err)
		}
	}
	return ids, nil
}

// ResetStuckRunning returns every running entry to pending. Called once at
// daemon startup, before any worker runs, to recover from a crash that left
// claims behind.
func (s *Store) ResetStuckRunning(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET status = ?, last_heartbeat = NULL, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck entries: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return affected, nil
}
