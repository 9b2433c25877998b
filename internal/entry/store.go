package entry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"lifelog/internal/config"
)

// Store manages entry persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the entry database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new entry. Entries with a storage key start pending;
// entries without media are terminal from birth.
func (s *Store) Create(ctx context.Context, params NewEntry) (*Entry, error) {
	if params.OwnerID <= 0 {
		return nil, errors.New("owner id is required")
	}
	now := time.Now().UTC()
	recordedAt := params.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = now
	}

	status := StatusNone
	if strings.TrimSpace(params.StorageKey) != "" {
		status = StatusPending
	}

	manualTags, err := marshalTags(params.ManualTags)
	if err != nil {
		return nil, fmt.Errorf("encode manual tags: %w", err)
	}

	moodIntensity := params.MoodIntensity
	if moodIntensity <= 0 {
		moodIntensity = 5
	}

	isPrivate := true
	if params.IsPrivate != nil {
		isPrivate = *params.IsPrivate
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO entries (
            owner_id, storage_key, mime_type, file_size_bytes,
            title, note, mood, mood_intensity, manual_tags, location, weather, is_private,
            status, recorded_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		params.OwnerID,
		nullableString(params.StorageKey),
		nullableString(params.MimeType),
		params.FileSizeBytes,
		nullableString(params.Title),
		nullableString(params.Note),
		nullableString(params.Mood),
		moodIntensity,
		manualTags,
		nullableString(params.Location),
		nullableString(params.Weather),
		isPrivate,
		status,
		recordedAt.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches an entry by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	ent, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return ent, nil
}

// GetForOwner fetches an entry scoped to its owner. Returns nil when absent
// or owned by someone else.
func (s *Store) GetForOwner(ctx context.Context, id, ownerID int64) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	ent, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry for owner: %w", err)
	}
	return ent, nil
}

// List returns entries matching the options, newest recording first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	where, args := buildListFilter(opts)
	query := `SELECT ` + entryColumns + ` FROM entries` + where + ` ORDER BY recorded_at DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		ent, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ent)
	}
	return entries, rows.Err()
}

// Count returns the number of entries matching the options, ignoring pagination.
func (s *Store) Count(ctx context.Context, opts ListOptions) (int, error) {
	where, args := buildListFilter(opts)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return count, nil
}

// UpdateUserFields applies a partial update of user-authored fields and bumps
// updated_at. Returns the refreshed entry, or nil when the row is absent.
func (s *Store) UpdateUserFields(ctx context.Context, id, ownerID int64, fields UpdateFields) (*Entry, error) {
	sets := make([]string, 0, 8)
	args := make([]any, 0, 10)

	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if fields.Title != nil {
		appendSet("title", nullableString(*fields.Title))
	}
	if fields.Note != nil {
		appendSet("note", nullableString(*fields.Note))
	}
	if fields.Mood != nil {
		appendSet("mood", nullableString(*fields.Mood))
	}
	if fields.MoodIntensity != nil {
		appendSet("mood_intensity", *fields.MoodIntensity)
	}
	if fields.ManualTags != nil {
		encoded, err := marshalTags(*fields.ManualTags)
		if err != nil {
			return nil, fmt.Errorf("encode manual tags: %w", err)
		}
		appendSet("manual_tags", encoded)
	}
	if fields.Location != nil {
		appendSet("location", nullableString(*fields.Location))
	}
	if fields.Weather != nil {
		appendSet("weather", nullableString(*fields.Weather))
	}
	if fields.IsPrivate != nil {
		appendSet("is_private", *fields.IsPrivate)
	}
	if fields.RecordedAt != nil {
		appendSet("recorded_at", fields.RecordedAt.UTC().Format(time.RFC3339Nano))
	}

	if len(sets) == 0 {
		return s.GetForOwner(ctx, id, ownerID)
	}

	appendSet("updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	args = append(args, id, ownerID)

	query := `UPDATE entries SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND owner_id = ?`
	if _, err := s.execWithRetry(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	return s.GetForOwner(ctx, id, ownerID)
}

// ToggleFavorite flips the favorite flag and returns the refreshed entry.
func (s *Store) ToggleFavorite(ctx context.Context, id, ownerID int64) (*Entry, error) {
	_, err := s.execWithRetry(
		ctx,
		`UPDATE entries SET is_favorite = NOT is_favorite, updated_at = ? WHERE id = ? AND owner_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	return s.GetForOwner(ctx, id, ownerID)
}

// Remove deletes an entry row. The caller is responsible for releasing any
// storage blobs first. Returns false when no row matched.
func (s *Store) Remove(ctx context.Context, id, ownerID int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM entries WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// NextPending returns the oldest entry awaiting enrichment, or nil.
func (s *Store) NextPending(ctx context.Context) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM entries WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	)
	ent, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending: %w", err)
	}
	return ent, nil
}

// HealthSummary aggregates entry counts per lifecycle state.
func (s *Store) HealthSummary(ctx context.Context) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM entries GROUP BY status`)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health summary: %w", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, err
		}
		summary.Total += count
		switch Status(status) {
		case StatusNone:
			summary.NoMedia += count
		case StatusPending:
			summary.Pending += count
		case StatusRunning:
			summary.Running += count
		case StatusDone:
			summary.Done += count
		}
	}
	return summary, rows.Err()
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func buildListFilter(opts ListOptions) (string, []any) {
	clauses := make([]string, 0, 6)
	args := make([]any, 0, 6)

	if opts.OwnerID > 0 {
		clauses = append(clauses, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if mood := strings.TrimSpace(opts.Mood); mood != "" {
		clauses = append(clauses, "mood = ?")
		args = append(args, mood)
	}
	if tag := strings.TrimSpace(opts.Tag); tag != "" {
		pattern := `%"` + tag + `"%`
		clauses = append(clauses, "(manual_tags LIKE ? OR auto_tags LIKE ?)")
		args = append(args, pattern, pattern)
	}
	if opts.Since != nil {
		clauses = append(clauses, "recorded_at >= ?")
		args = append(args, opts.Since.UTC().Format(time.RFC3339Nano))
	}
	if opts.Until != nil {
		clauses = append(clauses, "recorded_at <= ?")
		args = append(args, opts.Until.UTC().Format(time.RFC3339Nano))
	}
	if opts.FavoritesOnly {
		clauses = append(clauses, "is_favorite = 1")
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
