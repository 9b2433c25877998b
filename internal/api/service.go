package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"lifelog/internal/entry"
	"lifelog/internal/logging"
	"lifelog/internal/services"
	"lifelog/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// BlobStore abstracts the storage gateway operations the service needs.
type BlobStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) (bool, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// Enqueuer wakes the worker after a pending entry is inserted.
type Enqueuer interface {
	Enqueue(entryID int64, storageKey string)
}

// EntryService exposes the journal operations behind the HTTP handlers and
// the CLI.
type EntryService struct {
	store    *entry.Store
	blobs    BlobStore
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewEntryService wires an entry service.
func NewEntryService(store *entry.Store, blobs BlobStore, enqueuer Enqueuer, logger *slog.Logger) *EntryService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &EntryService{
		store:    store,
		blobs:    blobs,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Create inserts an entry without media. It is terminal from birth and never
// enters the pipeline.
func (s *EntryService) Create(ctx context.Context, ownerID int64, req CreateRequest) (*EntryView, error) {
	params, err := newEntryParams(ownerID, req)
	if err != nil {
		return nil, err
	}

	created, err := s.store.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create entry: %w", err)
	}
	view := s.view(ctx, created)
	return &view, nil
}

// Upload stores a video blob, inserts the pending entry row, and wakes the
// worker. The upload itself is synchronous; enrichment is not.
func (s *EntryService) Upload(ctx context.Context, ownerID int64, filename, contentType string, size int64, body io.Reader, req CreateRequest) (*EntryView, error) {
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "video/") {
		return nil, services.Wrap(services.ErrValidation, "api", "upload", "only video uploads are accepted", nil)
	}

	params, err := newEntryParams(ownerID, req)
	if err != nil {
		return nil, err
	}

	key := storage.NewEntryKey(ownerID, filename)
	if err := s.blobs.Put(ctx, key, body, size, contentType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	params.StorageKey = key
	params.MimeType = contentType
	params.FileSizeBytes = size

	created, err := s.store.Create(ctx, params)
	if err != nil {
		// The blob is orphaned if the row insert fails; best effort removal.
		if _, delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("orphaned upload cleanup failed", logging.String("key", key), logging.Error(delErr))
		}
		return nil, fmt.Errorf("create entry: %w", err)
	}

	if s.enqueuer != nil {
		s.enqueuer.Enqueue(created.ID, key)
	}

	view := s.view(ctx, created)
	return &view, nil
}

// Get fetches one entry with presigned media URLs.
func (s *EntryService) Get(ctx context.Context, id, ownerID int64) (*EntryView, error) {
	ent, err := s.store.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if ent == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "get", fmt.Sprintf("entry %d", id), nil)
	}
	view := s.view(ctx, ent)
	return &view, nil
}

// List returns a filtered page of the owner's entries, newest first.
func (s *EntryService) List(ctx context.Context, ownerID int64, params ListParams) (EntryPage, error) {
	opts, err := listOptions(ownerID, params)
	if err != nil {
		return EntryPage{}, err
	}

	entries, err := s.store.List(ctx, opts)
	if err != nil {
		return EntryPage{}, fmt.Errorf("list entries: %w", err)
	}
	total, err := s.store.Count(ctx, opts)
	if err != nil {
		return EntryPage{}, fmt.Errorf("count entries: %w", err)
	}

	page := EntryPage{
		Entries: make([]EntryView, 0, len(entries)),
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}
	for _, ent := range entries {
		page.Entries = append(page.Entries, s.view(ctx, ent))
	}
	return page, nil
}

// Update applies a partial update of user-authored fields.
func (s *EntryService) Update(ctx context.Context, id, ownerID int64, req UpdateRequest) (*EntryView, error) {
	fields, err := updateFields(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUserFields(ctx, id, ownerID, fields)
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}
	if updated == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "update", fmt.Sprintf("entry %d", id), nil)
	}
	view := s.view(ctx, updated)
	return &view, nil
}

// Delete removes the entry's blobs and then its row. Absent blobs are fine;
// a storage failure aborts so the row never outlives its recovery path.
func (s *EntryService) Delete(ctx context.Context, id, ownerID int64) error {
	ent, err := s.store.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}
	if ent == nil {
		return services.Wrap(services.ErrNotFound, "api", "delete", fmt.Sprintf("entry %d", id), nil)
	}

	for _, key := range []string{ent.StorageKey, ent.ThumbnailKey} {
		if key == "" {
			continue
		}
		if _, err := s.blobs.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete blob %s: %w", key, err)
		}
	}

	removed, err := s.store.Remove(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if !removed {
		return services.Wrap(services.ErrNotFound, "api", "delete", fmt.Sprintf("entry %d", id), nil)
	}
	return nil
}

// ToggleFavorite flips the favorite flag.
func (s *EntryService) ToggleFavorite(ctx context.Context, id, ownerID int64) (*EntryView, error) {
	toggled, err := s.store.ToggleFavorite(ctx, id, ownerID)
	if err != nil {
		return nil, fmt.Errorf("toggle favorite: %w", err)
	}
	if toggled == nil {
		return nil, services.Wrap(services.ErrNotFound, "api", "favorite", fmt.Sprintf("entry %d", id), nil)
	}
	view := s.view(ctx, toggled)
	return &view, nil
}

// Reprocess returns a finished media-backed entry to the queue and wakes the
// worker. Entries without media, still in flight, or missing are rejected.
func (s *EntryService) Reprocess(ctx context.Context, id, ownerID int64) error {
	ent, err := s.store.GetForOwner(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("get entry: %w", err)
	}
	if ent == nil {
		return services.Wrap(services.ErrNotFound, "api", "reprocess", fmt.Sprintf("entry %d", id), nil)
	}

	matched, err := s.store.Reprocess(ctx, id, ownerID)
	if err != nil {
		return fmt.Errorf("reprocess entry: %w", err)
	}
	if !matched {
		return services.Wrap(services.ErrValidation, "api", "reprocess", "entry has no media or is not finished", nil)
	}

	if s.enqueuer != nil {
		s.enqueuer.Enqueue(id, ent.StorageKey)
	}
	return nil
}

func newEntryParams(ownerID int64, req CreateRequest) (entry.NewEntry, error) {
	if ownerID <= 0 {
		return entry.NewEntry{}, services.Wrap(services.ErrValidation, "api", "create", "owner id is required", nil)
	}
	// Zero means the field was omitted and the store default applies.
	if req.MoodIntensity != 0 && (req.MoodIntensity < 1 || req.MoodIntensity > 10) {
		return entry.NewEntry{}, services.Wrap(services.ErrValidation, "api", "create", "mood intensity must be between 1 and 10", nil)
	}

	params := entry.NewEntry{
		OwnerID:       ownerID,
		Title:         strings.TrimSpace(req.Title),
		Note:          req.Note,
		Mood:          strings.TrimSpace(req.Mood),
		MoodIntensity: req.MoodIntensity,
		ManualTags:    req.ManualTags,
		Location:      strings.TrimSpace(req.Location),
		Weather:       strings.TrimSpace(req.Weather),
		IsPrivate:     req.IsPrivate,
	}
	if req.RecordedAt != "" {
		recordedAt, err := time.Parse(time.RFC3339, req.RecordedAt)
		if err != nil {
			return entry.NewEntry{}, services.Wrap(services.ErrValidation, "api", "create", "recordedAt must be RFC3339", err)
		}
		params.RecordedAt = recordedAt
	}
	return params, nil
}

func updateFields(req UpdateRequest) (entry.UpdateFields, error) {
	fields := entry.UpdateFields{
		Title:         req.Title,
		Note:          req.Note,
		Mood:          req.Mood,
		MoodIntensity: req.MoodIntensity,
		ManualTags:    req.ManualTags,
		Location:      req.Location,
		Weather:       req.Weather,
		IsPrivate:     req.IsPrivate,
	}
	if req.MoodIntensity != nil && (*req.MoodIntensity < 1 || *req.MoodIntensity > 10) {
		return entry.UpdateFields{}, services.Wrap(services.ErrValidation, "api", "update", "mood intensity must be between 1 and 10", nil)
	}
	if req.RecordedAt != nil {
		recordedAt, err := time.Parse(time.RFC3339, *req.RecordedAt)
		if err != nil {
			return entry.UpdateFields{}, services.Wrap(services.ErrValidation, "api", "update", "recordedAt must be RFC3339", err)
		}
		fields.RecordedAt = &recordedAt
	}
	return fields, nil
}

func listOptions(ownerID int64, params ListParams) (entry.ListOptions, error) {
	opts := entry.ListOptions{
		OwnerID:       ownerID,
		Mood:          params.Mood,
		Tag:           params.Tag,
		FavoritesOnly: params.FavoritesOnly,
		Limit:         params.Limit,
		Offset:        params.Offset,
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if params.Since != "" {
		since, err := time.Parse(time.RFC3339, params.Since)
		if err != nil {
			return entry.ListOptions{}, services.Wrap(services.ErrValidation, "api", "list", "since must be RFC3339", err)
		}
		opts.Since = &since
	}
	if params.Until != "" {
		until, err := time.Parse(time.RFC3339, params.Until)
		if err != nil {
			return entry.ListOptions{}, services.Wrap(services.ErrValidation, "api", "list", "until must be RFC3339", err)
		}
		opts.Until = &until
	}
	return opts, nil
}
