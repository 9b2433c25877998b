package api

import (
	"context"
	"time"

	"lifelog/internal/entry"
	"lifelog/internal/logging"
)

// view converts a store entry into its transport shape, attaching presigned
// media URLs. Presigning is best effort: a storage hiccup degrades the view
// instead of failing the request.
func (s *EntryService) view(ctx context.Context, ent *entry.Entry) EntryView {
	view := EntryView{
		ID:              ent.ID,
		OwnerID:         ent.OwnerID,
		Title:           ent.Title,
		Note:            ent.Note,
		Mood:            ent.Mood,
		MoodIntensity:   ent.MoodIntensity,
		ManualTags:      ent.ManualTags,
		Location:        ent.Location,
		Weather:         ent.Weather,
		IsFavorite:      ent.IsFavorite,
		IsPrivate:       ent.IsPrivate,
		HasMedia:        ent.HasMedia(),
		MimeType:        ent.MimeType,
		FileSizeBytes:   ent.FileSizeBytes,
		DurationSeconds: ent.DurationSeconds,
		Transcript:      ent.Transcript,
		Summary:         ent.Summary,
		AutoTags:        ent.AutoTags,
		SentimentScore:  ent.SentimentScore,
		Status:          string(ent.Status),
		IsProcessed:     ent.IsProcessed(),
		RecordedAt:      ent.RecordedAt.UTC().Format(time.RFC3339),
		CreatedAt:       ent.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       ent.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if s.blobs != nil {
		if ent.StorageKey != "" {
			if url, err := s.blobs.PresignGet(ctx, ent.StorageKey); err == nil {
				view.VideoURL = url
			} else {
				s.logger.Warn("presign video url failed", logging.Int64(logging.FieldEntryID, ent.ID), logging.Error(err))
			}
		}
		if ent.ThumbnailKey != "" {
			if url, err := s.blobs.PresignGet(ctx, ent.ThumbnailKey); err == nil {
				view.ThumbnailURL = url
			} else {
				s.logger.Warn("presign thumbnail url failed", logging.Int64(logging.FieldEntryID, ent.ID), logging.Error(err))
			}
		}
	}

	return view
}

// StatusFromSummary shapes store health and failure counters for transport.
func StatusFromSummary(running bool, summary entry.HealthSummary, failures map[string]map[string]uint64) StatusView {
	return StatusView{
		Running: running,
		Entries: EntryCounts{
			Total:   summary.Total,
			NoMedia: summary.NoMedia,
			Pending: summary.Pending,
			Running: summary.Running,
			Done:    summary.Done,
		},
		StageFailures: failures,
	}
}
