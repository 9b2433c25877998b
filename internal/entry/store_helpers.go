package entry

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const entryColumns = `id, owner_id, storage_key, mime_type, file_size_bytes,
    thumbnail_key, duration_seconds, transcript, summary, auto_tags, sentiment_score,
    title, note, mood, mood_intensity, manual_tags, location, weather,
    is_favorite, is_private, status, last_heartbeat, recorded_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		ent           Entry
		storageKey    sql.NullString
		mimeType      sql.NullString
		thumbnailKey  sql.NullString
		duration      sql.NullFloat64
		transcript    sql.NullString
		summary       sql.NullString
		autoTags      sql.NullString
		sentiment     sql.NullFloat64
		title         sql.NullString
		note          sql.NullString
		mood          sql.NullString
		manualTags    sql.NullString
		location      sql.NullString
		weather       sql.NullString
		status        string
		lastHeartbeat sql.NullString
		recordedAt    string
		createdAt     string
		updatedAt     string
	)

	err := row.Scan(
		&ent.ID,
		&ent.OwnerID,
		&storageKey,
		&mimeType,
		&ent.FileSizeBytes,
		&thumbnailKey,
		&duration,
		&transcript,
		&summary,
		&autoTags,
		&sentiment,
		&title,
		&note,
		&mood,
		&ent.MoodIntensity,
		&manualTags,
		&location,
		&weather,
		&ent.IsFavorite,
		&ent.IsPrivate,
		&status,
		&lastHeartbeat,
		&recordedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	ent.StorageKey = storageKey.String
	ent.MimeType = mimeType.String
	ent.ThumbnailKey = thumbnailKey.String
	ent.Transcript = transcript.String
	ent.Summary = summary.String
	ent.Title = title.String
	ent.Note = note.String
	ent.Mood = mood.String
	ent.Location = location.String
	ent.Weather = weather.String
	ent.Status = Status(status)

	if duration.Valid {
		v := duration.Float64
		ent.DurationSeconds = &v
	}
	if sentiment.Valid {
		v := sentiment.Float64
		ent.SentimentScore = &v
	}

	if ent.AutoTags, err = unmarshalTags(autoTags.String); err != nil {
		return nil, fmt.Errorf("decode auto tags for entry %d: %w", ent.ID, err)
	}
	if ent.ManualTags, err = unmarshalTags(manualTags.String); err != nil {
		return nil, fmt.Errorf("decode manual tags for entry %d: %w", ent.ID, err)
	}

	if lastHeartbeat.Valid && lastHeartbeat.String != "" {
		ts, err := parseTimeString(lastHeartbeat.String)
		if err != nil {
			return nil, fmt.Errorf("parse last heartbeat for entry %d: %w", ent.ID, err)
		}
		ent.LastHeartbeat = &ts
	}

	if ent.RecordedAt, err = parseTimeString(recordedAt); err != nil {
		return nil, fmt.Errorf("parse recorded_at for entry %d: %w", ent.ID, err)
	}
	if ent.CreatedAt, err = parseTimeString(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at for entry %d: %w", ent.ID, err)
	}
	if ent.UpdatedAt, err = parseTimeString(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at for entry %d: %w", ent.ID, err)
	}

	return &ent, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableFloat(value *float64) any {
	if value == nil {
		return nil
	}
	return *value
}

// marshalTags encodes a tag list as JSON text. Empty lists become NULL so the
// column reads back the same way it was written.
func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

func unmarshalTags(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

func parseTimeString(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}
