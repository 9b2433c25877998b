package storage

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	entryPrefix     = "entries"
	thumbnailPrefix = "thumbnails"
)

// NewEntryKey builds the storage key for an uploaded video, preserving the
// original file extension. Keys group blobs by owner:
// entries/{ownerID}/{uuid}{ext}.
func NewEntryKey(ownerID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".mp4"
	}
	return fmt.Sprintf("%s/%d/%s%s", entryPrefix, ownerID, uuid.New(), ext)
}

// ThumbnailKeyFor derives the thumbnail key for a source video key, keeping
// the owner segment and blob id: thumbnails/{ownerID}/{uuid}.jpg.
func ThumbnailKeyFor(storageKey string) string {
	base := path.Base(storageKey)
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	owner, err := OwnerFromKey(storageKey)
	if err != nil {
		return path.Join(thumbnailPrefix, base+".jpg")
	}
	return fmt.Sprintf("%s/%d/%s.jpg", thumbnailPrefix, owner, base)
}

// OwnerFromKey extracts the owner id from a storage key's second path
// segment.
func OwnerFromKey(storageKey string) (int64, error) {
	parts := strings.Split(strings.Trim(storageKey, "/"), "/")
	if len(parts) < 3 {
		return 0, fmt.Errorf("storage key %q has no owner segment", storageKey)
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("storage key %q has non-numeric owner segment: %w", storageKey, err)
	}
	return owner, nil
}
