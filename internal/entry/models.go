package entry

import (
	"strings"
	"time"
)

// Status represents the enrichment lifecycle of an entry.
//
// Entries created without a video are born in StatusNone and never enter the
// pipeline. Entries with media move pending -> running -> done; the running
// state is claimed with a compare-and-set so duplicate triggers cannot start
// two runs for the same entry.
type Status string

const (
	StatusNone    Status = "none"
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
)

var allStatuses = []Status{StatusNone, StatusPending, StatusRunning, StatusDone}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Entry represents one journal record persisted in SQLite.
type Entry struct {
	ID      int64
	OwnerID int64

	// Source media, set once at upload time.
	StorageKey    string
	MimeType      string
	FileSizeBytes int64

	// Derived fields, written only by the pipeline.
	ThumbnailKey    string
	DurationSeconds *float64
	Transcript      string
	Summary         string
	AutoTags        []string
	SentimentScore  *float64

	// User-authored fields, never touched by the pipeline.
	Title         string
	Note          string
	Mood          string
	MoodIntensity int
	ManualTags    []string
	Location      string
	Weather       string

	IsFavorite bool
	IsPrivate  bool

	Status        Status
	LastHeartbeat *time.Time

	RecordedAt time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasMedia reports whether the entry is backed by an uploaded video.
func (e *Entry) HasMedia() bool {
	return e.StorageKey != ""
}

// IsProcessed reports whether the pipeline has finished with this entry.
// Media-less entries are terminal from birth and count as processed.
func (e *Entry) IsProcessed() bool {
	return e.Status == StatusDone || e.Status == StatusNone
}

// AllTags merges manual and derived tags, preserving order and dropping duplicates.
func (e *Entry) AllTags() []string {
	seen := make(map[string]struct{}, len(e.ManualTags)+len(e.AutoTags))
	merged := make([]string, 0, len(e.ManualTags)+len(e.AutoTags))
	for _, group := range [][]string{e.ManualTags, e.AutoTags} {
		for _, tag := range group {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	return merged
}

// Derived carries the pipeline's output for the single finishing write.
// Zero values mean the corresponding stage failed or was skipped and the
// column stays NULL.
type Derived struct {
	ThumbnailKey    string
	DurationSeconds *float64
	Transcript      string
	Summary         string
	AutoTags        []string
	SentimentScore  *float64
}

// NewEntry describes an entry to insert.
type NewEntry struct {
	OwnerID       int64
	StorageKey    string
	MimeType      string
	FileSizeBytes int64
	Title         string
	Note          string
	Mood          string
	MoodIntensity int
	ManualTags    []string
	Location      string
	Weather       string
	// Entries are private unless explicitly shared; nil keeps the default.
	IsPrivate  *bool
	RecordedAt time.Time
}

// UpdateFields describes a partial update of user-authored fields.
// Nil pointers leave the corresponding column untouched.
type UpdateFields struct {
	Title         *string
	Note          *string
	Mood          *string
	MoodIntensity *int
	ManualTags    *[]string
	Location      *string
	Weather       *string
	IsPrivate     *bool
	RecordedAt    *time.Time
}

// HealthSummary describes aggregated entry counts per lifecycle state.
type HealthSummary struct {
	Total   int
	NoMedia int
	Pending int
	Running int
	Done    int
}

// ListOptions filters and paginates owner-scoped entry listings.
type ListOptions struct {
	OwnerID       int64
	Mood          string
	Tag           string
	Since         *time.Time
	Until         *time.Time
	FavoritesOnly bool
	Limit         int
	Offset        int
}
