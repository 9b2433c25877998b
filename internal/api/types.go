package api

// EntryView describes a journal entry in a transport-friendly format.
type EntryView struct {
	ID              int64    `json:"id"`
	OwnerID         int64    `json:"ownerId"`
	Title           string   `json:"title,omitempty"`
	Note            string   `json:"note,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	MoodIntensity   int      `json:"moodIntensity"`
	ManualTags      []string `json:"manualTags,omitempty"`
	Location        string   `json:"location,omitempty"`
	Weather         string   `json:"weather,omitempty"`
	IsFavorite      bool     `json:"isFavorite"`
	IsPrivate       bool     `json:"isPrivate"`
	HasMedia        bool     `json:"hasMedia"`
	VideoURL        string   `json:"videoUrl,omitempty"`
	ThumbnailURL    string   `json:"thumbnailUrl,omitempty"`
	MimeType        string   `json:"mimeType,omitempty"`
	FileSizeBytes   int64    `json:"fileSizeBytes,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Transcript      string   `json:"transcript,omitempty"`
	Summary         string   `json:"summary,omitempty"`
	AutoTags        []string `json:"autoTags,omitempty"`
	SentimentScore  *float64 `json:"sentimentScore,omitempty"`
	Status          string   `json:"status"`
	IsProcessed     bool     `json:"isProcessed"`
	RecordedAt      string   `json:"recordedAt"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

// EntryPage wraps a filtered listing with pagination totals.
type EntryPage struct {
	Entries []EntryView `json:"entries"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// CreateRequest carries the user-authored fields for a new entry.
type CreateRequest struct {
	Title         string   `json:"title"`
	Note          string   `json:"note"`
	Mood          string   `json:"mood"`
	MoodIntensity int      `json:"moodIntensity"`
	ManualTags    []string `json:"manualTags"`
	Location      string   `json:"location"`
	Weather       string   `json:"weather"`
	// Nil keeps the private-by-default policy.
	IsPrivate  *bool  `json:"isPrivate"`
	RecordedAt string `json:"recordedAt"`
}

// UpdateRequest carries a partial update; nil fields stay untouched.
type UpdateRequest struct {
	Title         *string   `json:"title"`
	Note          *string   `json:"note"`
	Mood          *string   `json:"mood"`
	MoodIntensity *int      `json:"moodIntensity"`
	ManualTags    *[]string `json:"manualTags"`
	Location      *string   `json:"location"`
	Weather       *string   `json:"weather"`
	IsPrivate     *bool     `json:"isPrivate"`
	RecordedAt    *string   `json:"recordedAt"`
}

// ListParams filters and paginates entry listings.
type ListParams struct {
	Mood          string
	Tag           string
	Since         string
	Until         string
	FavoritesOnly bool
	Limit         int
	Offset        int
}

// StatusView summarizes daemon health for the status endpoint and CLI.
type StatusView struct {
	Running       bool                         `json:"running"`
	Entries       EntryCounts                  `json:"entries"`
	StageFailures map[string]map[string]uint64 `json:"stageFailures,omitempty"`
}

// EntryCounts mirrors the store's health summary.
type EntryCounts struct {
	Total   int `json:"total"`
	NoMedia int `json:"noMedia"`
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
}
