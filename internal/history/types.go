// Package history implements the HistoryStore: a durable, key-by-id record
// of completed and in-flight downloads on an embedded SQLite database, with
// versioned migrations, baseline detection for pre-existing databases, and
// a one-time import from a legacy JSON file.
package history

import "time"

// Status mirrors queue.Status as the string persisted in download_history.
// Kept as an independent type (rather than importing internal/queue) so the
// storage layer has no dependency on the in-memory job model.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// Kind mirrors format.Kind as the string persisted in download_history.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Origin mirrors queue.Origin as the string persisted in download_history.
type Origin string

const (
	OriginManual       Origin = "manual"
	OriginSubscription Origin = "subscription"
)

// PlaylistContext is the denormalized playlist tuple carried on a
// HistoryRecord produced from a playlist expansion.
type PlaylistContext struct {
	PlaylistID    string
	PlaylistTitle string
	PlaylistIndex int
	PlaylistSize  int
}

// HistoryRecord is the superset of DownloadTask fields that survive
// termination; see spec §3.
type HistoryRecord struct {
	ID             string
	URL            string
	Title          string
	Thumbnail      string
	Kind           Kind
	Status         Status
	DownloadPath   string
	SavedFileName  string
	FileSize       int64
	Duration       int
	DownloadedAt   time.Time
	CompletedAt    *time.Time
	SortKey        int64
	Error          string
	Description    string
	Channel        string
	Uploader       string
	ViewCount      int64
	Tags           []string
	Origin         Origin
	SubscriptionID string
	SelectedFormat string // JSON text, opaque to the store

	Playlist *PlaylistContext
}

// SubscriptionPlatform enumerates the feed sources a Subscription may poll.
type SubscriptionPlatform string

const (
	PlatformYouTube  SubscriptionPlatform = "youtube"
	PlatformBilibili SubscriptionPlatform = "bilibili"
	PlatformCustom   SubscriptionPlatform = "custom"
)

// SubscriptionStatus is the scheduler-maintained polling state.
type SubscriptionStatus string

const (
	SubscriptionIdle     SubscriptionStatus = "idle"
	SubscriptionChecking SubscriptionStatus = "checking"
	SubscriptionUpToDate SubscriptionStatus = "up_to_date"
	SubscriptionFailed   SubscriptionStatus = "failed"
)

// Subscription is a periodically-polled RSS/Atom feed whose new items are
// enqueued into the DownloadEngine.
type Subscription struct {
	ID                      string
	Title                   string
	SourceURL               string
	FeedURL                 string
	Platform                SubscriptionPlatform
	Keywords                []string
	Tags                    []string
	OnlyLatest              bool
	Enabled                 bool
	CoverURL                string
	LatestVideoTitle        string
	LatestVideoPublishedAt  *time.Time
	LastCheckedAt           *time.Time
	LastSuccessAt           *time.Time
	Status                  SubscriptionStatus
	LastError               string
	CreatedAt               time.Time
	UpdatedAt               time.Time
	DownloadDirectory       string
	NamingTemplate          string
}

// SubscriptionItem is one feed entry a Subscription has already seen,
// keyed by (SubscriptionID, ItemID).
type SubscriptionItem struct {
	SubscriptionID string
	ItemID         string
	Title          string
	URL            string
	PublishedAt    time.Time
	Thumbnail      string
	AddedToQueue   bool
	DownloadID     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StatusCounts is the result of CountByStatus.
type StatusCounts struct {
	Active    int64
	Completed int64
	Error     int64
	Cancelled int64
	Total     int64
}
