// Package queue implements the DownloadQueue: FIFO admission with a
// concurrency bound, shared by the interactive (UI/bridge) producer and
// the SubscriptionScheduler.
package queue

import (
	"time"

	"vidbee/internal/format"
)

// Kind distinguishes a video request from an audio-only one.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Origin records what produced a DownloadRequest.
type Origin string

const (
	OriginManual       Origin = "manual"
	OriginSubscription Origin = "subscription"
)

// Status is a DownloadTask's lifecycle state. Transitions only ever move
// forward through Pending -> Downloading -> (Processing ->)? one of the
// three terminal states.
type Status string

const (
	StatusPending     Status = "pending"
	StatusDownloading Status = "downloading"
	StatusProcessing  Status = "processing"
	StatusCompleted   Status = "completed"
	StatusError       Status = "error"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether s is one of the three states a task never
// leaves once entered.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Request is the caller-supplied intent behind a download.
type Request struct {
	URL                      string
	Kind                     Kind
	Preset                   format.Preset
	ExplicitFormatSelector   string
	ExplicitAudioFormat      string
	StartTime                string
	EndTime                  string
	DownloadSubs             bool
	OutputDirOverride        string
	FilenameTemplateOverride string
	Tags                     []string
	Origin                   Origin
	SubscriptionID           string

	// Incognito suppresses HistoryStore persistence for this job: no
	// record is ever upserted, and any record written before this flag
	// was observed is deleted at job end.
	Incognito bool
}

// PlaylistContext is the denormalized playlist tuple carried on every
// DownloadTask produced from a playlist expansion.
type PlaylistContext struct {
	PlaylistID    string
	PlaylistTitle string
	PlaylistIndex int
	PlaylistSize  int
}

// Task is the live, in-memory record of a single download, tracked
// through the queue and engine until it reaches a terminal Status.
type Task struct {
	ID      string
	Request Request
	Status  Status

	SelectedFormat       *format.Descriptor
	ResolvedExt          string
	ResolvedQualityLabel string
	ResolvedCodec        string

	StartedAt     *time.Time
	CompletedAt   *time.Time
	FileSize      int64
	DownloadPath  string
	SavedFileName string
	Error         string

	YtDlpCommand []string
	YtDlpLog     []string

	// Display fields, populated best-effort from ExtractorDriver.info.
	Title       string
	Thumbnail   string
	Duration    int
	Uploader    string
	Description string
	ViewCount   int64
	Channel     string

	Playlist *PlaylistContext
}

// TaskPatch carries the subset of Task fields update_task_info may merge in.
// Nil/zero fields are left untouched by ApplyPatch.
type TaskPatch struct {
	Title                *string
	Thumbnail            *string
	Duration             *int
	FileSize             *int64
	ResolvedExt          *string
	ResolvedQualityLabel *string
	ResolvedCodec        *string
	Description          *string
	Channel              *string
	Uploader             *string
	ViewCount            *int64
	Tags                 []string
	Status               *Status
	CompletedAt          *time.Time
	Error                *string
	SelectedFormat       *format.Descriptor
}

// ApplyPatch merges the non-nil fields of p into t.
func (t *Task) ApplyPatch(p TaskPatch) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Thumbnail != nil {
		t.Thumbnail = *p.Thumbnail
	}
	if p.Duration != nil {
		t.Duration = *p.Duration
	}
	if p.FileSize != nil {
		t.FileSize = *p.FileSize
	}
	if p.ResolvedExt != nil {
		t.ResolvedExt = *p.ResolvedExt
	}
	if p.ResolvedQualityLabel != nil {
		t.ResolvedQualityLabel = *p.ResolvedQualityLabel
	}
	if p.ResolvedCodec != nil {
		t.ResolvedCodec = *p.ResolvedCodec
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Channel != nil {
		t.Channel = *p.Channel
	}
	if p.Uploader != nil {
		t.Uploader = *p.Uploader
	}
	if p.ViewCount != nil {
		t.ViewCount = *p.ViewCount
	}
	if p.Tags != nil {
		t.Request.Tags = p.Tags
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.CompletedAt != nil {
		t.CompletedAt = p.CompletedAt
	}
	if p.Error != nil {
		t.Error = *p.Error
	}
	if p.SelectedFormat != nil {
		t.SelectedFormat = p.SelectedFormat
	}
}
