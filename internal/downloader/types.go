// Package downloader implements the DownloadEngine: the component that
// actually drives the ExtractorDriver for each job the DownloadQueue
// releases, turning its event stream into queue/task state transitions,
// HistoryStore writes, and events.Bus publications.
package downloader

import (
	"context"
	"sync"
	"time"

	"vidbee/internal/config"
	"vidbee/internal/events"
	"vidbee/internal/extractor"
	"vidbee/internal/format"
	"vidbee/internal/history"
	"vidbee/internal/queue"
)

// progressFlushInterval is how often coalesced progress events are
// flushed to the bus; every non-progress event bypasses this entirely.
const progressFlushInterval = 50 * time.Millisecond

// Engine is the DownloadEngine.
type Engine struct {
	queue  *queue.Queue
	driver *extractor.Driver
	store  *history.Store
	bus    *events.Bus

	settings func() config.Settings

	downloadDir string
	aria2Path   string

	mu        sync.Mutex
	tasks     map[string]*queue.Task
	cancel    map[string]context.CancelFunc
	runCancel context.CancelFunc

	progressMu sync.Mutex
	pending    map[string]events.Progress
}

// New constructs an Engine. settingsFn is called fresh at the start of
// every job so a mid-download settings change never retroactively alters
// a job already in flight. aria2Path is the resolved aria2c binary (empty
// if none was found); whether it is actually used still depends on
// settings.Aria2.Enabled at job start.
func New(q *queue.Queue, driver *extractor.Driver, store *history.Store, bus *events.Bus, settingsFn func() config.Settings, downloadDir, aria2Path string) *Engine {
	return &Engine{
		queue:       q,
		driver:      driver,
		store:       store,
		bus:         bus,
		settings:    settingsFn,
		downloadDir: downloadDir,
		aria2Path:   aria2Path,
		tasks:       make(map[string]*queue.Task),
		cancel:      make(map[string]context.CancelFunc),
		pending:     make(map[string]events.Progress),
	}
}

// mapOptions translates persisted Settings plus this job's aria2
// availability into the ExtractorDriver's option set.
func (e *Engine) mapOptions(s config.Settings) extractor.Options {
	opts := extractor.Options{
		Proxy:               s.Proxy,
		CookiesFromBrowser:  s.CookiesFromBrowser,
		CookiesFile:         s.CookiesFile,
		ExtractorConfigPath: s.ExtractorConfigPath,
		EmbedSubs:           s.Embed.Subs,
		EmbedThumbnail:      s.Embed.Thumbnail,
		EmbedMetadata:       s.Embed.Metadata,
		EmbedChapters:       s.Embed.Chapters,
		WindowsFilenames:    s.WindowsFilenames,
	}
	if s.Aria2.Enabled && e.aria2Path != "" {
		opts.Aria2Path = e.aria2Path
		opts.Aria2Connections = s.Aria2.Connections
	}
	return opts
}

func toFormatKind(k queue.Kind) format.Kind {
	if k == queue.KindAudio {
		return format.Audio
	}
	return format.Video
}

func toFormatRequest(req queue.Request) format.Request {
	return format.Request{
		Kind:                   toFormatKind(req.Kind),
		ExplicitFormatSelector: req.ExplicitFormatSelector,
		ExplicitAudioFormat:    req.ExplicitAudioFormat,
	}
}

func toHistoryKind(k queue.Kind) history.Kind {
	if k == queue.KindAudio {
		return history.KindAudio
	}
	return history.KindVideo
}

func toHistoryOrigin(o queue.Origin) history.Origin {
	if o == queue.OriginSubscription {
		return history.OriginSubscription
	}
	return history.OriginManual
}

func toHistoryStatus(s queue.Status) history.Status {
	switch s {
	case queue.StatusDownloading:
		return history.StatusDownloading
	case queue.StatusProcessing:
		return history.StatusProcessing
	case queue.StatusCompleted:
		return history.StatusCompleted
	case queue.StatusError:
		return history.StatusError
	case queue.StatusCancelled:
		return history.StatusCancelled
	default:
		return history.StatusPending
	}
}
