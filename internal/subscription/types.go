// Package subscription implements the SubscriptionScheduler: periodic
// polling of RSS/Atom feeds, translating newly-published entries into
// DownloadEngine submissions and tracking each feed's high-water mark.
package subscription

import (
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"

	"vidbee/internal/config"
	"vidbee/internal/downloader"
	"vidbee/internal/events"
	"vidbee/internal/history"
)

// Scheduler owns the periodic feed-poll loop and the retry-once-then-fail
// policy applied to subscription-origin downloads.
type Scheduler struct {
	store    *history.Store
	engine   *downloader.Engine
	bus      *events.Bus
	settings func() config.Settings

	parser *gofeed.Parser
	cron   *cron.Cron

	unsubscribe func()

	mu      sync.Mutex
	retries map[string]int // downloadID -> attempts already made
}

// New builds a Scheduler. Start must be called to begin polling.
func New(store *history.Store, engine *downloader.Engine, bus *events.Bus, settingsFn func() config.Settings) *Scheduler {
	return &Scheduler{
		store:    store,
		engine:   engine,
		bus:      bus,
		settings: settingsFn,
		parser:   gofeed.NewParser(),
		retries:  make(map[string]int),
	}
}

// normalizedEntry is a feed item reduced to the fields a subscription check
// needs, independent of whether it came from RSS or Atom.
type normalizedEntry struct {
	ID          string
	URL         string
	Title       string
	PublishedAt time.Time
	Thumbnail   string
}
