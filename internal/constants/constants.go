// Package constants centralizes magic numbers and default values used
// across the acquisition core.
package constants

import "time"

// Application metadata.
const (
	AppName    = "VidBee"
	ConfigFile = "settings.json"
	DBFile     = "vidbee.db"
)

// Timeouts.
const (
	// MetadataTimeout is a bound for an ExtractorDriver.info/playlist call.
	// No package references it: the driver runs those calls under the
	// caller's context with no timeout of its own.
	MetadataTimeout = 30 * time.Second

	// FeedFetchTimeout is a bound for a subscription feed fetch. No package
	// references it: the scheduler fetches under its own context with no
	// timeout of its own.
	FeedFetchTimeout = 20 * time.Second

	// BridgeRequestTimeout is a bound for a LoopbackBridge request. No
	// package references it: the bridge router applies its own
	// requestTimeout.
	BridgeRequestTimeout = 30 * time.Second
)

// Queue settings.
const (
	// DefaultMaxConcurrent is the default bound on simultaneous downloads.
	DefaultMaxConcurrent = 3

	// QueueBufferSize is a capacity for the queue's start-signal channel.
	// No package references it: cmd/vidbeed passes its own buffer size to
	// queue.New.
	QueueBufferSize = 256

	// DefaultHistoryLimit is a page size for history list calls. No
	// package references it: history.Store.List returns every record.
	DefaultHistoryLimit = 100
)

// Filename handling.
const (
	// MaxSanitizedTitleLength is the truncation length spec.md §4.4 step 5
	// applies to a task's title before it becomes part of the output path.
	MaxSanitizedTitleLength = 50
)

// Subscription scheduling.
const (
	// MinSubscriptionIntervalHours and MaxSubscriptionIntervalHours bound
	// settings.subscription_check_interval_hours per spec.md §4.6.
	MinSubscriptionIntervalHours = 1
	MaxSubscriptionIntervalHours = 24

	// SubscriptionItemsPerFeed bounds the SubscriptionItem projection kept
	// per subscription (spec.md §3 invariant 6: "a bounded, recency-ordered
	// projection").
	SubscriptionItemsPerFeed = 50
)

// LoopbackBridge.
const (
	// BridgePortRangeStart and BridgePortRangeEnd are the fixed, contiguous
	// port range the bridge tries in order (spec.md §4.7).
	BridgePortRangeStart = 27100
	BridgePortRangeEnd   = 27120

	// TokenTTL is how long an issued token remains valid before expiry.
	TokenTTL = 60 * time.Second
)

// DefaultFilenameTemplate is used when no per-request or settings template
// is configured (spec.md §6).
const DefaultFilenameTemplate = "%(title)s via VidBee.%(ext)s"
