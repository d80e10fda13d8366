package subscription

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"

	"vidbee/internal/config"
	"vidbee/internal/constants"
	"vidbee/internal/history"
	"vidbee/internal/logger"
	"vidbee/internal/queue"
)

// Start begins the periodic feed poll on the configured interval and a
// goroutine correlating download-engine events back to subscription items
// for the retry policy. Call Stop to shut both down.
func (s *Scheduler) Start(ctx context.Context) {
	hours := config.ClampSubscriptionInterval(s.settings().SubscriptionCheckIntervalHours)
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	spec := fmt.Sprintf("@every %dh", hours)
	if _, err := s.cron.AddFunc(spec, func() { s.CheckAll(ctx) }); err != nil {
		logger.Log.Error().Err(err).Str("spec", spec).Msg("subscription cron schedule failed")
	}
	s.cron.Start()

	ch, unsubscribe := s.bus.Subscribe()
	s.unsubscribe = unsubscribe
	go s.watchDownloadEvents(ctx, ch)
}

// Stop halts the cron loop and unsubscribes from the event bus.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// CheckAll polls every enabled subscription in sequence.
func (s *Scheduler) CheckAll(ctx context.Context) {
	subs, err := s.store.ListSubscriptions()
	if err != nil {
		logger.Log.Warn().Err(err).Msg("subscription list failed")
		return
	}
	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}
		if err := s.check(ctx, sub); err != nil {
			logger.Log.Warn().Err(err).Str("subscription", sub.ID).Msg("subscription check failed")
		}
	}
}

// check runs the ten-step poll for a single subscription.
func (s *Scheduler) check(ctx context.Context, sub history.Subscription) error {
	now := time.Now()
	sub.Status = history.SubscriptionChecking
	sub.LastCheckedAt = &now
	if err := s.store.UpsertSubscription(sub); err != nil {
		return fmt.Errorf("mark checking: %w", err)
	}

	feed, err := s.parser.ParseURLWithContext(sub.FeedURL, ctx)
	if err != nil {
		sub.Status = history.SubscriptionFailed
		sub.LastError = err.Error()
		_ = s.store.UpsertSubscription(sub)
		return fmt.Errorf("fetch feed: %w", err)
	}

	entries := normalizeItems(feed.Items)
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].PublishedAt.After(entries[j].PublishedAt) })

	lowerBound := sub.LatestVideoPublishedAt
	if stored, err := s.maxStoredPublishedAt(sub.ID); err == nil && stored != nil {
		if lowerBound == nil || stored.After(*lowerBound) {
			lowerBound = stored
		}
	}

	var candidates []normalizedEntry
	for _, e := range entries {
		if lowerBound != nil && !e.PublishedAt.After(*lowerBound) {
			continue
		}
		candidates = append(candidates, e)
	}
	if lowerBound == nil && sub.OnlyLatest && len(candidates) > 1 {
		candidates = candidates[:1]
	}

	if len(sub.Keywords) > 0 {
		candidates = filterKeywords(candidates, sub.Keywords)
	}

	fresh := make([]normalizedEntry, 0, len(candidates))
	for _, e := range candidates {
		if e.URL == "" {
			continue
		}
		exists, err := s.store.HasURL(e.URL)
		if err != nil {
			return fmt.Errorf("history lookup: %w", err)
		}
		if !exists {
			fresh = append(fresh, e)
		}
	}
	if sub.OnlyLatest && len(fresh) > 1 {
		fresh = fresh[:1]
	}

	if err := s.projectItems(sub, entries, fresh); err != nil {
		return fmt.Errorf("project items: %w", err)
	}

	for _, e := range fresh {
		if err := s.enqueue(sub, e); err != nil {
			logger.Log.Warn().Err(err).Str("subscription", sub.ID).Str("item", e.ID).Msg("subscription item enqueue failed")
		}
	}

	if len(entries) > 0 {
		newest := entries[0]
		sub.LatestVideoTitle = newest.Title
		published := newest.PublishedAt
		sub.LatestVideoPublishedAt = &published
	}
	if feed.Image != nil && feed.Image.URL != "" {
		sub.CoverURL = feed.Image.URL
	}
	successAt := time.Now()
	sub.LastSuccessAt = &successAt
	sub.Status = history.SubscriptionUpToDate
	sub.LastError = ""
	return s.store.UpsertSubscription(sub)
}

func (s *Scheduler) maxStoredPublishedAt(subscriptionID string) (*time.Time, error) {
	items, err := s.store.ListSubscriptionItems(subscriptionID, 0)
	if err != nil {
		return nil, err
	}
	var max *time.Time
	for i := range items {
		if max == nil || items[i].PublishedAt.After(*max) {
			t := items[i].PublishedAt
			max = &t
		}
	}
	return max, nil
}

// projectItems replaces the subscription's SubscriptionItem rows with a
// bounded, recency-ordered view of the full feed, flagging rows that are
// already in download history or were just enqueued this round.
func (s *Scheduler) projectItems(sub history.Subscription, entries []normalizedEntry, fresh []normalizedEntry) error {
	freshIDs := make(map[string]bool, len(fresh))
	for _, e := range fresh {
		freshIDs[e.ID] = true
	}

	bound := len(entries)
	if bound > constants.SubscriptionItemsPerFeed {
		bound = constants.SubscriptionItemsPerFeed
	}

	for _, e := range entries[:bound] {
		if e.ID == "" {
			continue
		}
		added := freshIDs[e.ID]
		if !added {
			if exists, err := s.store.HasURL(e.URL); err == nil && exists {
				added = true
			}
		}
		item := history.SubscriptionItem{
			SubscriptionID: sub.ID,
			ItemID:         e.ID,
			Title:          e.Title,
			URL:            e.URL,
			PublishedAt:    e.PublishedAt,
			Thumbnail:      e.Thumbnail,
			AddedToQueue:   added,
		}
		if err := s.store.UpsertSubscriptionItem(item); err != nil {
			return err
		}
	}
	return s.store.PruneSubscriptionItems(sub.ID, constants.SubscriptionItemsPerFeed)
}

func (s *Scheduler) enqueue(sub history.Subscription, e normalizedEntry) error {
	downloadID := subscriptionDownloadID(sub.ID, e.ID)
	req := s.buildRequest(sub, e)

	if _, err := s.engine.Submit(downloadID, req); err != nil {
		return err
	}
	item := history.SubscriptionItem{
		SubscriptionID: sub.ID,
		ItemID:         e.ID,
		Title:          e.Title,
		URL:            e.URL,
		PublishedAt:    e.PublishedAt,
		Thumbnail:      e.Thumbnail,
		AddedToQueue:   true,
		DownloadID:     downloadID,
	}
	return s.store.UpsertSubscriptionItem(item)
}

func (s *Scheduler) buildRequest(sub history.Subscription, e normalizedEntry) queue.Request {
	settings := s.settings()
	outputDir := sub.DownloadDirectory
	if outputDir == "" {
		outputDir = settings.DownloadPath
	}
	template := sub.NamingTemplate
	if template == "" {
		template = settings.SubscriptionFilenameTemplate
	}

	tags := append([]string{string(sub.Platform)}, sub.Tags...)

	return queue.Request{
		URL:                      e.URL,
		Kind:                     queue.KindVideo,
		OutputDirOverride:        outputDir,
		FilenameTemplateOverride: template,
		Tags:                     tags,
		Origin:                   queue.OriginSubscription,
		SubscriptionID:           sub.ID,
	}
}

// QueueItem is the explicit-pull counterpart to automatic polling: it
// submits a specific already-known item regardless of recency or keyword
// filters, used when a user manually requests a feed item be downloaded.
func (s *Scheduler) QueueItem(subscriptionID, itemID string) (string, error) {
	sub, err := s.store.GetSubscription(subscriptionID)
	if err != nil {
		return "", err
	}
	if sub == nil {
		return "", fmt.Errorf("subscription.QueueItem: unknown subscription %q", subscriptionID)
	}
	item, err := s.store.GetSubscriptionItem(subscriptionID, itemID)
	if err != nil {
		return "", err
	}
	if item == nil {
		return "", fmt.Errorf("subscription.QueueItem: unknown item %q", itemID)
	}

	e := normalizedEntry{ID: item.ItemID, URL: item.URL, Title: item.Title, PublishedAt: item.PublishedAt, Thumbnail: item.Thumbnail}
	if err := s.enqueue(*sub, e); err != nil {
		return "", err
	}
	return subscriptionDownloadID(subscriptionID, itemID), nil
}

func subscriptionDownloadID(subscriptionID, itemID string) string {
	return "sub:" + subscriptionID + ":" + itemID
}
