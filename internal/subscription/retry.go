package subscription

import (
	"context"
	"strings"
	"time"

	"vidbee/internal/events"
	"vidbee/internal/history"
	"vidbee/internal/logger"
)

// watchDownloadEvents implements the retry-once-then-fail policy: the
// first DownloadError for a subscription-origin job resubmits it once;
// a second failure marks the owning subscription Failed. A
// DownloadCompleted clears any retry bookkeeping and marks the
// subscription up to date.
func (s *Scheduler) watchDownloadEvents(ctx context.Context, ch <-chan events.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch ev.Type {
			case events.DownloadError:
				s.handleDownloadError(ev.ID, ev.Message)
			case events.DownloadCompleted:
				s.handleDownloadCompleted(ev.ID)
			}
		}
	}
}

func (s *Scheduler) handleDownloadError(downloadID, message string) {
	subID, itemID, ok := parseSubscriptionDownloadID(downloadID)
	if !ok {
		return
	}

	s.mu.Lock()
	attempts := s.retries[downloadID]
	s.mu.Unlock()

	if attempts == 0 {
		s.mu.Lock()
		s.retries[downloadID] = 1
		s.mu.Unlock()

		sub, err := s.store.GetSubscription(subID)
		if err != nil || sub == nil {
			return
		}
		item, err := s.store.GetSubscriptionItem(subID, itemID)
		if err != nil || item == nil {
			return
		}
		e := normalizedEntry{ID: item.ItemID, URL: item.URL, Title: item.Title, PublishedAt: item.PublishedAt, Thumbnail: item.Thumbnail}
		req := s.buildRequest(*sub, e)
		if _, err := s.engine.Submit(downloadID, req); err != nil {
			logger.Log.Warn().Err(err).Str("id", downloadID).Msg("subscription item retry submit failed")
		}
		return
	}

	s.mu.Lock()
	delete(s.retries, downloadID)
	s.mu.Unlock()

	sub, err := s.store.GetSubscription(subID)
	if err != nil || sub == nil {
		return
	}
	sub.Status = history.SubscriptionFailed
	sub.LastError = message
	if err := s.store.UpsertSubscription(*sub); err != nil {
		logger.Log.Warn().Err(err).Str("subscription", subID).Msg("subscription failed-status persist failed")
	}
}

func (s *Scheduler) handleDownloadCompleted(downloadID string) {
	subID, itemID, ok := parseSubscriptionDownloadID(downloadID)
	if !ok {
		return
	}

	s.mu.Lock()
	delete(s.retries, downloadID)
	s.mu.Unlock()

	sub, err := s.store.GetSubscription(subID)
	if err != nil || sub == nil {
		return
	}
	now := time.Now()
	sub.Status = history.SubscriptionUpToDate
	sub.LastSuccessAt = &now
	sub.LastError = ""
	if err := s.store.UpsertSubscription(*sub); err != nil {
		logger.Log.Warn().Err(err).Str("subscription", subID).Msg("subscription success-status persist failed")
	}

	item, err := s.store.GetSubscriptionItem(subID, itemID)
	if err != nil || item == nil {
		return
	}
	item.AddedToQueue = true
	item.DownloadID = downloadID
	if err := s.store.UpsertSubscriptionItem(*item); err != nil {
		logger.Log.Warn().Err(err).Str("subscription", subID).Str("item", itemID).Msg("subscription item persist failed")
	}
}

// parseSubscriptionDownloadID reverses subscriptionDownloadID. itemID may
// itself contain ":" (e.g. a raw feed link used as id), so it splits on
// the first separator and takes the rest as itemID.
func parseSubscriptionDownloadID(downloadID string) (subscriptionID, itemID string, ok bool) {
	if !strings.HasPrefix(downloadID, "sub:") {
		return "", "", false
	}
	rest := strings.TrimPrefix(downloadID, "sub:")
	idx := strings.Index(rest, ":")
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
