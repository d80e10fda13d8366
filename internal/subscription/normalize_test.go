package subscription

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func TestExtractID_PrefersYouTubeVideoID(t *testing.T) {
	item := &gofeed.Item{
		GUID: "yt:video:fallback",
		Link: "https://youtube.com/watch?v=fallback",
		Extensions: map[string]map[string][]gofeed.Extension{
			"yt": {"videoId": {{Value: "abc123"}}},
		},
	}
	if got := extractID(item); got != "abc123" {
		t.Errorf("extractID() = %q, want abc123", got)
	}
}

func TestExtractID_FallsBackToGUIDThenLink(t *testing.T) {
	withGUID := &gofeed.Item{GUID: "guid-1", Link: "https://example.com/a"}
	if got := extractID(withGUID); got != "guid-1" {
		t.Errorf("extractID() = %q, want guid-1", got)
	}

	linkOnly := &gofeed.Item{Link: "https://example.com/b"}
	if got := extractID(linkOnly); got != "https://example.com/b" {
		t.Errorf("extractID() = %q, want the link", got)
	}
}

func TestProbeThumbnail_PrefersMediaThumbnailExtension(t *testing.T) {
	item := &gofeed.Item{
		Extensions: map[string]map[string][]gofeed.Extension{
			"media": {"thumbnail": {{Attrs: map[string]string{"url": "https://img/thumb.jpg"}}}},
		},
		Image: &gofeed.Image{URL: "https://img/fallback.jpg"},
	}
	if got := probeThumbnail(item); got != "https://img/thumb.jpg" {
		t.Errorf("probeThumbnail() = %q, want the media:thumbnail url", got)
	}
}

func TestProbeThumbnail_FallsBackToImageThenEnclosure(t *testing.T) {
	withImage := &gofeed.Item{Image: &gofeed.Image{URL: "https://img/fallback.jpg"}}
	if got := probeThumbnail(withImage); got != "https://img/fallback.jpg" {
		t.Errorf("probeThumbnail() = %q, want the item image url", got)
	}

	withEnclosure := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{{URL: "https://img/enc.jpg", Type: "image/jpeg"}},
	}
	if got := probeThumbnail(withEnclosure); got != "https://img/enc.jpg" {
		t.Errorf("probeThumbnail() = %q, want the enclosure url", got)
	}
}

func TestNormalizeItem_PrefersPublishedOverUpdated(t *testing.T) {
	published := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	item := &gofeed.Item{PublishedParsed: &published, UpdatedParsed: &updated, Title: "  A Title  "}

	got := normalizeItem(item)
	if !got.PublishedAt.Equal(published) {
		t.Errorf("PublishedAt = %v, want %v", got.PublishedAt, published)
	}
	if got.Title != "A Title" {
		t.Errorf("Title = %q, want trimmed", got.Title)
	}
}

func TestFilterKeywords_CaseInsensitiveSubstringMatch(t *testing.T) {
	entries := []normalizedEntry{
		{ID: "1", Title: "Weekly News Roundup"},
		{ID: "2", Title: "Cooking Tutorial"},
		{ID: "3", Title: "BREAKING news update"},
	}
	got := filterKeywords(entries, []string{"news"})
	if len(got) != 2 {
		t.Fatalf("filterKeywords() returned %d entries, want 2: %+v", len(got), got)
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Errorf("filterKeywords() = %+v, want entries 1 and 3", got)
	}
}

func TestSubscriptionDownloadID_RoundTrips(t *testing.T) {
	id := subscriptionDownloadID("sub-1", "item-1")
	subID, itemID, ok := parseSubscriptionDownloadID(id)
	if !ok || subID != "sub-1" || itemID != "item-1" {
		t.Errorf("round trip = (%q, %q, %v), want (sub-1, item-1, true)", subID, itemID, ok)
	}
}

func TestParseSubscriptionDownloadID_RejectsNonSubscriptionIDs(t *testing.T) {
	if _, _, ok := parseSubscriptionDownloadID("manual-job-id"); ok {
		t.Error("expected a non-subscription id to be rejected")
	}
}
