package subscription

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// normalizeItems reduces a feed's raw items to normalizedEntry, preserving
// feed order.
func normalizeItems(items []*gofeed.Item) []normalizedEntry {
	out := make([]normalizedEntry, 0, len(items))
	for _, item := range items {
		out = append(out, normalizeItem(item))
	}
	return out
}

func normalizeItem(item *gofeed.Item) normalizedEntry {
	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	return normalizedEntry{
		ID:          extractID(item),
		URL:         item.Link,
		Title:       strings.TrimSpace(item.Title),
		PublishedAt: published,
		Thumbnail:   probeThumbnail(item),
	}
}

// extractID prefers the YouTube-specific yt:videoId extension (stable
// across title/description edits), then the feed's own guid/id, falling
// back to the entry link.
func extractID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ids, ok := yt["videoId"]; ok && len(ids) > 0 && ids[0].Value != "" {
			return ids[0].Value
		}
	}
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

// probeThumbnail checks, in order: the item's own <media:thumbnail>
// extension, a nested <media:group><media:thumbnail>, the item's own
// <image> gofeed already parses, then falls back to an image/* enclosure.
func probeThumbnail(item *gofeed.Item) string {
	if url := mediaThumbnail(item.Extensions); url != "" {
		return url
	}
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	return ""
}

func mediaThumbnail(extensions map[string]map[string][]gofeed.Extension) string {
	media, ok := extensions["media"]
	if !ok {
		return ""
	}
	if thumbs, ok := media["thumbnail"]; ok {
		if url := firstURL(thumbs); url != "" {
			return url
		}
	}
	if groups, ok := media["group"]; ok {
		for _, group := range groups {
			if thumbs, ok := group.Children["thumbnail"]; ok {
				if url := firstURL(thumbs); url != "" {
					return url
				}
			}
		}
	}
	return ""
}

func firstURL(extensions []gofeed.Extension) string {
	for _, ext := range extensions {
		if url, ok := ext.Attrs["url"]; ok && url != "" {
			return url
		}
	}
	return ""
}
