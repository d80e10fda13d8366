package history

import (
	"database/sql"
	"strings"
	"time"
)

const subscriptionColumns = `id, title, source_url, feed_url, platform, COALESCE(keywords,''),
	COALESCE(tags,''), only_latest, enabled, COALESCE(cover_url,''),
	COALESCE(latest_video_title,''), latest_video_published_at, last_checked_at,
	last_success_at, status, COALESCE(last_error,''), created_at, updated_at,
	COALESCE(download_directory,''), COALESCE(naming_template,'')`

// UpsertSubscription inserts or replaces s.
func (s *Store) UpsertSubscription(sub Subscription) error {
	now := time.Now()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now

	_, err := s.db.conn.Exec(`
		INSERT INTO subscriptions (
			id, title, source_url, feed_url, platform, keywords, tags, only_latest,
			enabled, cover_url, latest_video_title, latest_video_published_at,
			last_checked_at, last_success_at, status, last_error, created_at, updated_at,
			download_directory, naming_template
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, source_url=excluded.source_url, feed_url=excluded.feed_url,
			platform=excluded.platform, keywords=excluded.keywords, tags=excluded.tags,
			only_latest=excluded.only_latest, enabled=excluded.enabled, cover_url=excluded.cover_url,
			latest_video_title=excluded.latest_video_title,
			latest_video_published_at=excluded.latest_video_published_at,
			last_checked_at=excluded.last_checked_at, last_success_at=excluded.last_success_at,
			status=excluded.status, last_error=excluded.last_error, updated_at=excluded.updated_at,
			download_directory=excluded.download_directory, naming_template=excluded.naming_template
	`,
		sub.ID, sub.Title, sub.SourceURL, sub.FeedURL, string(sub.Platform),
		strings.Join(sub.Keywords, "\n"), strings.Join(sub.Tags, "\n"), sub.OnlyLatest, sub.Enabled,
		sub.CoverURL, sub.LatestVideoTitle, nullableUnix(sub.LatestVideoPublishedAt),
		nullableUnix(sub.LastCheckedAt), nullableUnix(sub.LastSuccessAt),
		string(sub.Status), sub.LastError, sub.CreatedAt.Unix(), sub.UpdatedAt.Unix(),
		sub.DownloadDirectory, sub.NamingTemplate,
	)
	return err
}

// GetSubscription returns the subscription for id, or (nil, nil) if absent.
func (s *Store) GetSubscription(id string) (*Subscription, error) {
	row := s.db.conn.QueryRow(`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id)
	sub, err := scanSubscription(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sub, err
}

// ListSubscriptions returns every subscription, enabled ones first.
func (s *Store) ListSubscriptions() ([]Subscription, error) {
	rows, err := s.db.conn.Query(`SELECT ` + subscriptionColumns + ` FROM subscriptions ORDER BY enabled DESC, title ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sub)
	}
	return out, rows.Err()
}

// RemoveSubscription deletes s and, via ON DELETE CASCADE, its items.
func (s *Store) RemoveSubscription(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM subscriptions WHERE id = ?`, id)
	return err
}

// UpsertSubscriptionItem inserts or replaces the (SubscriptionID, ItemID) row.
func (s *Store) UpsertSubscriptionItem(item SubscriptionItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.conn.Exec(`
		INSERT INTO subscription_items (
			subscription_id, item_id, title, url, published_at, thumbnail,
			added_to_queue, download_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(subscription_id, item_id) DO UPDATE SET
			title=excluded.title, url=excluded.url, published_at=excluded.published_at,
			thumbnail=excluded.thumbnail, added_to_queue=excluded.added_to_queue,
			download_id=excluded.download_id, updated_at=excluded.updated_at
	`,
		item.SubscriptionID, item.ItemID, item.Title, item.URL, item.PublishedAt.Unix(),
		item.Thumbnail, item.AddedToQueue, item.DownloadID, item.CreatedAt.Unix(), item.UpdatedAt.Unix(),
	)
	return err
}

// GetSubscriptionItem returns one item by (subscriptionID, itemID), or
// (nil, nil) if absent.
func (s *Store) GetSubscriptionItem(subscriptionID, itemID string) (*SubscriptionItem, error) {
	row := s.db.conn.QueryRow(`SELECT subscription_id, item_id, title, url, published_at, COALESCE(thumbnail,''),
		added_to_queue, COALESCE(download_id,''), created_at, updated_at
		FROM subscription_items WHERE subscription_id = ? AND item_id = ?`, subscriptionID, itemID)

	var item SubscriptionItem
	var publishedAt, createdAt, updatedAt int64
	err := row.Scan(&item.SubscriptionID, &item.ItemID, &item.Title, &item.URL,
		&publishedAt, &item.Thumbnail, &item.AddedToQueue, &item.DownloadID,
		&createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.PublishedAt = time.Unix(publishedAt, 0)
	item.CreatedAt = time.Unix(createdAt, 0)
	item.UpdatedAt = time.Unix(updatedAt, 0)
	return &item, nil
}

// ListSubscriptionItems returns every item for subscriptionID, most recently
// published first, bounded to limit rows (0 means unbounded).
func (s *Store) ListSubscriptionItems(subscriptionID string, limit int) ([]SubscriptionItem, error) {
	query := `SELECT subscription_id, item_id, title, url, published_at, COALESCE(thumbnail,''),
		added_to_queue, COALESCE(download_id,''), created_at, updated_at
		FROM subscription_items WHERE subscription_id = ? ORDER BY published_at DESC`
	args := []any{subscriptionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubscriptionItem
	for rows.Next() {
		var item SubscriptionItem
		var publishedAt, createdAt, updatedAt int64
		if err := rows.Scan(&item.SubscriptionID, &item.ItemID, &item.Title, &item.URL,
			&publishedAt, &item.Thumbnail, &item.AddedToQueue, &item.DownloadID,
			&createdAt, &updatedAt); err != nil {
			return nil, err
		}
		item.PublishedAt = time.Unix(publishedAt, 0)
		item.CreatedAt = time.Unix(createdAt, 0)
		item.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, item)
	}
	return out, rows.Err()
}

// PruneSubscriptionItems deletes every item for subscriptionID outside the
// keep most-recently-published rows, implementing the bounded recency
// projection each feed poll maintains.
func (s *Store) PruneSubscriptionItems(subscriptionID string, keep int) error {
	_, err := s.db.conn.Exec(`
		DELETE FROM subscription_items
		WHERE subscription_id = ? AND item_id NOT IN (
			SELECT item_id FROM subscription_items
			WHERE subscription_id = ?
			ORDER BY published_at DESC LIMIT ?
		)
	`, subscriptionID, subscriptionID, keep)
	return err
}

func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func scanSubscription(row scannable) (*Subscription, error) {
	var sub Subscription
	var platform, keywords, tags, status string
	var latestPublished, lastChecked, lastSuccess sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&sub.ID, &sub.Title, &sub.SourceURL, &sub.FeedURL, &platform, &keywords, &tags,
		&sub.OnlyLatest, &sub.Enabled, &sub.CoverURL, &sub.LatestVideoTitle, &latestPublished,
		&lastChecked, &lastSuccess, &status, &sub.LastError, &createdAt, &updatedAt,
		&sub.DownloadDirectory, &sub.NamingTemplate,
	)
	if err != nil {
		return nil, err
	}

	sub.Platform = SubscriptionPlatform(platform)
	sub.Status = SubscriptionStatus(status)
	sub.CreatedAt = time.Unix(createdAt, 0)
	sub.UpdatedAt = time.Unix(updatedAt, 0)
	if keywords != "" {
		sub.Keywords = strings.Split(keywords, "\n")
	}
	if tags != "" {
		sub.Tags = strings.Split(tags, "\n")
	}
	if latestPublished.Valid {
		t := time.Unix(latestPublished.Int64, 0)
		sub.LatestVideoPublishedAt = &t
	}
	if lastChecked.Valid {
		t := time.Unix(lastChecked.Int64, 0)
		sub.LastCheckedAt = &t
	}
	if lastSuccess.Valid {
		t := time.Unix(lastSuccess.Int64, 0)
		sub.LastSuccessAt = &t
	}
	return &sub, nil
}
