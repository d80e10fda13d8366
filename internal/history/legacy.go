package history

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"vidbee/internal/logger"
)

// legacyRecord mirrors the pre-SQLite download-history.json shape: plain
// millisecond timestamps and camelCase keys, the way the UI-facing layer
// serialized a HistoryRecord before this store existed.
type legacyRecord struct {
	ID              string   `json:"id"`
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	Thumbnail       string   `json:"thumbnail"`
	Kind            string   `json:"kind"`
	Status          string   `json:"status"`
	DownloadPath    string   `json:"downloadPath"`
	SavedFileName   string   `json:"savedFileName"`
	FileSize        int64    `json:"fileSize"`
	Duration        int      `json:"duration"`
	DownloadedAtMs  int64    `json:"downloadedAt"`
	CompletedAtMs   int64    `json:"completedAt"`
	Error           string   `json:"error"`
	Description     string   `json:"description"`
	Channel         string   `json:"channel"`
	Uploader        string   `json:"uploader"`
	ViewCount       int64    `json:"viewCount"`
	Tags            []string `json:"tags"`
	Origin          string   `json:"origin"`
	SubscriptionID  string   `json:"subscriptionId"`
	SelectedFormat  string   `json:"selectedFormat"`
	PlaylistID      string   `json:"playlistId"`
	PlaylistTitle   string   `json:"playlistTitle"`
	PlaylistIndex   int      `json:"playlistIndex"`
	PlaylistSize    int      `json:"playlistSize"`
}

// importLegacyJSON performs the one-time migration from the pre-database
// download-history.json file, if one is present: every entry is upserted,
// then the file is renamed to a .bak suffix so this only ever runs once.
func (db *DB) importLegacyJSON(dataDir string) error {
	path := filepath.Join(dataDir, "download-history.json")

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var legacy []legacyRecord
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return err
	}

	store := NewStore(db)
	imported := 0
	for _, l := range legacy {
		if l.ID == "" {
			continue
		}
		if err := store.Upsert(l.toRecord()); err != nil {
			logger.Log.Warn().Err(err).Str("id", l.ID).Msg("legacy history record import failed")
			continue
		}
		imported++
	}

	if err := os.Rename(path, path+".bak"); err != nil {
		return err
	}

	logger.Log.Info().Int("count", imported).Msg("imported legacy download history")
	return nil
}

func (l legacyRecord) toRecord() HistoryRecord {
	r := HistoryRecord{
		ID:             l.ID,
		URL:            l.URL,
		Title:          l.Title,
		Thumbnail:      l.Thumbnail,
		Kind:           Kind(l.Kind),
		Status:         Status(l.Status),
		DownloadPath:   l.DownloadPath,
		SavedFileName:  l.SavedFileName,
		FileSize:       l.FileSize,
		Duration:       l.Duration,
		DownloadedAt:   msToTime(l.DownloadedAtMs),
		Error:          l.Error,
		Description:    l.Description,
		Channel:        l.Channel,
		Uploader:       l.Uploader,
		ViewCount:      l.ViewCount,
		Tags:           l.Tags,
		Origin:         Origin(l.Origin),
		SubscriptionID: l.SubscriptionID,
		SelectedFormat: l.SelectedFormat,
	}
	if l.CompletedAtMs > 0 {
		t := msToTime(l.CompletedAtMs)
		r.CompletedAt = &t
	}
	if l.PlaylistID != "" {
		r.Playlist = &PlaylistContext{
			PlaylistID:    l.PlaylistID,
			PlaylistTitle: l.PlaylistTitle,
			PlaylistIndex: l.PlaylistIndex,
			PlaylistSize:  l.PlaylistSize,
		}
	}
	return r
}

func msToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}
