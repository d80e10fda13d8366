package history

import (
	"database/sql"
	"strings"
	"time"
)

// recordColumns mirrors the teacher's COALESCE-guarded column list: every
// nullable text column is coalesced to '' so Scan can target plain strings
// instead of allocating a sql.NullString per row.
const recordColumns = `id, url, COALESCE(title,''), COALESCE(thumbnail,''), kind, status,
	COALESCE(download_path,''), COALESCE(saved_file_name,''), file_size, duration,
	downloaded_at, completed_at, sort_key, COALESCE(error,''), COALESCE(description,''),
	COALESCE(channel,''), COALESCE(uploader,''), view_count, COALESCE(tags,''),
	COALESCE(origin,''), COALESCE(subscription_id,''), COALESCE(selected_format,''),
	COALESCE(playlist_id,''), COALESCE(playlist_title,''), playlist_index, playlist_size`

// Store is the HistoryStore repository: upsert-by-id persistence for
// HistoryRecords, plus the Subscription/SubscriptionItem tables it shares
// the database with.
type Store struct {
	db *DB
}

// NewStore wraps an open DB in the repository API spec §4.5 names.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

func nowUnix() int64 { return time.Now().Unix() }

// Upsert inserts or replaces the record for r.ID. SortKey defaults to the
// downloaded-at timestamp when unset; List does not read SortKey and
// orders by completed_at, falling back to downloaded_at.
func (s *Store) Upsert(r HistoryRecord) error {
	if r.DownloadedAt.IsZero() {
		r.DownloadedAt = time.Now()
	}
	if r.SortKey == 0 {
		r.SortKey = r.DownloadedAt.Unix()
	}

	var completedAt sql.NullInt64
	if r.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: r.CompletedAt.Unix(), Valid: true}
	}

	var playlistID, playlistTitle sql.NullString
	var playlistIndex, playlistSize sql.NullInt64
	if r.Playlist != nil {
		playlistID = sql.NullString{String: r.Playlist.PlaylistID, Valid: true}
		playlistTitle = sql.NullString{String: r.Playlist.PlaylistTitle, Valid: true}
		playlistIndex = sql.NullInt64{Int64: int64(r.Playlist.PlaylistIndex), Valid: true}
		playlistSize = sql.NullInt64{Int64: int64(r.Playlist.PlaylistSize), Valid: true}
	}

	_, err := s.db.conn.Exec(`
		INSERT INTO download_history (
			id, url, title, thumbnail, kind, status, download_path, saved_file_name,
			file_size, duration, downloaded_at, completed_at, sort_key, error, description,
			channel, uploader, view_count, tags, origin, subscription_id, selected_format,
			playlist_id, playlist_title, playlist_index, playlist_size
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			url=excluded.url, title=excluded.title, thumbnail=excluded.thumbnail,
			kind=excluded.kind, status=excluded.status, download_path=excluded.download_path,
			saved_file_name=excluded.saved_file_name, file_size=excluded.file_size,
			duration=excluded.duration, downloaded_at=excluded.downloaded_at,
			completed_at=excluded.completed_at, sort_key=excluded.sort_key,
			error=excluded.error, description=excluded.description, channel=excluded.channel,
			uploader=excluded.uploader, view_count=excluded.view_count, tags=excluded.tags,
			origin=excluded.origin, subscription_id=excluded.subscription_id,
			selected_format=excluded.selected_format, playlist_id=excluded.playlist_id,
			playlist_title=excluded.playlist_title, playlist_index=excluded.playlist_index,
			playlist_size=excluded.playlist_size
	`,
		r.ID, r.URL, r.Title, r.Thumbnail, string(r.Kind), string(r.Status),
		r.DownloadPath, r.SavedFileName, r.FileSize, r.Duration,
		r.DownloadedAt.Unix(), completedAt, r.SortKey, r.Error, r.Description,
		r.Channel, r.Uploader, r.ViewCount, strings.Join(r.Tags, "\n"),
		string(r.Origin), r.SubscriptionID, r.SelectedFormat,
		playlistID, playlistTitle, playlistIndex, playlistSize,
	)
	return err
}

// Get returns the record for id, or (nil, nil) if it doesn't exist.
func (s *Store) Get(id string) (*HistoryRecord, error) {
	row := s.db.conn.QueryRow(`SELECT `+recordColumns+` FROM download_history WHERE id = ?`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// List returns every record ordered by (completed_at ?? downloaded_at) DESC.
func (s *Store) List() ([]HistoryRecord, error) {
	rows, err := s.db.conn.Query(`
		SELECT ` + recordColumns + ` FROM download_history
		ORDER BY COALESCE(completed_at, downloaded_at) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// Remove deletes the record for id, reporting whether a row existed.
func (s *Store) Remove(id string) (bool, error) {
	res, err := s.db.conn.Exec(`DELETE FROM download_history WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Clear deletes every record.
func (s *Store) Clear() error {
	_, err := s.db.conn.Exec(`DELETE FROM download_history`)
	return err
}

// ClearByStatus deletes every record with the given status, returning the
// number of rows removed.
func (s *Store) ClearByStatus(status Status) (int64, error) {
	res, err := s.db.conn.Exec(`DELETE FROM download_history WHERE status = ?`, string(status))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CountByStatus buckets every record into the active/completed/error/
// cancelled counters plus the total.
func (s *Store) CountByStatus() (StatusCounts, error) {
	rows, err := s.db.conn.Query(`SELECT status, COUNT(*) FROM download_history GROUP BY status`)
	if err != nil {
		return StatusCounts{}, err
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, err
		}
		counts.Total += n
		switch Status(status) {
		case StatusCompleted:
			counts.Completed = n
		case StatusError:
			counts.Error = n
		case StatusCancelled:
			counts.Cancelled = n
		default: // pending, downloading, processing
			counts.Active += n
		}
	}
	return counts, rows.Err()
}

// HasURL reports whether any record (of any status) carries url.
func (s *Store) HasURL(url string) (bool, error) {
	var exists int
	err := s.db.conn.QueryRow(`SELECT 1 FROM download_history WHERE url = ? LIMIT 1`, url).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*HistoryRecord, error) {
	var r HistoryRecord
	var kind, status, tags, origin string
	var downloadedAtUnix int64
	var completedAtUnix sql.NullInt64
	var playlistID, playlistTitle string
	var playlistIndex, playlistSize sql.NullInt64

	err := row.Scan(
		&r.ID, &r.URL, &r.Title, &r.Thumbnail, &kind, &status,
		&r.DownloadPath, &r.SavedFileName, &r.FileSize, &r.Duration,
		&downloadedAtUnix, &completedAtUnix, &r.SortKey, &r.Error, &r.Description,
		&r.Channel, &r.Uploader, &r.ViewCount, &tags,
		&origin, &r.SubscriptionID, &r.SelectedFormat,
		&playlistID, &playlistTitle, &playlistIndex, &playlistSize,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = Kind(kind)
	r.Status = Status(status)
	r.Origin = Origin(origin)
	r.DownloadedAt = time.Unix(downloadedAtUnix, 0)
	if completedAtUnix.Valid {
		t := time.Unix(completedAtUnix.Int64, 0)
		r.CompletedAt = &t
	}
	if tags != "" {
		r.Tags = strings.Split(tags, "\n")
	}
	if playlistIndex.Valid {
		r.Playlist = &PlaylistContext{
			PlaylistID:    playlistID,
			PlaylistTitle: playlistTitle,
			PlaylistIndex: int(playlistIndex.Int64),
			PlaylistSize:  int(playlistSize.Int64),
		}
	}
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]HistoryRecord, error) {
	var out []HistoryRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}
