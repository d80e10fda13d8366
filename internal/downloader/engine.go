package downloader

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperr "vidbee/internal/errors"
	"vidbee/internal/events"
	"vidbee/internal/extractor"
	"vidbee/internal/format"
	"vidbee/internal/history"
	"vidbee/internal/logger"
	"vidbee/internal/queue"
	"vidbee/internal/validate"
)

// Submit admits a new job under id (generating a uuid if empty). It
// rejects an id whose job is currently downloading (ErrAlreadyExists),
// and the queue rejects an id it still holds as waiting or active
// (ErrQueueDuplicateID). Resubmitting a terminal id is allowed and
// restarts it.
func (e *Engine) Submit(id string, req queue.Request) (string, error) {
	return e.submit(id, req, nil)
}

// SubmitPlaylist expands a playlist URL into one derived Submit per entry.
// indices, when non-empty, restricts expansion to the given 1-based
// positions; nil or empty means every entry.
func (e *Engine) SubmitPlaylist(ctx context.Context, req queue.Request, indices []int) ([]string, error) {
	opts := e.mapOptions(e.settings())
	info, err := e.driver.Playlist(ctx, req.URL, opts)
	if err != nil {
		return nil, apperr.Wrap("DownloadEngine.SubmitPlaylist", err)
	}

	wanted := make(map[int]bool, len(indices))
	for _, i := range indices {
		wanted[i] = true
	}

	var ids []string
	for i, entry := range info.Entries {
		position := i + 1
		if len(wanted) > 0 && !wanted[position] {
			continue
		}
		url := entry.WebpageURL
		if url == "" {
			continue
		}

		derived := req
		derived.URL = url

		playlistCtx := &queue.PlaylistContext{
			PlaylistID:    info.ID,
			PlaylistTitle: info.Title,
			PlaylistIndex: position,
			PlaylistSize:  len(info.Entries),
		}

		id, err := e.submit("", derived, playlistCtx)
		if err != nil {
			logger.Log.Warn().Err(err).Str("url", url).Msg("playlist entry submit failed")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (e *Engine) submit(id string, req queue.Request, playlist *queue.PlaylistContext) (string, error) {
	if _, err := validate.URL(req.URL); err != nil {
		return "", err
	}
	if id == "" {
		id = uuid.NewString()
	}
	if e.settings().Incognito {
		req.Incognito = true
	}

	e.mu.Lock()
	if existing, ok := e.tasks[id]; ok && existing.Status == queue.StatusDownloading {
		e.mu.Unlock()
		return "", apperr.New("DownloadEngine.Submit", apperr.ErrAlreadyExists)
	}
	task := &queue.Task{
		ID:       id,
		Request:  req,
		Status:   queue.StatusPending,
		Playlist: playlist,
	}
	if playlist != nil {
		task.Title = playlist.PlaylistTitle
	}
	e.tasks[id] = task
	e.mu.Unlock()

	e.persist(task, req.Incognito)

	if err := e.queue.Add(id, req, task); err != nil {
		return "", err
	}
	return id, nil
}

// Cancel aborts id if it is currently downloading, and in every case
// removes it from the waiting list. Idempotent: cancelling an already
// terminal or unknown id is a no-op returning false.
func (e *Engine) Cancel(id string) bool {
	e.mu.Lock()
	task, hasTask := e.tasks[id]
	cancel, hasCancel := e.cancel[id]
	e.mu.Unlock()

	removedFromWaiting := e.queue.Remove(id)

	if !hasTask {
		return removedFromWaiting
	}
	if task.Status.Terminal() {
		return false
	}

	if hasCancel {
		// Active: abort the process. runJob's close handler observes
		// ctx.Err() and finalizes the task as Cancelled.
		cancel()
		return true
	}

	// Still waiting, never started: finalize here directly.
	now := time.Now()
	e.mu.Lock()
	task.Status = queue.StatusCancelled
	task.CompletedAt = &now
	e.mu.Unlock()

	e.persist(task, task.Request.Incognito)
	e.bus.Publish(events.Cancelled(id))
	e.queue.OnCompletion(id)
	return removedFromWaiting
}

// Info resolves a URL's metadata and format catalog without admitting a
// job, using the engine's current settings snapshot. Exposed for the
// LoopbackBridge's /video-info endpoint.
func (e *Engine) Info(ctx context.Context, url string) (extractor.VideoInfo, error) {
	opts := e.mapOptions(e.settings())
	info, err := e.driver.Info(ctx, url, opts)
	if err != nil {
		return extractor.VideoInfo{}, apperr.Wrap("DownloadEngine.Info", err)
	}
	return info, nil
}

// Status returns the DownloadQueue's queued/active summary.
func (e *Engine) Status() events.QueueStatus {
	return e.queue.Status()
}

// GetTask returns the live display task for id. The Engine, unlike the
// Queue, never forgets an id once submitted — even after the Queue has
// dropped it from every one of its own sets (e.g. a waiting job that was
// cancelled before it ever became active).
func (e *Engine) GetTask(id string) (*queue.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	task, ok := e.tasks[id]
	return task, ok
}

// UpdateTaskInfo merges patch into id's live task wherever the queue
// currently holds it, re-persisting the resulting record unless the
// request opted into Incognito.
func (e *Engine) UpdateTaskInfo(id string, patch queue.TaskPatch) bool {
	ok := e.queue.UpdateTaskInfo(id, patch)
	if !ok {
		return false
	}
	e.mu.Lock()
	task := e.tasks[id]
	e.mu.Unlock()
	if task != nil {
		e.persist(task, task.Request.Incognito)
	}
	return ok
}

// persist writes task's current state to the HistoryStore, or — for an
// Incognito job — removes any record that might already exist for it
// (e.g. one written before Incognito was observed).
func (e *Engine) persist(task *queue.Task, incognito bool) {
	if incognito {
		if _, err := e.store.Remove(task.ID); err != nil {
			logger.Log.Warn().Err(err).Str("id", task.ID).Msg("incognito history cleanup failed")
		}
		return
	}
	if err := e.store.Upsert(e.toHistoryRecord(task)); err != nil {
		logger.Log.Warn().Err(err).Str("id", task.ID).Msg("history upsert failed")
	}
}

func (e *Engine) toHistoryRecord(task *queue.Task) history.HistoryRecord {
	var playlist *history.PlaylistContext
	if task.Playlist != nil {
		playlist = &history.PlaylistContext{
			PlaylistID:    task.Playlist.PlaylistID,
			PlaylistTitle: task.Playlist.PlaylistTitle,
			PlaylistIndex: task.Playlist.PlaylistIndex,
			PlaylistSize:  task.Playlist.PlaylistSize,
		}
	}

	var selectedFormatJSON string
	if task.SelectedFormat != nil {
		if b, err := json.Marshal(task.SelectedFormat); err == nil {
			selectedFormatJSON = string(b)
		}
	}

	return history.HistoryRecord{
		ID:             task.ID,
		URL:            task.Request.URL,
		Title:          task.Title,
		Thumbnail:      task.Thumbnail,
		Kind:           toHistoryKind(task.Request.Kind),
		Status:         toHistoryStatus(task.Status),
		DownloadPath:   task.DownloadPath,
		SavedFileName:  task.SavedFileName,
		FileSize:       task.FileSize,
		Duration:       task.Duration,
		CompletedAt:    task.CompletedAt,
		Error:          task.Error,
		Description:    task.Description,
		Channel:        task.Channel,
		Uploader:       task.Uploader,
		ViewCount:      task.ViewCount,
		Tags:           task.Request.Tags,
		Origin:         toHistoryOrigin(task.Request.Origin),
		SubscriptionID: task.Request.SubscriptionID,
		SelectedFormat: selectedFormatJSON,
		Playlist:       playlist,
	}
}

// resolvedSelector applies the FormatResolver to the job's catalog (empty
// if Info failed), falling back to yt-dlp's own "best"/"bestaudio"
// defaults when no catalog is available to resolve against.
func resolvedSelector(req queue.Request, catalog []format.Descriptor) (string, *format.Descriptor) {
	preset := req.Preset
	if preset == "" {
		preset = format.Normal
	}

	if req.Kind == queue.KindAudio {
		if len(catalog) == 0 {
			return format.AudioSelectorString(req.ExplicitAudioFormat), nil
		}
		d := format.Resolve(catalog, toFormatRequest(req), preset)
		if d == nil {
			return format.AudioSelectorString(req.ExplicitAudioFormat), nil
		}
		if req.ExplicitAudioFormat == "" {
			return d.ID, d
		}
		return format.AudioSelectorString(req.ExplicitAudioFormat), d
	}

	if len(catalog) == 0 {
		if req.ExplicitFormatSelector != "" {
			return req.ExplicitFormatSelector, nil
		}
		return "bestvideo+bestaudio/best", nil
	}
	d := format.Resolve(catalog, toFormatRequest(req), preset)
	if d == nil {
		return "bestvideo+bestaudio/best", nil
	}
	return format.VideoSelectorString(*d), d
}
