package downloader

import (
	"context"
	"fmt"
	"time"

	"vidbee/internal/config"
	"vidbee/internal/events"
	"vidbee/internal/extractor"
	"vidbee/internal/format"
	"vidbee/internal/logger"
	"vidbee/internal/queue"
)

// Start begins consuming the DownloadQueue's start-download signals and
// flushing coalesced progress events, until ctx is cancelled or Stop is
// called.
func (e *Engine) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.runCancel = cancel
	e.mu.Unlock()

	go e.flushProgressLoop(runCtx)
	go e.consumeStartSignals(runCtx)
}

// Stop halts the run loops started by Start. Each in-flight job's context
// derives from the run context, so Stop also cancels every running
// download; those jobs finalize as Cancelled.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.runCancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) consumeStartSignals(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-e.queue.StartSignals():
			if !ok {
				return
			}
			jobCtx, cancel := context.WithCancel(ctx)
			e.mu.Lock()
			e.cancel[sig.ID] = cancel
			e.mu.Unlock()
			go e.runJob(jobCtx, sig.ID, sig.Request)
		}
	}
}

func (e *Engine) flushProgressLoop(ctx context.Context) {
	ticker := time.NewTicker(progressFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.flushPendingProgress()
		}
	}
}

func (e *Engine) flushPendingProgress() {
	e.progressMu.Lock()
	if len(e.pending) == 0 {
		e.progressMu.Unlock()
		return
	}
	batch := e.pending
	e.pending = make(map[string]events.Progress)
	e.progressMu.Unlock()

	for id, p := range batch {
		e.bus.Publish(events.ProgressEvent(id, p))
	}
}

func (e *Engine) queueProgress(id string, p events.Progress) {
	e.progressMu.Lock()
	e.pending[id] = p
	e.progressMu.Unlock()
}

// runJob drives a single job from Pending through a terminal status,
// implementing spec.md §4.4's start-to-finish execution steps 1-7.
func (e *Engine) runJob(ctx context.Context, id string, req queue.Request) {
	defer func() {
		e.mu.Lock()
		delete(e.cancel, id)
		e.mu.Unlock()
		e.queue.OnCompletion(id)
	}()

	settings := e.settings()
	opts := e.mapOptions(settings)

	e.mu.Lock()
	task := e.tasks[id]
	if task == nil {
		task = &queue.Task{ID: id, Request: req, Status: queue.StatusPending}
		e.tasks[id] = task
	}
	task.Status = queue.StatusDownloading
	startedAt := time.Now()
	task.StartedAt = &startedAt
	e.mu.Unlock()

	e.persist(task, req.Incognito)
	e.bus.Publish(events.Started(id))

	// Step 2: best-effort info resolve. Failure degrades to a minimal
	// display task rather than aborting the job.
	var catalog []format.Descriptor
	if info, err := e.driver.Info(ctx, req.URL, opts); err == nil {
		catalog = info.Formats
		e.applyInfo(task, info)
	} else {
		logger.Log.Warn().Err(err).Str("id", id).Msg("video info resolve failed; continuing with minimal display task")
	}

	selector, desc := resolvedSelector(req, catalog)
	if desc != nil {
		e.applySelectedFormat(task, *desc)
	}
	e.persist(task, req.Incognito)

	spec := extractor.DownloadSpec{
		URL:            req.URL,
		Kind:           toFormatKind(req.Kind),
		FormatSelector: selector,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		OutputTemplate: e.outputTemplate(req, settings),
	}

	eventsCh, err := e.driver.Download(ctx, spec, opts)
	if err != nil {
		e.finalizeError(id, task, req, err)
		return
	}

	var latestKnownSize int64
	for ev := range eventsCh {
		switch ev.Type {
		case extractor.EventProgress:
			latestKnownSize = maxInt64(latestKnownSize, ev.Progress.Total, ev.Progress.Downloaded)
			e.queueProgress(id, events.Progress{
				Percent:    ev.Progress.Percent,
				Speed:      ev.Progress.Speed,
				ETA:        ev.Progress.ETA,
				Downloaded: ev.Progress.Downloaded,
				Total:      ev.Progress.Total,
			})
		case extractor.EventYtDlpEvent:
			if ev.YtDlp == nil || ev.YtDlp.FormatID == "" {
				continue
			}
			if d := findDescriptor(catalog, ev.YtDlp.FormatID); d != nil {
				e.applySelectedFormat(task, *d)
			}
		case extractor.EventClose:
			e.finalizeClose(ctx, id, task, req, settings, ev, latestKnownSize)
		}
	}
}

func (e *Engine) applyInfo(task *queue.Task, info extractor.VideoInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if info.Title != "" {
		task.Title = info.Title
	}
	task.Thumbnail = info.Thumbnail
	task.Duration = info.Duration
	task.Description = info.Description
	task.Uploader = info.Uploader
	task.Channel = info.Channel
	task.ViewCount = info.ViewCount
}

func (e *Engine) applySelectedFormat(task *queue.Task, d format.Descriptor) {
	e.mu.Lock()
	defer e.mu.Unlock()
	task.SelectedFormat = &d
	task.ResolvedExt = d.Ext
	task.ResolvedCodec = codecLabel(d)
	task.ResolvedQualityLabel = qualityLabel(d)
}

func (e *Engine) finalizeClose(ctx context.Context, id string, task *queue.Task, req queue.Request, settings config.Settings, ev extractor.Event, latestKnownSize int64) {
	now := time.Now()

	if ctx.Err() != nil {
		e.mu.Lock()
		task.Status = queue.StatusCancelled
		task.CompletedAt = &now
		e.mu.Unlock()
		e.persist(task, req.Incognito)
		e.bus.Publish(events.Cancelled(id))
		return
	}

	if ev.Code == 0 {
		path, savedFileName, size := e.finalizeOutput(task, req, settings, latestKnownSize)
		e.mu.Lock()
		task.Status = queue.StatusCompleted
		task.CompletedAt = &now
		task.DownloadPath = path
		task.SavedFileName = savedFileName
		task.FileSize = size
		e.mu.Unlock()
		e.persist(task, req.Incognito)
		e.bus.Publish(events.Completed(id))
		return
	}

	msg := fmt.Sprintf("exit code %d", ev.Code)
	e.mu.Lock()
	task.Status = queue.StatusError
	task.CompletedAt = &now
	task.Error = msg
	e.mu.Unlock()
	e.persist(task, req.Incognito)
	e.bus.Publish(events.Error(id, msg))
}

func (e *Engine) finalizeError(id string, task *queue.Task, req queue.Request, err error) {
	now := time.Now()
	e.mu.Lock()
	task.Status = queue.StatusError
	task.CompletedAt = &now
	task.Error = err.Error()
	e.mu.Unlock()
	e.persist(task, req.Incognito)
	e.bus.Publish(events.Error(id, err.Error()))
}

func findDescriptor(catalog []format.Descriptor, id string) *format.Descriptor {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i]
		}
	}
	return nil
}

// qualityLabel renders a resolved format as "<height>p" or "<height>p60"
// for ~60fps streams, falling back to the extractor's own format_note
// when no height is reported (common for audio-only descriptors).
func qualityLabel(d format.Descriptor) string {
	if d.Height > 0 {
		if d.FPS >= 48 {
			return fmt.Sprintf("%dp%d", d.Height, 60)
		}
		return fmt.Sprintf("%dp", d.Height)
	}
	return d.FormatNote
}

// codecLabel prefers the video codec (the dimension users recognize,
// e.g. "avc1"/"vp9"/"av01"), falling back to the audio codec for
// audio-only descriptors.
func codecLabel(d format.Descriptor) string {
	if d.HasVideo() {
		return d.VCodec
	}
	return d.ACodec
}

func maxInt64(values ...int64) int64 {
	var m int64
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
