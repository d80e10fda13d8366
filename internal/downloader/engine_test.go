package downloader

import (
	"testing"

	"vidbee/internal/config"
	"vidbee/internal/events"
	"vidbee/internal/extractor"
	"vidbee/internal/history"
	"vidbee/internal/queue"
)

// newTestEngine builds an Engine wired to a real (temp-dir) HistoryStore
// and a real Queue/Bus, with a Driver that is never invoked: every test
// here exercises Submit/Cancel/Status/UpdateTaskInfo coordination logic
// without calling Start(), so runJob (the only caller of the Driver)
// never runs. This mirrors the teacher's own constraint: the Driver
// spawns a real child process and isn't behind an interface, so
// process-driving behavior isn't exercised by unit tests.
func newTestEngine(t *testing.T) (*Engine, *history.Store) {
	t.Helper()

	db, err := history.Open(t.TempDir())
	if err != nil {
		t.Fatalf("history.Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := history.NewStore(db)

	bus := events.NewBus()
	q := queue.New(bus, 2, 16)
	driver := extractor.New("", "")

	settingsFn := func() config.Settings { return config.Default().Get() }

	e := New(q, driver, store, bus, settingsFn, t.TempDir(), "")
	return e, store
}

func TestEngine_Submit_RejectsMalformedURL(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.Submit("", queue.Request{URL: "not-a-url"}); err == nil {
		t.Fatal("expected Submit() to reject a malformed URL")
	}
}

func TestEngine_Submit_CreatesPendingTaskAndHistoryRecord(t *testing.T) {
	e, store := newTestEngine(t)

	id, err := e.Submit("", queue.Request{URL: "https://example.com/video", Kind: queue.KindVideo})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated id")
	}

	task, ok := e.GetTask(id)
	if !ok {
		t.Fatal("expected task to be registered with the queue")
	}
	if task.Status != queue.StatusPending {
		t.Errorf("Status = %q, want %q", task.Status, queue.StatusPending)
	}

	rec, err := store.Get(id)
	if err != nil {
		t.Fatalf("store.Get() error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a HistoryRecord to be upserted on submit")
	}
	if rec.Status != history.StatusPending {
		t.Errorf("record status = %q, want %q", rec.Status, history.StatusPending)
	}
	if rec.URL != "https://example.com/video" {
		t.Errorf("record URL = %q, want the submitted URL", rec.URL)
	}
}

func TestEngine_Submit_GeneratesIDWhenNotSupplied(t *testing.T) {
	e, _ := newTestEngine(t)

	id1, err := e.Submit("", queue.Request{URL: "https://example.com/a"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	id2, err := e.Submit("", queue.Request{URL: "https://example.com/b"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if id1 == id2 {
		t.Fatal("expected distinct generated ids")
	}
}

func TestEngine_Submit_RejectsDuplicateWhileDownloading(t *testing.T) {
	e, _ := newTestEngine(t)

	id, err := e.Submit("job-1", queue.Request{URL: "https://example.com/video"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	task, _ := e.GetTask(id)
	task.Status = queue.StatusDownloading

	if _, err := e.Submit(id, queue.Request{URL: "https://example.com/video"}); err == nil {
		t.Fatal("expected Submit to reject a duplicate id currently Downloading")
	}
}

func TestEngine_Submit_AllowsResubmitAfterTermination(t *testing.T) {
	e, _ := newTestEngine(t)

	id, err := e.Submit("job-1", queue.Request{URL: "https://example.com/video"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	task, _ := e.GetTask(id)
	task.Status = queue.StatusCompleted
	e.queue.OnCompletion(id) // real runJob always does this before a job reaches a terminal status

	if _, err := e.Submit(id, queue.Request{URL: "https://example.com/video"}); err != nil {
		t.Fatalf("expected resubmit of a terminal id to succeed, got: %v", err)
	}
}

func TestEngine_Cancel_WaitingJobTransitionsToCancelled(t *testing.T) {
	e, store := newTestEngine(t)

	// Saturate active slots first so the next submit stays in "waiting".
	if _, err := e.Submit("active-1", queue.Request{URL: "https://example.com/1"}); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if _, err := e.Submit("active-2", queue.Request{URL: "https://example.com/2"}); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	id, err := e.Submit("waiting-1", queue.Request{URL: "https://example.com/3"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	if !e.Cancel(id) {
		t.Fatal("expected Cancel() to report the waiting job was found")
	}

	task, ok := e.GetTask(id)
	if !ok {
		t.Fatal("expected the cancelled task to remain queryable via GetTask")
	}
	if task.Status != queue.StatusCancelled {
		t.Errorf("Status = %q, want %q", task.Status, queue.StatusCancelled)
	}
	if task.CompletedAt == nil {
		t.Error("expected CompletedAt to be set on cancellation")
	}

	rec, err := store.Get(id)
	if err != nil {
		t.Fatalf("store.Get() error: %v", err)
	}
	if rec == nil || rec.Status != history.StatusCancelled {
		t.Errorf("expected HistoryRecord status Cancelled, got %+v", rec)
	}
}

func TestEngine_Cancel_UnknownIDIsNoop(t *testing.T) {
	e, _ := newTestEngine(t)
	if e.Cancel("never-submitted") {
		t.Error("expected Cancel() on an unknown id to return false")
	}
}

func TestEngine_Cancel_TerminalJobIsIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	id, err := e.Submit("job-1", queue.Request{URL: "https://example.com/video"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	task, _ := e.GetTask(id)
	task.Status = queue.StatusError

	if e.Cancel(id) {
		t.Error("expected Cancel() on an already-terminal job to return false")
	}
}

func TestEngine_Status_ReflectsQueueSummary(t *testing.T) {
	e, _ := newTestEngine(t)

	if _, err := e.Submit("job-1", queue.Request{URL: "https://example.com/1"}); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}
	if _, err := e.Submit("job-2", queue.Request{URL: "https://example.com/2"}); err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	status := e.Status()
	if status.Active != 2 {
		t.Errorf("Active = %d, want 2", status.Active)
	}
}

func TestEngine_UpdateTaskInfo_MergesAndPersists(t *testing.T) {
	e, store := newTestEngine(t)

	id, err := e.Submit("job-1", queue.Request{URL: "https://example.com/video"})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	newTitle := "Renamed Title"
	if !e.UpdateTaskInfo(id, queue.TaskPatch{Title: &newTitle}) {
		t.Fatal("expected UpdateTaskInfo to find the task")
	}

	task, _ := e.GetTask(id)
	if task.Title != newTitle {
		t.Errorf("Title = %q, want %q", task.Title, newTitle)
	}

	rec, err := store.Get(id)
	if err != nil {
		t.Fatalf("store.Get() error: %v", err)
	}
	if rec == nil || rec.Title != newTitle {
		t.Errorf("expected HistoryRecord title to be updated, got %+v", rec)
	}
}

func TestEngine_Incognito_NeverPersistsToHistory(t *testing.T) {
	e, store := newTestEngine(t)

	id, err := e.Submit("job-1", queue.Request{URL: "https://example.com/video", Incognito: true})
	if err != nil {
		t.Fatalf("Submit() error: %v", err)
	}

	rec, err := store.Get(id)
	if err != nil {
		t.Fatalf("store.Get() error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected no HistoryRecord for an Incognito job, got %+v", rec)
	}
}

func TestSanitizeTitle_ReplacesUnsafeCharsAndTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 80; i++ {
		long += "a"
	}
	got := sanitizeTitle("weird / name : with * unsafe ? chars" + long)
	for _, c := range []rune{'/', ':', '*', '?'} {
		for _, r := range got {
			if r == c {
				t.Errorf("sanitizeTitle() retained unsafe char %q", c)
			}
		}
	}
	if len([]rune(got)) > 50 {
		t.Errorf("sanitizeTitle() length = %d, want <= 50", len([]rune(got)))
	}
}

func TestResolvedExtension_AudioAlwaysMP3(t *testing.T) {
	if ext := resolvedExtension(queue.KindAudio, "webm"); ext != "mp3" {
		t.Errorf("resolvedExtension(Audio, webm) = %q, want mp3", ext)
	}
}

func TestResolvedExtension_VideoFallsBackToMP4(t *testing.T) {
	if ext := resolvedExtension(queue.KindVideo, ""); ext != "mp4" {
		t.Errorf("resolvedExtension(Video, \"\") = %q, want mp4", ext)
	}
	if ext := resolvedExtension(queue.KindVideo, "webm"); ext != "webm" {
		t.Errorf("resolvedExtension(Video, webm) = %q, want webm", ext)
	}
}
