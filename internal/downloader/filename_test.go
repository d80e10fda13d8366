package downloader

import (
	"path/filepath"
	"testing"

	"vidbee/internal/config"
	"vidbee/internal/queue"
)

func TestOutputTemplate_SanitizesUnsafeOverride(t *testing.T) {
	e, _ := newTestEngine(t)
	s := config.Default().Get()

	req := queue.Request{FilenameTemplateOverride: `../../etc/bad<>:"|?*name.%(ext)s`}
	got := e.outputTemplate(req, s)

	// The ".." segments are entirely trailing dots, so the "strip
	// trailing dots per segment" rule collapses each to "" and they are
	// dropped, incidentally defeating the traversal attempt.
	want := filepath.Join(e.outputDir(req, s), `etc/bad-------name.%(ext)s`)
	if got != want {
		t.Errorf("outputTemplate() = %q, want %q", got, want)
	}
}

func TestOutputTemplate_FallsBackToDefaultWhenAllSettingsEmpty(t *testing.T) {
	e, _ := newTestEngine(t)
	s := config.Default().Get()
	s.FilenameTemplate = ""
	s.SubscriptionFilenameTemplate = ""

	req := queue.Request{}
	got := e.outputTemplate(req, s)
	want := filepath.Join(e.outputDir(req, s), "%(title)s via VidBee.%(ext)s")
	if got != want {
		t.Errorf("outputTemplate() = %q, want %q", got, want)
	}
}
