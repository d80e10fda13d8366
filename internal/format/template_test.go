package format_test

import (
	"testing"

	"vidbee/internal/format"
)

func TestSanitizeTemplate_TrimsAndDefaultsEmpty(t *testing.T) {
	if got := format.SanitizeTemplate("   "); got != "%(title)s via VidBee.%(ext)s" {
		t.Errorf("SanitizeTemplate(whitespace) = %q, want default", got)
	}
	if got := format.SanitizeTemplate(""); got != "%(title)s via VidBee.%(ext)s" {
		t.Errorf("SanitizeTemplate(empty) = %q, want default", got)
	}
}

func TestSanitizeTemplate_PreservesPlaceholdersAndSlashes(t *testing.T) {
	got := format.SanitizeTemplate("%(uploader)s/%(title)s.%(ext)s")
	want := "%(uploader)s/%(title)s.%(ext)s"
	if got != want {
		t.Errorf("SanitizeTemplate() = %q, want %q", got, want)
	}
}

func TestSanitizeTemplate_ReplacesDisallowedCharsPerSegment(t *testing.T) {
	got := format.SanitizeTemplate(`bad<>:"|?*name/%(title)s`)
	want := "bad-------name/%(title)s"
	if got != want {
		t.Errorf("SanitizeTemplate() = %q, want %q", got, want)
	}
}

func TestSanitizeTemplate_DropsLeadingPathSeparator(t *testing.T) {
	got := format.SanitizeTemplate("/%(title)s")
	want := "%(title)s"
	if got != want {
		t.Errorf("SanitizeTemplate() = %q, want %q", got, want)
	}
}

func TestSanitizeTemplate_StripsStrayBackslashWithinSegment(t *testing.T) {
	got := format.SanitizeTemplate(`weird\segment/%(title)s`)
	want := "weirdsegment/%(title)s"
	if got != want {
		t.Errorf("SanitizeTemplate() = %q, want %q", got, want)
	}
}

func TestSanitizeTemplate_StripsTrailingDotsAndSpacesPerSegment(t *testing.T) {
	got := format.SanitizeTemplate("dir. . /%(title)s  . ")
	want := "dir/%(title)s"
	if got != want {
		t.Errorf("SanitizeTemplate() = %q, want %q", got, want)
	}
}

func TestSanitizeTemplate_DropsEmptySegmentsAfterTraversalStrip(t *testing.T) {
	got := format.SanitizeTemplate("//%(title)s")
	want := "%(title)s"
	if got != want {
		t.Errorf("SanitizeTemplate() = %q, want %q", got, want)
	}
}
