package extractor

import (
	"strings"
	"testing"

	"vidbee/internal/format"
)

func contains(args []string, want string) bool {
	for _, a := range args {
		if a == want {
			return true
		}
	}
	return false
}

func TestBuildInfoArgs(t *testing.T) {
	args := buildInfoArgs("https://example.com/watch", Options{})
	for _, want := range []string{"-j", "--no-playlist", "--no-warnings", "--encoding"} {
		if !contains(args, want) {
			t.Errorf("buildInfoArgs() missing %q, got %v", want, args)
		}
	}
	if args[len(args)-1] != "https://example.com/watch" {
		t.Errorf("buildInfoArgs() url should be last, got %v", args)
	}
}

func TestBuildInfoArgs_CookiesFileWinsOverBrowser(t *testing.T) {
	args := buildInfoArgs("u", Options{CookiesFile: "/tmp/cookies.txt", CookiesFromBrowser: "chrome"})
	if !contains(args, "--cookies") {
		t.Error("expected --cookies flag")
	}
	if contains(args, "--cookies-from-browser") {
		t.Error("cookies file should win over browser cookies")
	}
}

func TestBuildPlaylistArgs_HasFlatPlaylistNotNoPlaylist(t *testing.T) {
	args := buildPlaylistArgs("u", Options{})
	if !contains(args, "--flat-playlist") {
		t.Error("expected --flat-playlist")
	}
	if contains(args, "--no-playlist") {
		t.Error("playlist listing must not pass --no-playlist")
	}
}

func TestBuildDownloadArgs_EmbedTogglesOnAndOff(t *testing.T) {
	on := buildDownloadArgs(DownloadSpec{URL: "u", FormatSelector: "22"}, Options{
		EmbedSubs: true, EmbedThumbnail: true, EmbedMetadata: true, EmbedChapters: true,
	})
	for _, want := range []string{"--embed-subs", "--sub-langs", "--embed-thumbnail", "--embed-metadata", "--embed-chapters"} {
		if !contains(on, want) {
			t.Errorf("embed-on args missing %q: %v", want, on)
		}
	}

	off := buildDownloadArgs(DownloadSpec{URL: "u", FormatSelector: "22"}, Options{})
	for _, want := range []string{"--no-embed-subs", "--write-subs", "--no-embed-thumbnail", "--no-embed-metadata", "--no-embed-chapters"} {
		if !contains(off, want) {
			t.Errorf("embed-off args missing %q: %v", want, off)
		}
	}
}

func TestBuildDownloadArgs_TimeSlice(t *testing.T) {
	args := buildDownloadArgs(DownloadSpec{URL: "u", FormatSelector: "22", StartTime: "10", EndTime: "20"}, Options{})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--download-sections *10-20") {
		t.Errorf("expected time-slice section, got %q", joined)
	}
}

func TestBuildDownloadArgs_EmptyEndAllowed(t *testing.T) {
	args := buildDownloadArgs(DownloadSpec{URL: "u", FormatSelector: "22", StartTime: "10"}, Options{})
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--download-sections *10-") {
		t.Errorf("expected open-ended time-slice, got %q", joined)
	}
}

func TestBuildDownloadArgs_WindowsFilenames(t *testing.T) {
	args := buildDownloadArgs(DownloadSpec{URL: "u", FormatSelector: "22"}, Options{WindowsFilenames: true})
	if !contains(args, "--windows-filenames") {
		t.Error("expected --windows-filenames when requested")
	}
}

func TestBuildDownloadArgs_URLLast(t *testing.T) {
	args := buildDownloadArgs(DownloadSpec{URL: "https://example.com/v", FormatSelector: "22"}, Options{})
	if args[len(args)-1] != "https://example.com/v" {
		t.Errorf("url should be last argument, got %v", args)
	}
}

func TestExpandHome(t *testing.T) {
	if got := expandHome(""); got != "" {
		t.Errorf("expandHome(\"\") = %q, want empty", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome(abs) = %q, want unchanged", got)
	}
	if got := expandHome("~/ytdlp.conf"); strings.HasPrefix(got, "~") {
		t.Errorf("expandHome(~/x) should expand, got %q", got)
	}
}

func TestDownloadSpec_KindField(t *testing.T) {
	spec := DownloadSpec{Kind: format.Audio}
	if spec.Kind != format.Audio {
		t.Errorf("DownloadSpec.Kind = %v, want format.Audio", spec.Kind)
	}
}
