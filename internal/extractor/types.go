// Package extractor implements the ExtractorDriver: locating the yt-dlp
// binary, composing its argument vectors, spawning it, and turning its
// stdout/stderr into a typed event stream.
package extractor

import "vidbee/internal/format"

// VideoInfo holds the subset of yt-dlp's -j output the core persists or
// displays.
type VideoInfo struct {
	ID          string
	Title       string
	Thumbnail   string
	Duration    int
	Uploader    string
	Channel     string
	Description string
	ViewCount   int64
	WebpageURL  string
	Formats     []format.Descriptor
}

// PlaylistInfo is the result of a flat-playlist listing: the playlist's
// own id/title plus every entry. The id/title come from the wrapping
// playlist object when the extractor prints one, else from the first entry.
type PlaylistInfo struct {
	ID      string
	Title   string
	Entries []VideoInfo
}

// Options carries the subset of Settings the ExtractorDriver needs,
// decoupled from the config package so this package has no dependency on
// how settings are persisted.
type Options struct {
	Proxy               string
	CookiesFromBrowser  string
	CookiesFile         string
	ExtractorConfigPath string

	EmbedSubs      bool
	EmbedThumbnail bool
	EmbedMetadata  bool
	EmbedChapters  bool

	WindowsFilenames bool

	// Aria2Path, when non-empty, routes the download through aria2c as an
	// external downloader for multi-connection acceleration.
	Aria2Path        string
	Aria2Connections int
}

// DownloadSpec is the argument-construction input for a single download
// invocation, already resolved to a concrete format selector and output
// location by the caller (DownloadEngine + FormatResolver).
type DownloadSpec struct {
	URL              string
	Kind             format.Kind
	FormatSelector   string
	StartTime        string
	EndTime          string
	OutputTemplate   string // full -o value: directory joined with filename template
}

// EventType discriminates the union carried by Event.
type EventType int

const (
	EventProgress EventType = iota
	EventYtDlpEvent
	EventDestinationHint
	EventClose
	EventError
	EventLog
)

// ProgressFrame is a parsed download-progress observation.
type ProgressFrame struct {
	Percent    float64
	Speed      string
	ETA        string
	Downloaded int64
	Total      int64
}

// YtDlpEvent carries a format-id hint parsed from yt-dlp's own "info"/
// "download" structured lines (e.g. "[info] Downloading format NNN").
type YtDlpEvent struct {
	Kind     string // "info" or "download"
	FormatID string
}

// Event is one item of the stream Download returns. Exactly one of the
// payload fields is meaningful, selected by Type.
type Event struct {
	Type        EventType
	Progress    *ProgressFrame
	YtDlp       *YtDlpEvent
	Destination string
	Code        int
	Err         error
	Line        string
}
