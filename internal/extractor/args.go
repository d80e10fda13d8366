package extractor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// expandHome resolves a leading "~" to the current user's home directory,
// the way shells do for --config-location paths.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// appendAuthArgs appends the cookies/proxy/config-location flags shared
// by info, playlist, and download argument vectors.
func appendAuthArgs(args []string, opts Options) []string {
	if opts.Proxy != "" {
		args = append(args, "--proxy", opts.Proxy)
	}
	// Cookies file wins over browser cookies when both are set.
	if opts.CookiesFile != "" {
		args = append(args, "--cookies", opts.CookiesFile)
	} else if opts.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", opts.CookiesFromBrowser)
	}
	if opts.ExtractorConfigPath != "" {
		args = append(args, "--config-location", expandHome(opts.ExtractorConfigPath))
	}
	return args
}

// buildInfoArgs constructs the argument vector for a single-video info
// lookup per spec.md §4.1.
func buildInfoArgs(url string, opts Options) []string {
	args := []string{"-j", "--no-playlist", "--no-warnings", "--encoding", "utf-8"}
	args = appendAuthArgs(args, opts)
	return append(args, url)
}

// buildPlaylistArgs constructs the argument vector for a flat-playlist
// listing: the same flag set as info, plus --flat-playlist and without
// --no-playlist.
func buildPlaylistArgs(url string, opts Options) []string {
	args := []string{"-j", "--flat-playlist", "--no-warnings", "--encoding", "utf-8"}
	args = appendAuthArgs(args, opts)
	return append(args, url)
}

// buildDownloadArgs constructs the argument vector for a download
// invocation per spec.md §4.1's rules.
func buildDownloadArgs(spec DownloadSpec, opts Options) []string {
	args := []string{"--no-playlist", "--no-mtime", "--encoding", "utf-8"}

	if opts.Aria2Path != "" {
		connections := opts.Aria2Connections
		if connections <= 0 {
			connections = 16
		}
		args = append(args, "--external-downloader", opts.Aria2Path,
			"--external-downloader-args", fmt.Sprintf("aria2c:-x%d -s%d -k1M", connections, connections))
	}

	args = append(args, "-f", spec.FormatSelector)

	if spec.StartTime != "" || spec.EndTime != "" {
		args = append(args, "--download-sections", "*"+spec.StartTime+"-"+spec.EndTime)
	}

	if opts.EmbedSubs {
		args = append(args, "--embed-subs", "--sub-langs", "all")
	} else {
		args = append(args, "--no-embed-subs", "--write-subs")
	}
	if opts.EmbedThumbnail {
		args = append(args, "--embed-thumbnail")
	} else {
		args = append(args, "--no-embed-thumbnail")
	}
	if opts.EmbedMetadata {
		args = append(args, "--embed-metadata")
	} else {
		args = append(args, "--no-embed-metadata")
	}
	if opts.EmbedChapters {
		args = append(args, "--embed-chapters")
	} else {
		args = append(args, "--no-embed-chapters")
	}

	args = append(args, "-o", spec.OutputTemplate)

	if opts.WindowsFilenames {
		args = append(args, "--windows-filenames")
	}

	args = appendAuthArgs(args, opts)

	return append(args, spec.URL)
}
