package extractor

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"unicode/utf8"

	apperr "vidbee/internal/errors"
	"vidbee/internal/paths"
)

var (
	// progressRegex captures percentage values from yt-dlp's progress lines.
	progressRegex = regexp.MustCompile(`(\d+\.?\d*)%`)
	// ansiRegex strips terminal color codes yt-dlp emits even with
	// --no-color unset.
	ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)
	// ytDlpEventRegex matches yt-dlp's own structured status lines, e.g.
	// "[info] Downloading format 137" or "[download] Downloading format 137".
	ytDlpEventRegex = regexp.MustCompile(`\[(info|download)\].*?format\s+(\S+)`)
)

// sanitizeUTF8 recovers a best-effort UTF-8 string from output that may
// have arrived as CP1252/Latin-1 (observed on Windows consoles).
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	runes := make([]rune, 0, len(s))
	for i := 0; i < len(s); i++ {
		runes = append(runes, rune(s[i]))
	}
	return string(runes)
}

// Driver implements the ExtractorDriver.
type Driver struct {
	ytDlpPath  string
	ffmpegPath string
}

// New constructs a Driver bound to a located extractor and ffmpeg
// companion binary.
func New(ytDlpPath, ffmpegPath string) *Driver {
	return &Driver{ytDlpPath: ytDlpPath, ffmpegPath: ffmpegPath}
}

// Locate resolves the extractor binary path per spec.md §4.1's locator
// policy, failing fast on Windows and with an installation hint
// elsewhere when no candidate is found.
func Locate(p *paths.Paths, envOverride string) (string, error) {
	found, err := p.LocateExtractor(envOverride)
	if err != nil {
		if runtime.GOOS == "windows" {
			return "", apperr.NewWithMessage("extractor.Locate", apperr.ErrExtractorNotFound,
				"yt-dlp was not found; reinstall the application or set VIDBEE_YTDLP_PATH")
		}
		return "", apperr.NewWithMessage("extractor.Locate", apperr.ErrExtractorNotFound,
			"yt-dlp was not found; install it with your package manager or set VIDBEE_YTDLP_PATH")
	}
	return found, nil
}

// command builds the child process for an extractor invocation. Per
// spec.md §6, PYTHONIOENCODING and LC_ALL are set only on Windows, where
// the console codepage otherwise mangles non-ASCII titles.
func (d *Driver) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, d.ytDlpPath, args...)
	cmd.Env = append(cmd.Environ(), "PYTHONUTF8=1")
	if runtime.GOOS == "windows" {
		cmd.Env = append(cmd.Env,
			"PYTHONIOENCODING=utf-8",
			"LC_ALL=C.UTF-8",
		)
	}
	setSysProcAttr(cmd)
	return cmd
}

// Info fetches metadata for a single URL.
func (d *Driver) Info(ctx context.Context, url string, opts Options) (VideoInfo, error) {
	cmd := d.command(ctx, buildInfoArgs(url, opts))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, &apperr.ExtractorError{Stderr: strings.TrimSpace(stderr.String()), ExitCode: exitCode(err)}
	}

	var raw rawVideoInfo
	if err := json.Unmarshal(output, &raw); err != nil {
		return VideoInfo{}, &apperr.ParseError{Where: "extractor.Info", Err: err}
	}
	return raw.toVideoInfo(), nil
}

// Playlist fetches a flat listing for a playlist (or carousel) URL. A
// single wrapping `_type: playlist` object supplies the playlist's own
// id/title; for one-object-per-line output the first entry supplies them.
func (d *Driver) Playlist(ctx context.Context, url string, opts Options) (PlaylistInfo, error) {
	cmd := d.command(ctx, buildPlaylistArgs(url, opts))
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return PlaylistInfo{}, &apperr.ExtractorError{Stderr: strings.TrimSpace(stderr.String()), ExitCode: exitCode(err)}
	}

	var wrapped rawPlaylist
	if err := json.Unmarshal(output, &wrapped); err == nil && wrapped.Type == "playlist" {
		return toPlaylistInfo(wrapped.ID, wrapped.Title, wrapped.Entries), nil
	}

	var entries []rawVideoInfo
	scanner := bufio.NewScanner(bytes.NewReader(output))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var entry rawVideoInfo
		if err := json.Unmarshal(scanner.Bytes(), &entry); err == nil {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return PlaylistInfo{}, &apperr.ParseError{Where: "extractor.Playlist", Err: fmt.Errorf("no playlist entries parsed")}
	}

	first := entries[0]
	return toPlaylistInfo(first.ID, first.Title, entries), nil
}

func toPlaylistInfo(id, title string, raw []rawVideoInfo) PlaylistInfo {
	entries := make([]VideoInfo, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, r.toVideoInfo())
	}
	return PlaylistInfo{ID: id, Title: title, Entries: entries}
}

// Download spawns the extractor for a single job and streams parsed
// events until the process exits. The channel is closed once the final
// EventClose has been delivered.
func (d *Driver) Download(ctx context.Context, spec DownloadSpec, opts Options) (<-chan Event, error) {
	args := buildDownloadArgs(spec, opts)
	if d.ffmpegPath != "" {
		args = append([]string{"--ffmpeg-location", d.ffmpegPath}, args...)
	}
	args = append([]string{"--newline"}, args...)

	cmd := d.command(ctx, args)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		streamLines(stdout, events)

		err := cmd.Wait()
		select {
		case <-ctx.Done():
			events <- Event{Type: EventClose, Code: -1, Err: ctx.Err()}
			return
		default:
		}
		if err != nil {
			events <- Event{Type: EventClose, Code: exitCode(err), Err: err}
			return
		}
		events <- Event{Type: EventClose, Code: 0}
	}()

	return events, nil
}

// streamLines reads r line-by-line (breaking on \r or \n, since yt-dlp
// rewrites its progress line in place with carriage returns) and parses
// each line into an Event.
func streamLines(r io.Reader, events chan<- Event) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitCRLF)

	for scanner.Scan() {
		line := ansiRegex.ReplaceAllString(scanner.Text(), "")
		line = strings.TrimSpace(line)
		line = sanitizeUTF8(line)
		if line == "" {
			continue
		}

		events <- Event{Type: EventLog, Line: line}

		if idx := strings.Index(line, "Destination:"); idx != -1 {
			dest := strings.TrimSpace(line[idx+len("Destination:"):])
			if dest != "" {
				events <- Event{Type: EventDestinationHint, Destination: dest}
			}
		}

		if m := ytDlpEventRegex.FindStringSubmatch(line); len(m) == 3 {
			events <- Event{Type: EventYtDlpEvent, YtDlp: &YtDlpEvent{Kind: m[1], FormatID: m[2]}}
		}

		if m := progressRegex.FindStringSubmatch(line); len(m) >= 2 {
			percent, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			frame := ProgressFrame{Percent: percent}

			if strings.Contains(line, "/s") {
				for _, field := range strings.Fields(line) {
					if strings.Contains(field, "/s") {
						frame.Speed = field
						break
					}
				}
			}
			if idx := strings.Index(line, "ETA"); idx != -1 {
				rest := strings.TrimSpace(line[idx+3:])
				if fields := strings.Fields(rest); len(fields) > 0 {
					frame.ETA = strings.Trim(fields[0], "[]()")
				}
			}
			downloaded, total := parseSizePair(line)
			frame.Downloaded = downloaded
			frame.Total = total

			events <- Event{Type: EventProgress, Progress: &frame}
		}
	}
}

func exitCode(err error) int {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}
