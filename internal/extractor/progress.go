package extractor

import (
	"bytes"
	"regexp"

	"vidbee/internal/format"
)

const sizeToken = `~?[\d.]+\s*[KMGT]?i?B`

// totalSizeRegex matches the total size yt-dlp always prints in its
// default progress template ("... of <total> at <speed> ETA <eta>").
var totalSizeRegex = regexp.MustCompile(`of\s+(` + sizeToken + `)`)

// downloadedSizeRegex additionally matches the downloaded size that
// fragment-style progress lines print before "of" (the percent-only
// template has no such prefix, so this simply fails to match there).
var downloadedSizeRegex = regexp.MustCompile(`(` + sizeToken + `)\s+of\s+`)

// parseSizePair extracts the downloaded/total byte counts from a progress
// line, if present, using the spec's exact byte-size grammar. Either or
// both values are zero when unparseable.
func parseSizePair(line string) (downloaded, total int64) {
	if m := totalSizeRegex.FindStringSubmatch(line); len(m) == 2 {
		total, _ = format.ParseByteSize(collapseSpace(m[1]))
	}
	if m := downloadedSizeRegex.FindStringSubmatch(line); len(m) == 2 {
		downloaded, _ = format.ParseByteSize(collapseSpace(m[1]))
	}
	return downloaded, total
}

func collapseSpace(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' {
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}

// splitCRLF is a bufio.SplitFunc that breaks on either \r or \n, needed
// because yt-dlp rewrites its progress line in place using carriage
// returns rather than emitting a newline per update.
func splitCRLF(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\r' && i+1 < len(data) && data[i+1] == '\n' {
			return i + 2, data[:i], nil
		}
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
