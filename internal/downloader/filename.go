package downloader

import (
	"os"
	"path/filepath"
	"strings"

	"vidbee/internal/config"
	"vidbee/internal/constants"
	"vidbee/internal/format"
	"vidbee/internal/queue"
)

// filesystemUnsafe is replaced by "_" when sanitizing a title for use as
// a filename, matching the characters every major OS forbids in a path
// component.
const filesystemUnsafe = `/\:*?"<>|`

func sanitizeTitle(title string) string {
	title = strings.TrimSpace(title)
	var b strings.Builder
	for _, r := range title {
		if strings.ContainsRune(filesystemUnsafe, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	sanitized := b.String()
	runes := []rune(sanitized)
	if len(runes) > constants.MaxSanitizedTitleLength {
		runes = runes[:constants.MaxSanitizedTitleLength]
	}
	return strings.TrimSpace(string(runes))
}

// resolvedExtension picks the final file extension per step 5: "mp3" for
// Audio, else the resolved extension observed from the format catalog,
// else "mp4".
func resolvedExtension(kind queue.Kind, resolvedExt string) string {
	if kind == queue.KindAudio {
		return "mp3"
	}
	if resolvedExt != "" {
		return resolvedExt
	}
	return "mp4"
}

// outputDir resolves the directory a job's file lands in: the request's
// override, else the settings' download path if set,
// else the engine's default downloads directory.
func (e *Engine) outputDir(req queue.Request, s config.Settings) string {
	if req.OutputDirOverride != "" {
		return req.OutputDirOverride
	}
	if s.DownloadPath != "" {
		return s.DownloadPath
	}
	return e.downloadDir
}

// outputTemplate builds the -o value passed to the extractor: the
// resolved directory joined with the sanitized yt-dlp filename template
// (still containing %(title)s-style placeholders the extractor itself
// expands). The template is sanitized before joining so a user-,
// subscription-, or per-request-supplied value can never inject path
// traversal or characters the filesystem rejects into the child process's
// -o argument.
func (e *Engine) outputTemplate(req queue.Request, s config.Settings) string {
	tmpl := req.FilenameTemplateOverride
	if tmpl == "" {
		if req.Origin == queue.OriginSubscription && s.SubscriptionFilenameTemplate != "" {
			tmpl = s.SubscriptionFilenameTemplate
		} else {
			tmpl = s.FilenameTemplate
		}
	}
	tmpl = format.SanitizeTemplate(tmpl)
	return filepath.Join(e.outputDir(req, s), tmpl)
}

// finalizeOutput computes the deterministic output path per spec §4.4
// step 5 and returns it alongside the best file size estimate: a stat of
// the computed path, falling back to latestKnownSize when the file can't
// be stat'd (extractor post-processing renamed it, ran in a container
// without shared fs visibility, etc).
func (e *Engine) finalizeOutput(task *queue.Task, req queue.Request, s config.Settings, latestKnownSize int64) (path, savedFileName string, size int64) {
	ext := resolvedExtension(req.Kind, task.ResolvedExt)
	savedFileName = sanitizeTitle(task.Title) + "." + ext
	path = filepath.Join(e.outputDir(req, s), savedFileName)

	size = latestKnownSize
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return path, savedFileName, size
}
