// Package paths resolves the application's on-disk layout: config/history
// location, the extractor sidecar search path, and the default downloads
// directory.
package paths

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// errExtractorNotFound is returned when every locator rung is exhausted.
// Defined locally (rather than importing internal/errors) to keep this
// leaf package free of cycles; internal/extractor wraps it as
// errors.ErrExtractorNotFound at the call site.
var errExtractorNotFound = errors.New("extractor binary not found")

// ErrExtractorNotFound is the sentinel LocateExtractor returns when no
// candidate binary exists.
var ErrExtractorNotFound = errExtractorNotFound

func lookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// DevMode is set at build time via ldflags to isolate dev environment from production.
// When true, uses "VidBee-dev" directory instead of "VidBee".
// Example: -ldflags "-X 'vidbee/internal/paths.DevMode=true'"
var DevMode string = "false"

// getAppDirName returns the app directory name based on build mode.
func getAppDirName() string {
	if DevMode == "true" {
		return "VidBee-dev"
	}
	return "VidBee"
}

// Paths holds all application directory paths.
type Paths struct {
	AppData   string // %AppData%/VidBee (settings, history db)
	Bin       string // %AppData%/VidBee/bin (companion-binary fallback; LocateExtractor does not search it)
	Downloads string // ~/Videos/VidBee (default output directory)
	ExeDir    string // directory containing the running executable
}

// GetPaths returns the application paths based on OS.
func GetPaths() (*Paths, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}

	appData := filepath.Join(configDir, getAppDirName())
	bin := filepath.Join(appData, "bin")

	exePath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	exeDir := filepath.Dir(exePath)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	var downloads string
	switch runtime.GOOS {
	case "windows":
		downloads = filepath.Join(homeDir, "Videos", "VidBee")
	case "darwin":
		downloads = filepath.Join(homeDir, "Movies", "VidBee")
	default:
		downloads = filepath.Join(homeDir, "Videos", "VidBee")
	}

	return &Paths{
		AppData:   appData,
		Bin:       bin,
		Downloads: downloads,
		ExeDir:    exeDir,
	}, nil
}

// EnsureDirectories creates all required directories.
func (p *Paths) EnsureDirectories() error {
	dirs := []string{p.AppData, p.Bin, p.Downloads}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// sidecarBinaryName returns the bundled extractor binary name for the
// current OS, per the naming convention the installer packages it under.
func sidecarBinaryName() string {
	switch runtime.GOOS {
	case "windows":
		return "yt-dlp.exe"
	case "darwin":
		return "yt-dlp_macos"
	default:
		return "yt-dlp_linux"
	}
}

// getSidecarPaths returns all possible bundled-extractor locations for the
// current OS, in priority order (first match wins).
//
//   - Windows NSIS: ExeDir/bin/yt-dlp.exe
//   - macOS App Bundle: .app/Contents/Resources/bin/yt-dlp_macos (the
//     executable lives in .app/Contents/MacOS/, so we go up two levels)
//   - Linux AppImage: next to the executable, or ExeDir/bin/
func (p *Paths) getSidecarPaths() []string {
	name := sidecarBinaryName()
	var candidates []string

	switch runtime.GOOS {
	case "windows":
		candidates = append(candidates, filepath.Join(p.ExeDir, "bin", name))
	case "darwin":
		resourcesDir := filepath.Join(p.ExeDir, "..", "Resources", "bin")
		candidates = append(candidates, filepath.Join(resourcesDir, name))
		candidates = append(candidates, filepath.Join(p.ExeDir, name))
	default:
		candidates = append(candidates, filepath.Join(p.ExeDir, name))
		candidates = append(candidates, filepath.Join(p.ExeDir, "bin", name))
	}

	return candidates
}

// wellKnownSystemPaths lists fixed install locations searched on platforms
// where extractors are commonly installed via a package manager rather than
// bundled or placed on PATH.
func wellKnownSystemPaths() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/opt/homebrew/bin/yt-dlp",
			"/usr/local/bin/yt-dlp",
		}
	default:
		return nil
	}
}

// fileExists reports whether path names a regular, non-empty file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Size() > 0
}

// LocateExtractor implements the ExtractorDriver locator policy: an
// explicit override, then the bundled sidecar (made executable on Unix
// when found), then well-known system
// install locations, then PATH, in that order. It returns
// ErrExtractorNotFound when every rung is exhausted.
func (p *Paths) LocateExtractor(envOverride string) (string, error) {
	if envOverride != "" && fileExists(envOverride) {
		return envOverride, nil
	}

	for _, candidate := range p.getSidecarPaths() {
		if fileExists(candidate) {
			if runtime.GOOS != "windows" {
				_ = os.Chmod(candidate, 0755)
			}
			return candidate, nil
		}
	}

	for _, candidate := range wellKnownSystemPaths() {
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	if runtime.GOOS != "windows" {
		if found, err := lookPath("yt-dlp"); err == nil {
			return found, nil
		}
	}

	return "", errExtractorNotFound
}

// FFmpegPath returns the expected ffmpeg location, checked as a companion
// sidecar next to the extractor. Callers treat a missing ffmpeg as a
// degraded-but-running condition (merges/remuxes unavailable), not a
// locator failure, so this never returns an error.
func (p *Paths) FFmpegPath() string {
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name = "ffmpeg.exe"
	}
	for _, dir := range []string{filepath.Join(p.ExeDir, "bin"), p.ExeDir, p.Bin} {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate
		}
	}
	if found, err := lookPath(name); err == nil {
		return found
	}
	return filepath.Join(p.Bin, name)
}

// Aria2cPath returns the optional aria2c accelerator path, if present.
func (p *Paths) Aria2cPath() (string, bool) {
	name := "aria2c"
	if runtime.GOOS == "windows" {
		name = "aria2c.exe"
	}
	for _, dir := range []string{filepath.Join(p.ExeDir, "bin"), p.ExeDir, p.Bin} {
		candidate := filepath.Join(dir, name)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	if found, err := lookPath(name); err == nil {
		return found, true
	}
	return "", false
}
