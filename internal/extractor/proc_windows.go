//go:build windows

package extractor

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr hides the console window yt-dlp would otherwise flash
// open on Windows.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: 0x08000000, // CREATE_NO_WINDOW
	}
}
