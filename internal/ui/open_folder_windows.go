//go:build windows

package ui

import "os/exec"

// openFolder shows dir in Explorer. explorer.exe exits non-zero even on
// success, so only a failure to launch it is reported.
func openFolder(dir string) error {
	return exec.Command("explorer.exe", dir).Start()
}
