//go:build !windows && !darwin

package ui

import "os/exec"

// openFolder opens dir with the desktop's default file manager
func openFolder(dir string) error {
	return exec.Command("xdg-open", dir).Start()
}
