//go:build darwin

package ui

import "os/exec"

// openFolder reveals dir in Finder
func openFolder(dir string) error {
	return exec.Command("open", "-R", dir).Start()
}
