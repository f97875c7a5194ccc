//go:build !windows

package processutil

import "os/exec"

// HideConsoleWindow is a no-op outside Windows; there is no console to hide.
func HideConsoleWindow(cmd *exec.Cmd) {}
