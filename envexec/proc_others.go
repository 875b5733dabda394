//go:build !unix

package envexec

import "os/exec"

// without process groups only the direct child is killed
func setProcAttr(*exec.Cmd) {}
