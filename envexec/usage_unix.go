//go:build unix

package envexec

import (
	"os"
	"syscall"
)

// peakRSS returns the maximum resident set size of the waited child.
// The rusage is filled by wait4 for that child only, so the baseline before
// spawn is zero and concurrent executions do not disturb each other.
func peakRSS(ps *os.ProcessState) (Size, bool) {
	if ps == nil {
		return 0, false
	}
	ru, ok := ps.SysUsage().(*syscall.Rusage)
	if !ok || ru == nil || ru.Maxrss < 0 {
		return 0, false
	}
	return Size(ru.Maxrss) * rssUnit, true
}
