//go:build !unix

package envexec

import "os"

func peakRSS(*os.ProcessState) (Size, bool) {
	return 0, false
}
