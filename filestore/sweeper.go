package filestore

import (
	"context"
	"time"
)

// RunSweeper removes files older than maxAge every interval until ctx is done.
// Files are normally removed right after their execution; the sweeper only
// collects what a crashed process left behind.
func RunSweeper(ctx context.Context, fs FileStore, maxAge, interval time.Duration, onSweep func(int, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := fs.Sweep(maxAge)
		if onSweep != nil {
			onSweep(n, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
