package envexec

import (
	"bytes"
	"sync"
)

// limitedBuffer keeps at most limit bytes and silently drops the rest so a
// chatty program cannot exhaust memory
type limitedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newLimitedBuffer(limit Size) *limitedBuffer {
	return &limitedBuffer{limit: int(limit)}
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if remain := b.limit - b.buf.Len(); remain < len(p) {
		if remain < 0 {
			remain = 0
		}
		p = p[:remain]
		b.truncated = true
	}
	b.buf.Write(p)
	return n, nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *limitedBuffer) Truncated() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.truncated
}
