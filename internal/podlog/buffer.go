package podlog

import "sync"

// lineBuffer collects rendered lines from every streamer until the
// dispatcher drains them.
type lineBuffer struct {
	mu    sync.RWMutex
	lines []string
}

func (b *lineBuffer) Append(line string) {
	b.mu.Lock()
	b.lines = append(b.lines, line)
	b.mu.Unlock()
}

// Drain returns everything appended since the previous drain, in append
// order, and leaves the buffer empty.
func (b *lineBuffer) Drain() []string {
	b.mu.Lock()
	lines := b.lines
	b.lines = nil
	b.mu.Unlock()
	return lines
}

func (b *lineBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}
