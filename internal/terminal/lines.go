package terminal

import (
	"sync"

	"github.com/penosext/pentools/internal/metrics"
	"github.com/penosext/pentools/pkg/types"
)

// lineLog is the append-only scrollback, truncated from the front.
type lineLog struct {
	lines []types.TerminalLine
	max   int
}

func (l *lineLog) append(line types.TerminalLine) {
	l.lines = append(l.lines, line)
	if l.max > 0 && len(l.lines) > l.max {
		l.lines = append(l.lines[:0:0], l.lines[len(l.lines)-l.max:]...)
	}
}

func (l *lineLog) snapshot() []types.TerminalLine {
	out := make([]types.TerminalLine, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *lineLog) clear() {
	l.lines = nil
}

// broadcaster fans appended lines out to stream subscribers.
type broadcaster struct {
	mu          sync.RWMutex
	subscribers map[chan types.TerminalLine]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subscribers: make(map[chan types.TerminalLine]struct{})}
}

func (b *broadcaster) subscribe() chan types.TerminalLine {
	ch := make(chan types.TerminalLine, 64)
	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.TerminalSubscribers.Set(float64(n))
	return ch
}

func (b *broadcaster) unsubscribe(ch chan types.TerminalLine) {
	b.mu.Lock()
	if _, ok := b.subscribers[ch]; ok {
		delete(b.subscribers, ch)
		close(ch)
	}
	n := len(b.subscribers)
	b.mu.Unlock()
	metrics.TerminalSubscribers.Set(float64(n))
}

// publish never blocks; slow consumers miss lines.
func (b *broadcaster) publish(line types.TerminalLine) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subscribers {
		select {
		case ch <- line:
		default:
		}
	}
}
