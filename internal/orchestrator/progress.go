package orchestrator

import (
	"context"
	"sync"

	"github.com/yungdaddii/growth-copilot-prod-sub002/internal/domain"
)

// progressLog is the append-only event sequence of one run. It is written by
// the run's goroutine only and read by any number of subscribers.
type progressLog struct {
	mu      sync.Mutex
	events  []domain.ProgressEvent
	closed  bool
	changed chan struct{}
}

func newProgressLog() *progressLog {
	return &progressLog{changed: make(chan struct{})}
}

// append stamps the sequence number and holds the percentage at or above the
// previous event's. Nothing is accepted after the terminal event.
func (l *progressLog) append(ev domain.ProgressEvent) (domain.ProgressEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ev, false
	}
	ev.ProgressPercent = max(0, min(100, ev.ProgressPercent))
	if n := len(l.events); n > 0 {
		ev.ProgressPercent = max(ev.ProgressPercent, l.events[n-1].ProgressPercent)
	}
	ev.Sequence = len(l.events) + 1
	l.events = append(l.events, ev)
	if ev.Terminal {
		l.closed = true
	}

	close(l.changed)
	l.changed = make(chan struct{})
	return ev, true
}

// since returns the events after sequence number after, whether the log is
// complete, and a channel closed by the next append.
func (l *progressLog) since(after int) ([]domain.ProgressEvent, bool, <-chan struct{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	after = max(0, min(after, len(l.events)))
	out := append([]domain.ProgressEvent(nil), l.events[after:]...)
	return out, l.closed, l.changed
}

func (l *progressLog) last() (domain.ProgressEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.events) == 0 {
		return domain.ProgressEvent{}, false
	}
	return l.events[len(l.events)-1], true
}

// stream delivers events after sequence number after until the terminal
// event has been sent or ctx is done, then closes the channel.
func (l *progressLog) stream(ctx context.Context, after int) <-chan domain.ProgressEvent {
	out := make(chan domain.ProgressEvent)

	go func() {
		defer close(out)
		for {
			events, closed, changed := l.since(after)
			for _, ev := range events {
				select {
				case out <- ev:
					after = ev.Sequence
				case <-ctx.Done():
					return
				}
			}
			if closed {
				return
			}
			select {
			case <-changed:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
