package podlog

import (
	"context"
	"time"

	"github.com/go-logr/logr"
)

// dispatcher coalesces buffered lines into periodic batch events.
type dispatcher struct {
	buf      *lineBuffer
	out      chan<- Event
	interval time.Duration
	log      logr.Logger
}

func (d *dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	var pending []string
	for {
		select {
		case <-ctx.Done():
			d.finalFlush(pending)
			return nil
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			pending = d.flush(ctx)
		}
	}
}

// flush drains the buffer into one batch. It returns the batch when
// cancellation won over delivery.
func (d *dispatcher) flush(ctx context.Context) []string {
	lines := d.buf.Drain()
	if len(lines) == 0 {
		return nil
	}
	if !emit(ctx, d.out, Event{Lines: lines}) {
		return lines
	}
	d.log.V(2).Info("delivered log batch", "lines", len(lines))
	return nil
}

// finalFlush hands over pending plus whatever is left at teardown, giving the
// consumer one interval to accept it.
func (d *dispatcher) finalFlush(pending []string) {
	lines := append(pending, d.buf.Drain()...)
	if len(lines) == 0 {
		return
	}
	select {
	case d.out <- Event{Lines: lines}:
	case <-time.After(d.interval):
		d.log.V(1).Info("dropped undelivered log lines at shutdown", "lines", len(lines))
	}
}
