package podlog

import "context"

// Event is a single delivery on a session's output channel. Exactly one of
// Lines or Err is set.
type Event struct {
	Lines []string
	Err   error
}

func emit(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
