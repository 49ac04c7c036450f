// File: internal/podlog/session.go
// Brief: Log session lifecycle for a single pod.

// Package podlog aggregates the logs of every container of one pod. A
// Session tracks the pod's status through a watch, follows init containers
// one at a time and main containers concurrently, batches their prefixed
// lines onto an output channel and turns abnormal exits into readable
// failure reports.
package podlog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPollInterval  = 200 * time.Millisecond
	DefaultFlushInterval = 200 * time.Millisecond
	DefaultWatchTimeout  = 180 * time.Second
)

// Options configures a Session. Zero durations fall back to the defaults.
type Options struct {
	Namespace     string
	Pod           string
	PollInterval  time.Duration
	FlushInterval time.Duration
	WatchTimeout  time.Duration
	ColorMode     ColorMode
	// RenewWatch reopens the status watch whenever the server closes it.
	RenewWatch bool
	// Location is used for report timestamps; nil means time.Local.
	Location *time.Location
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = DefaultFlushInterval
	}
	if o.WatchTimeout <= 0 {
		o.WatchTimeout = DefaultWatchTimeout
	}
	if o.ColorMode == "" {
		o.ColorMode = ColorAuto
	}
	return o
}

// Session owns the tasks that stream one pod's logs: the status tracker, the
// batch dispatcher and the orchestrator.
type Session struct {
	opts    Options
	cluster Cluster
	out     chan<- Event
	log     logr.Logger

	snapshot *podSnapshot
	buf      *lineBuffer

	startOnce sync.Once
	cancel    context.CancelFunc
	tasks     errgroup.Group
	done      chan struct{}
	err       error
}

// NewSession prepares a session that delivers to out. Nothing runs until Start.
func NewSession(cluster Cluster, out chan<- Event, logger logr.Logger, opts Options) (*Session, error) {
	if cluster == nil {
		return nil, errors.New("podlog: cluster is required")
	}
	if out == nil {
		return nil, errors.New("podlog: output channel is required")
	}
	if opts.Namespace == "" || opts.Pod == "" {
		return nil, errors.New("podlog: namespace and pod are required")
	}
	return &Session{
		opts:     opts.withDefaults(),
		cluster:  cluster,
		out:      out,
		log:      logger.WithName("podlog").WithValues("namespace", opts.Namespace, "pod", opts.Pod),
		snapshot: &podSnapshot{},
		buf:      &lineBuffer{},
		done:     make(chan struct{}),
	}, nil
}

// Start launches the session's tasks. They run until Stop is called or ctx is
// cancelled; the orchestrator finishing does not stop the other two.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		painter := painter{mode: s.opts.ColorMode}
		trk := &tracker{
			cluster:   s.cluster,
			namespace: s.opts.Namespace,
			name:      s.opts.Pod,
			timeout:   s.opts.WatchTimeout,
			renew:     s.opts.RenewWatch,
			renewWait: s.opts.PollInterval,
			snapshot:  s.snapshot,
			log:       s.log.WithName("tracker"),
		}
		disp := &dispatcher{
			buf:      s.buf,
			out:      s.out,
			interval: s.opts.FlushInterval,
			log:      s.log.WithName("dispatcher"),
		}
		orch := &orchestrator{
			cluster:   s.cluster,
			namespace: s.opts.Namespace,
			podName:   s.opts.Pod,
			snapshot:  s.snapshot,
			gate:      &gate{snapshot: s.snapshot, interval: s.opts.PollInterval, log: s.log.WithName("gate")},
			streamer:  &streamer{cluster: s.cluster, namespace: s.opts.Namespace, pod: s.opts.Pod, buf: s.buf, log: s.log.WithName("stream")},
			diag:      &diagnostics{cluster: s.cluster, painter: painter, location: s.opts.Location},
			painter:   painter,
			out:       s.out,
			log:       s.log.WithName("orchestrator"),
		}

		s.tasks.Go(func() error {
			err := trk.Run(ctx)
			if err != nil && ctx.Err() == nil {
				s.log.Error(err, "pod status tracking stopped")
				emit(ctx, s.out, Event{Err: err})
			}
			return err
		})
		s.tasks.Go(func() error {
			return disp.Run(ctx)
		})
		s.tasks.Go(func() error {
			defer close(s.done)
			s.err = orch.Run(ctx)
			return s.err
		})
		s.log.V(1).Info("log session started")
	})
}

// Done is closed once the orchestrator has finished with every container.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the orchestration result. It is only meaningful after Done is closed.
func (s *Session) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Stop cancels every task and waits for them to return. Lines still buffered
// are offered to the output channel one last time.
func (s *Session) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	_ = s.tasks.Wait()
	s.log.V(1).Info("log session stopped")
}
