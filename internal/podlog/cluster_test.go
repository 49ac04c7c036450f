package podlog

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
)

// fakeCluster serves a fixed pod, scripted log bodies and a controllable watch.
type fakeCluster struct {
	mu        sync.Mutex
	pod       *corev1.Pod
	getErr    error
	watcher   *watch.FakeWatcher
	watchErr  error
	watches   int
	logs      map[string]string
	logErrs   map[string]error
	opened    []string
	events    []corev1.Event
	eventsErr error
	selectors []string
}

func newFakeCluster(pod *corev1.Pod) *fakeCluster {
	return &fakeCluster{
		pod:     pod,
		watcher: watch.NewFakeWithChanSize(16, false),
		logs:    map[string]string{},
		logErrs: map[string]error{},
	}
}

func (f *fakeCluster) GetPod(_ context.Context, _, _ string) (*corev1.Pod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.pod.DeepCopy(), nil
}

func (f *fakeCluster) WatchPod(_ context.Context, _, _ string, _ time.Duration) (watch.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watches++
	if f.watchErr != nil {
		return nil, f.watchErr
	}
	return f.watcher, nil
}

func (f *fakeCluster) StreamContainerLog(_ context.Context, _, _, container string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, container)
	if err := f.logErrs[container]; err != nil {
		return nil, err
	}
	return io.NopCloser(strings.NewReader(f.logs[container])), nil
}

func (f *fakeCluster) ListEvents(_ context.Context, _, selector string) ([]corev1.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.selectors = append(f.selectors, selector)
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events, nil
}

func (f *fakeCluster) openedContainers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

func (f *fakeCluster) eventSelectors() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.selectors...)
}

func running() corev1.ContainerState {
	return corev1.ContainerState{Running: &corev1.ContainerStateRunning{StartedAt: metav1.Now()}}
}

func waiting(reason string) corev1.ContainerState {
	return corev1.ContainerState{Waiting: &corev1.ContainerStateWaiting{Reason: reason}}
}

func exited(code int32) corev1.ContainerState {
	return corev1.ContainerState{Terminated: &corev1.ContainerStateTerminated{ExitCode: code}}
}

func status(name string, state corev1.ContainerState) corev1.ContainerStatus {
	return corev1.ContainerStatus{Name: name, State: state}
}

// testPod builds a pod with one spec container per status, in the same order.
func testPod(inits, mains []corev1.ContainerStatus) *corev1.Pod {
	pod := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web-0", Namespace: "shop", UID: "uid-1"},
	}
	for _, st := range inits {
		pod.Spec.InitContainers = append(pod.Spec.InitContainers, corev1.Container{Name: st.Name, Image: "busybox:1.36"})
	}
	for _, st := range mains {
		pod.Spec.Containers = append(pod.Spec.Containers, corev1.Container{Name: st.Name, Image: "nginx:1.27"})
	}
	pod.Status.InitContainerStatuses = inits
	pod.Status.ContainerStatuses = mains
	return pod
}

func testOptions() Options {
	return Options{
		Namespace:     "shop",
		Pod:           "web-0",
		PollInterval:  2 * time.Millisecond,
		FlushInterval: 5 * time.Millisecond,
		WatchTimeout:  time.Minute,
		ColorMode:     ColorNever,
		Location:      time.UTC,
	}
}

type collected struct {
	mu     sync.Mutex
	lines  []string
	errs   []error
	events int
}

func (c *collected) snapshot() ([]string, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...), append([]error(nil), c.errs...)
}

// startSession runs a session against f and collects everything it emits.
// The returned stop function tears the session down and waits for the
// collector to drain.
func startSession(t *testing.T, f *fakeCluster, opts Options) (*Session, *collected, func()) {
	t.Helper()
	out := make(chan Event)
	s, err := NewSession(f, out, logr.Discard(), opts)
	require.NoError(t, err)

	c := &collected{}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for ev := range out {
			c.mu.Lock()
			c.events++
			if ev.Err != nil {
				c.errs = append(c.errs, ev.Err)
			} else {
				c.lines = append(c.lines, ev.Lines...)
			}
			c.mu.Unlock()
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			s.Stop()
			cancel()
			close(out)
			<-drained
		})
	}
	t.Cleanup(stop)
	return s, c, stop
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session did not finish")
	}
}

var errBoom = errors.New("boom")
