// File: internal/podlog/tracker.go
// Brief: Watch-driven pod status tracker.

package podlog

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/watch"
)

// tracker keeps the pod snapshot current from a single-pod watch.
type tracker struct {
	cluster   Cluster
	namespace string
	name      string
	timeout   time.Duration
	renew     bool
	renewWait time.Duration
	snapshot  *podSnapshot
	log       logr.Logger
}

// Run watches the pod until the server ends the watch session. When renew is
// set, a session that ends normally is reopened instead.
func (t *tracker) Run(ctx context.Context) error {
	for {
		if err := t.watchOnce(ctx); err != nil {
			return err
		}
		if !t.renew || ctx.Err() != nil {
			return nil
		}
		t.log.V(1).Info("pod watch session ended, renewing", "pod", t.name)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(t.renewWait):
		}
	}
}

func (t *tracker) watchOnce(ctx context.Context) error {
	w, err := t.cluster.WatchPod(ctx, t.namespace, t.name, t.timeout)
	if err != nil {
		return fmt.Errorf("watch pod %s/%s: %w", t.namespace, t.name, err)
	}
	defer w.Stop()
	t.log.V(1).Info("watching pod status", "pod", t.name, "timeout", t.timeout.String())

	updates := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.ResultChan():
			if !ok {
				t.log.V(1).Info("pod watch closed", "pod", t.name, "updates", updates)
				return nil
			}
			switch ev.Type {
			case watch.Added, watch.Modified, watch.Deleted:
				pod, ok := ev.Object.(*corev1.Pod)
				if !ok {
					continue
				}
				t.snapshot.Set(pod)
				updates++
			case watch.Bookmark:
			case watch.Error:
				return fmt.Errorf("watch pod %s/%s: %w", t.namespace, t.name, apierrors.FromObject(ev.Object))
			}
		}
	}
}
